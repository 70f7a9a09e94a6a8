package installer

import (
	"crypto/sha256"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/vango-dev/marketplace/internal/errors"
	"github.com/vango-dev/marketplace/internal/registry"
)

// pluginFile is the metadata snapshot written to <plugin dir>/plugin.json.
type pluginFile struct {
	registry.Metadata
	InstalledVersion string `json:"installedVersion"`
}

// readManifest loads the manifest at path. A missing file is an empty
// manifest.
func readManifest(path string) (map[string]*Plugin, [32]byte, error) {
	plugins := make(map[string]*Plugin)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return plugins, [32]byte{}, nil
		}
		return nil, [32]byte{}, errors.New(errors.CodeFilesystem).
			WithDetailf("Could not read %s", path).
			Wrap(err)
	}

	if err := json.Unmarshal(data, &plugins); err != nil {
		return nil, [32]byte{}, errors.New(errors.CodeManifestCorrupt).
			WithDetailf("Could not parse %s", path).
			Wrap(err)
	}
	if plugins == nil {
		plugins = make(map[string]*Plugin)
	}
	for key, p := range plugins {
		if p == nil {
			delete(plugins, key)
			continue
		}
		if p.Config.Settings == nil {
			p.Config.Settings = make(map[string]any)
		}
	}
	return plugins, sha256.Sum256(data), nil
}

// save rewrites the whole manifest. Caller holds in.mu.
func (in *Installer) save() error {
	data, err := json.MarshalIndent(in.plugins, "", "  ")
	if err != nil {
		return errors.New(errors.CodeFilesystem).Wrap(err)
	}
	data = append(data, '\n')

	if err := writeFileAtomic(in.manifestPath(), data); err != nil {
		return err
	}
	in.lastSum = sha256.Sum256(data)
	return nil
}

// commit stores p under key (or deletes key when p is nil) and persists
// the manifest, restoring the previous value if the write fails so memory
// and disk stay in agreement. Caller holds in.mu.
func (in *Installer) commit(key string, p *Plugin) error {
	prev, had := in.plugins[key]
	if p == nil {
		delete(in.plugins, key)
	} else {
		in.plugins[key] = p
	}

	if err := in.save(); err != nil {
		if had {
			in.plugins[key] = prev
		} else {
			delete(in.plugins, key)
		}
		return err
	}
	return nil
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it over path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.New(errors.CodeFilesystem).
			WithDetailf("Could not write %s", path).
			Wrap(err)
	}
	tmpName := tmp.Name()

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Chmod(tmpName, 0644)
	}
	if err == nil {
		err = os.Rename(tmpName, path)
	}
	if err != nil {
		os.Remove(tmpName)
		return errors.New(errors.CodeFilesystem).
			WithDetailf("Could not write %s", path).
			Wrap(err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.New(errors.CodeFilesystem).Wrap(err)
	}
	return writeFileAtomic(path, append(data, '\n'))
}

// writePluginFiles writes config.json and plugin.json into the plugin
// directory, creating it if needed.
func writePluginFiles(p *Plugin) error {
	if err := os.MkdirAll(p.Path, 0755); err != nil {
		return errors.New(errors.CodeFilesystem).
			WithDetailf("Could not create %s", p.Path).
			Wrap(err)
	}
	if err := writeConfigFile(p); err != nil {
		return err
	}
	return writeJSON(filepath.Join(p.Path, "plugin.json"), pluginFile{
		Metadata:         p.Metadata,
		InstalledVersion: p.Version(),
	})
}

func writeConfigFile(p *Plugin) error {
	if err := os.MkdirAll(p.Path, 0755); err != nil {
		return errors.New(errors.CodeFilesystem).
			WithDetailf("Could not create %s", p.Path).
			Wrap(err)
	}
	return writeJSON(filepath.Join(p.Path, "config.json"), p.Config)
}

// Reload re-reads the manifest from disk, replacing the in-memory state.
// It is a no-op when the file matches what this installer last wrote.
func (in *Installer) Reload() error {
	in.mu.Lock()
	plugins, sum, err := readManifest(in.manifestPath())
	if err != nil {
		in.mu.Unlock()
		return err
	}
	if sum == in.lastSum {
		in.mu.Unlock()
		return nil
	}
	in.plugins = plugins
	in.lastSum = sum
	n := len(plugins)
	in.mu.Unlock()

	in.metrics.SetInstalled(n)
	in.logger.Info("manifest reloaded", "installed", n)
	in.emit(newEvent(EventReloaded, "", "", in.now()))
	return nil
}
