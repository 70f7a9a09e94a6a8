package installer

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/vango-dev/marketplace/internal/errors"
	"github.com/vango-dev/marketplace/internal/registry"
)

// Install installs namespace/name at version, or at the catalog's latest
// version when version is empty.
func (in *Installer) Install(ctx context.Context, namespace, name, version string) (Result, error) {
	key := registry.Key(namespace, name)
	return in.operation(ctx, "install", EventInstalled, key, func(ctx context.Context) (Result, error) {
		if _, exists := in.plugins[key]; exists {
			return rejected(key, errors.CodeAlreadyInstalled,
				fmt.Sprintf("Plugin %s is already installed. Use update to change versions.", key)), nil
		}

		entry, found := in.catalog.Lookup(namespace, name)
		if !found {
			return rejected(key, errors.CodeNotFound,
				fmt.Sprintf("Plugin %s not found in the marketplace registry.", key)), nil
		}

		target := version
		if target == "" {
			target = entry.LatestVersion
		}
		if !entry.HasVersion(target) {
			return rejected(key, errors.CodeInvalidVersion,
				fmt.Sprintf("Version %s not found. Available: %s", target, strings.Join(entry.Versions, ", "))), nil
		}
		if !safeSegment(namespace) || !safeSegment(name) {
			return rejected(key, errors.CodeInvalidRef,
				fmt.Sprintf("Plugin %s cannot be installed into a directory.", key)), nil
		}

		now := in.now()
		meta := entry.Metadata
		meta.Keywords = append([]string(nil), entry.Metadata.Keywords...)
		meta.Version = target

		p := &Plugin{
			Metadata:    meta,
			Config:      Config{Enabled: true, Settings: make(map[string]any)},
			InstalledAt: now,
			UpdatedAt:   now,
			Path:        in.pluginDir(namespace, name),
		}
		if err := writePluginFiles(p); err != nil {
			return Result{}, err
		}
		if err := in.commit(key, p); err != nil {
			os.RemoveAll(p.Path)
			return Result{}, err
		}
		return succeeded(key, target, fmt.Sprintf("Successfully installed %s@%s", key, target)), nil
	})
}

// Remove uninstalls namespace/name and deletes its directory.
func (in *Installer) Remove(ctx context.Context, namespace, name string) (Result, error) {
	key := registry.Key(namespace, name)
	return in.operation(ctx, "remove", EventRemoved, key, func(ctx context.Context) (Result, error) {
		p, exists := in.plugins[key]
		if !exists {
			return rejected(key, errors.CodeNotInstalled,
				fmt.Sprintf("Plugin %s is not installed.", key)), nil
		}

		if _, err := os.Stat(p.Path); os.IsNotExist(err) {
			in.logger.Warn("plugin directory already missing", "plugin", key, "path", p.Path)
		} else if err := os.RemoveAll(p.Path); err != nil {
			return Result{}, errors.New(errors.CodeFilesystem).
				WithDetailf("Could not remove %s", p.Path).
				Wrap(err)
		}

		if err := in.commit(key, nil); err != nil {
			return Result{}, err
		}
		return succeeded(key, p.Version(), fmt.Sprintf("Successfully removed %s", key)), nil
	})
}

// Update moves namespace/name to the catalog's latest version.
func (in *Installer) Update(ctx context.Context, namespace, name string) (Result, error) {
	key := registry.Key(namespace, name)
	return in.operation(ctx, "update", EventUpdated, key, func(ctx context.Context) (Result, error) {
		return in.update(key, namespace, name)
	})
}

// update is Update's body. Caller holds in.mu.
func (in *Installer) update(key, namespace, name string) (Result, error) {
	current, exists := in.plugins[key]
	if !exists {
		return rejected(key, errors.CodeNotInstalled,
			fmt.Sprintf("Plugin %s is not installed.", key)), nil
	}

	entry, found := in.catalog.Lookup(namespace, name)
	if !found {
		return rejected(key, errors.CodeNotFound,
			fmt.Sprintf("Plugin %s no longer exists in the registry.", key)), nil
	}

	latest := entry.LatestVersion
	if current.Version() == latest {
		return noChange(key, latest,
			fmt.Sprintf("Plugin %s is already at the latest version (%s).", key, latest)), nil
	}

	next := current.clone()
	next.Metadata = entry.Metadata
	next.Metadata.Keywords = append([]string(nil), entry.Metadata.Keywords...)
	next.Metadata.Version = latest
	next.UpdatedAt = in.now()

	if err := writePluginFiles(next); err != nil {
		return Result{}, err
	}
	if err := in.commit(key, next); err != nil {
		if rerr := writePluginFiles(current); rerr != nil {
			in.logger.Warn("could not restore plugin files", "plugin", key, "error", rerr)
		}
		return Result{}, err
	}
	return succeeded(key, latest, fmt.Sprintf("Updated %s to v%s", key, latest)), nil
}

// UpdateAll runs Update for every installed plugin, in key order. It stops
// at the first I/O error.
func (in *Installer) UpdateAll(ctx context.Context) ([]Result, error) {
	plugins := in.List()
	results := make([]Result, 0, len(plugins))
	for _, p := range plugins {
		res, err := in.Update(ctx, p.Metadata.Namespace, p.Metadata.Name)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// safeSegment reports whether s can be used as a single path element.
func safeSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}
