package installer

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/vango-dev/marketplace/internal/errors"
	"github.com/vango-dev/marketplace/internal/registry"
)

// SetEnabled enables or disables an installed plugin.
func (in *Installer) SetEnabled(ctx context.Context, namespace, name string, enabled bool) (Result, error) {
	key := registry.Key(namespace, name)
	op := "disable"
	if enabled {
		op = "enable"
	}
	return in.operation(ctx, op, EventConfigured, key, func(ctx context.Context) (Result, error) {
		current, exists := in.plugins[key]
		if !exists {
			return rejected(key, errors.CodeNotInstalled,
				fmt.Sprintf("Plugin %s is not installed.", key)), nil
		}
		if current.Config.Enabled == enabled {
			return noChange(key, current.Version(),
				fmt.Sprintf("Plugin %s is already %sd.", key, op)), nil
		}

		next := current.clone()
		next.Config.Enabled = enabled
		if err := in.configure(key, next); err != nil {
			return Result{}, err
		}
		verb := "Disabled"
		if enabled {
			verb = "Enabled"
		}
		return succeeded(key, next.Version(), fmt.Sprintf("%s %s", verb, key)), nil
	})
}

// SetSetting sets one configuration value. When the catalog entry declares
// a settings schema the key must be declared and the value must match it.
func (in *Installer) SetSetting(ctx context.Context, namespace, name, setting string, value any) (Result, error) {
	key := registry.Key(namespace, name)
	return in.operation(ctx, "set", EventConfigured, key, func(ctx context.Context) (Result, error) {
		current, exists := in.plugins[key]
		if !exists {
			return rejected(key, errors.CodeNotInstalled,
				fmt.Sprintf("Plugin %s is not installed.", key)), nil
		}

		if entry, found := in.catalog.Lookup(namespace, name); found && len(entry.Settings) > 0 {
			spec, declared := entry.Settings[setting]
			if !declared {
				return rejected(key, errors.CodeUnknownSetting,
					fmt.Sprintf("Unknown setting %q for %s. Available: %s", setting, key, settingNames(entry.Settings))), nil
			}
			if err := spec.Validate(value); err != nil {
				return rejected(key, errors.CodeInvalidSetting,
					fmt.Sprintf("Invalid value for %s.%s: %v", key, setting, err)), nil
			}
		}

		next := current.clone()
		next.Config.Settings[setting] = value
		if err := in.configure(key, next); err != nil {
			return Result{}, err
		}
		return succeeded(key, next.Version(), fmt.Sprintf("Set %s.%s", key, setting)), nil
	})
}

// UnsetSetting removes one configuration value.
func (in *Installer) UnsetSetting(ctx context.Context, namespace, name, setting string) (Result, error) {
	key := registry.Key(namespace, name)
	return in.operation(ctx, "unset", EventConfigured, key, func(ctx context.Context) (Result, error) {
		current, exists := in.plugins[key]
		if !exists {
			return rejected(key, errors.CodeNotInstalled,
				fmt.Sprintf("Plugin %s is not installed.", key)), nil
		}
		if _, set := current.Config.Settings[setting]; !set {
			return noChange(key, current.Version(),
				fmt.Sprintf("Setting %s.%s is not set.", key, setting)), nil
		}

		next := current.clone()
		delete(next.Config.Settings, setting)
		if err := in.configure(key, next); err != nil {
			return Result{}, err
		}
		return succeeded(key, next.Version(), fmt.Sprintf("Unset %s.%s", key, setting)), nil
	})
}

// configure stamps next, rewrites its config.json and commits it.
// Caller holds in.mu.
func (in *Installer) configure(key string, next *Plugin) error {
	next.UpdatedAt = in.now()
	if err := writeConfigFile(next); err != nil {
		return err
	}
	return in.commit(key, next)
}

func settingNames(specs map[string]registry.SettingSpec) string {
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
