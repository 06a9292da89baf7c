//go:build plugindyn && linux

package plugin

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	goplugin "plugin"
)

// LoadDynamic opens every .so file in dir and calls its exported
// Register(*plugin.Registry) error. An empty dir means ECO_PLUGIN_PATH or
// DefaultPluginPath; a missing directory loads nothing. It returns the
// providers the files added.
func (r *Registry) LoadDynamic(dir string) ([]*Plugin, error) {
	if dir == "" {
		dir = os.Getenv(PluginPathEnv)
		if dir == "" {
			dir = DefaultPluginPath
		}
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.so"))
	if err != nil {
		return nil, fmt.Errorf("search plugins in %s: %w", dir, err)
	}

	before := make(map[string]bool)
	for _, p := range r.List("") {
		before[p.Kind+"/"+p.Name] = true
	}

	for _, f := range files {
		if err := r.open(f); err != nil {
			return nil, fmt.Errorf("load plugin %s: %w", filepath.Base(f), err)
		}
		slog.Debug("Loaded plugin file", slog.String("file", f))
	}

	var added []*Plugin
	for _, p := range r.List("") {
		if !before[p.Kind+"/"+p.Name] {
			added = append(added, p)
		}
	}
	return added, nil
}

func (r *Registry) open(path string) (err error) {
	so, err := goplugin.Open(path)
	if err != nil {
		return err
	}
	sym, err := so.Lookup("Register")
	if err != nil {
		return err
	}
	register, ok := sym.(func(*Registry) error)
	if !ok {
		return fmt.Errorf("Register has type %T, want func(*plugin.Registry) error", sym)
	}

	// Register panics on a duplicate name
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("register: %v", p)
		}
	}()
	return register(r)
}
