// Package plugin is the provider registry. Providers for every port
// (classifier, frame source, TTS, STT, LLM) register a factory under a kind and
// a name, usually from an init function, and the CLI builds them from
// configuration without importing provider packages directly.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Provider kinds.
const (
	KindClassifier = "classifier"
	KindSource     = "source"
	KindTTS        = "tts"
	KindSTT        = "stt"
	KindLLM        = "llm"
)

// Dynamic plugin locations.
const (
	PluginPathEnv     = "ECO_PLUGIN_PATH"
	DefaultPluginPath = "/usr/local/lib/eco-go/plugins"
)

// ErrDynamicUnsupported is returned by LoadDynamic in builds without plugin support.
var ErrDynamicUnsupported = errors.New("dynamic plugin loading not supported (build with -tags=plugindyn on Linux)")

// Factory creates a new provider instance from configuration.
// The returned value is cast to the port of its kind
// (classify.Classifier, source.Source, tts.TTS, stt.STT or llm.LLM).
type Factory func(cfg map[string]any) (any, error)

// Downloader is implemented by plugins that need model files on disk.
type Downloader interface {
	Download(ctx context.Context) error
}

// DownloaderFunc adapts a function to Downloader.
type DownloaderFunc func(ctx context.Context) error

// Download calls f.
func (f DownloaderFunc) Download(ctx context.Context) error { return f(ctx) }

// Plugin represents a registered plugin with its metadata.
type Plugin struct {
	Kind        string         // one of the Kind constants
	Name        string         // e.g. "onnx", "snapshot", "openai"
	Factory     Factory        // creates instances
	Description string         // human-readable description
	Version     string         // plugin version
	Config      map[string]any // documented options and their defaults
	Downloader  Downloader     // optional, for model files
}

// Registry manages plugin registration and lookup.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]map[string]*Plugin // [kind][name]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{plugins: make(map[string]map[string]*Plugin)}
}

var globalRegistry = NewRegistry()

// Default returns the process-wide registry that init functions register into.
func Default() *Registry {
	return globalRegistry
}

// Register adds a plugin to the global registry.
// Panics if a plugin with the same kind and name is already registered.
func Register(kind, name string, factory Factory) {
	globalRegistry.Register(kind, name, factory)
}

// RegisterWithMetadata adds a plugin with additional metadata to the global registry.
func RegisterWithMetadata(plugin *Plugin) {
	globalRegistry.RegisterWithMetadata(plugin)
}

// Get retrieves a plugin factory from the global registry.
func Get(kind, name string) (Factory, bool) {
	return globalRegistry.Get(kind, name)
}

// Lookup retrieves a plugin with its metadata from the global registry.
func Lookup(kind, name string) (*Plugin, bool) {
	return globalRegistry.Lookup(kind, name)
}

// List returns all registered plugins of a kind, or every plugin when kind is empty.
func List(kind string) []*Plugin {
	return globalRegistry.List(kind)
}

// LoadDynamicPlugins loads .so plugins from dir into the global registry.
func LoadDynamicPlugins(dir string) ([]*Plugin, error) {
	return globalRegistry.LoadDynamic(dir)
}

// ListKinds returns all registered plugin kinds.
func ListKinds() []string {
	return globalRegistry.ListKinds()
}

// Register adds a plugin to this registry instance.
func (r *Registry) Register(kind, name string, factory Factory) {
	r.RegisterWithMetadata(&Plugin{
		Kind:    kind,
		Name:    name,
		Factory: factory,
	})
}

// RegisterWithMetadata adds a plugin with metadata to this registry instance.
// Panics on empty kind or name, nil factory, or a duplicate registration.
func (r *Registry) RegisterWithMetadata(plugin *Plugin) {
	if plugin.Kind == "" {
		panic("plugin kind cannot be empty")
	}
	if plugin.Name == "" {
		panic("plugin name cannot be empty")
	}
	if plugin.Factory == nil {
		panic("plugin factory cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.plugins[plugin.Kind] == nil {
		r.plugins[plugin.Kind] = make(map[string]*Plugin)
	}
	if existing, exists := r.plugins[plugin.Kind][plugin.Name]; exists {
		panic(fmt.Sprintf("plugin %s/%s already registered (existing version: %s, new version: %s)",
			plugin.Kind, plugin.Name, existing.Version, plugin.Version))
	}
	r.plugins[plugin.Kind][plugin.Name] = plugin
}

// Get retrieves a plugin factory from this registry instance.
func (r *Registry) Get(kind, name string) (Factory, bool) {
	p, ok := r.Lookup(kind, name)
	if !ok {
		return nil, false
	}
	return p.Factory, true
}

// Lookup retrieves a plugin with its metadata.
func (r *Registry) Lookup(kind, name string) (*Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.plugins[kind][name]
	return p, ok
}

// List returns all registered plugins of a kind sorted by name, or every
// plugin sorted by kind then name when kind is empty.
func (r *Registry) List(kind string) []*Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var plugins []*Plugin
	for k, kindMap := range r.plugins {
		if kind != "" && k != kind {
			continue
		}
		for _, plugin := range kindMap {
			plugins = append(plugins, plugin)
		}
	}

	sort.Slice(plugins, func(i, j int) bool {
		if plugins[i].Kind != plugins[j].Kind {
			return plugins[i].Kind < plugins[j].Kind
		}
		return plugins[i].Name < plugins[j].Name
	})
	return plugins
}

// ListKinds returns all registered plugin kinds in sorted order.
func (r *Registry) ListKinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.plugins))
	for kind := range r.plugins {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// Clear removes all plugins from this registry instance.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins = make(map[string]map[string]*Plugin)
}
