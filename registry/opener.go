package registry

import (
	"fmt"
	"plugin"
	"sort"
	"strings"

	"github.com/nvr-ai/go-hebench/api"
)

// EntryPoint is the symbol a plugin backend module must export.
const EntryPoint = "NewBackend"

// BuiltinPrefix selects backends compiled into the harness binary.
const BuiltinPrefix = "builtin:"

// Opener opens a backend module.
type Opener interface {
	Open(modulePath string) (api.Backend, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(modulePath string) (api.Backend, error)

// Open calls f.
func (f OpenerFunc) Open(modulePath string) (api.Backend, error) {
	return f(modulePath)
}

// Builtins opens backends registered in-process by name.
type Builtins map[string]func() api.Backend

// Open resolves modulePath, with or without the builtin prefix, to a registered constructor.
func (b Builtins) Open(modulePath string) (api.Backend, error) {
	name := strings.TrimPrefix(modulePath, BuiltinPrefix)
	ctor, ok := b[name]
	if !ok {
		return nil, &api.LoadError{
			Path:   modulePath,
			Reason: fmt.Sprintf("unknown builtin backend (available: %s)", strings.Join(b.Names(), ", ")),
		}
	}
	backend := ctor()
	if backend == nil {
		return nil, &api.LoadError{Path: modulePath, Reason: "builtin constructor returned nil"}
	}
	return backend, nil
}

// Names returns the sorted builtin names.
func (b Builtins) Names() []string {
	names := make([]string, 0, len(b))
	for name := range b {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PluginOpener opens Go plugin shared objects that export EntryPoint as
// `func() api.Backend`.
//
// Go plugins cannot be unloaded, so the module stays mapped after the registry closes;
// only the backend's handles and engine are released.
type PluginOpener struct{}

// Open loads the plugin at modulePath and calls its entry point.
func (PluginOpener) Open(modulePath string) (api.Backend, error) {
	p, err := plugin.Open(modulePath)
	if err != nil {
		return nil, &api.LoadError{Path: modulePath, Reason: "cannot open module", Cause: err}
	}

	sym, err := p.Lookup(EntryPoint)
	if err != nil {
		return nil, &api.LoadError{Path: modulePath, Reason: "missing entry point " + EntryPoint, Cause: err}
	}

	var ctor func() api.Backend
	switch fn := sym.(type) {
	case func() api.Backend:
		ctor = fn
	case *func() api.Backend:
		ctor = *fn
	default:
		return nil, &api.LoadError{
			Path:   modulePath,
			Reason: fmt.Sprintf("entry point %s has incompatible type %T", EntryPoint, sym),
		}
	}

	backend := ctor()
	if backend == nil {
		return nil, &api.LoadError{Path: modulePath, Reason: "entry point returned nil backend"}
	}
	return backend, nil
}

// MultiOpener routes builtin-prefixed paths to Builtin and everything else to Plugin.
type MultiOpener struct {
	Builtin Opener
	Plugin  Opener
}

// Open dispatches on the module path prefix.
func (m MultiOpener) Open(modulePath string) (api.Backend, error) {
	if strings.HasPrefix(modulePath, BuiltinPrefix) {
		if m.Builtin == nil {
			return nil, &api.LoadError{Path: modulePath, Reason: "no builtin backends configured"}
		}
		return m.Builtin.Open(modulePath)
	}
	if m.Plugin == nil {
		return nil, &api.LoadError{Path: modulePath, Reason: "plugin loading disabled"}
	}
	return m.Plugin.Open(modulePath)
}
