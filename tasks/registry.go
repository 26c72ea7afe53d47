package tasks

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	ErrInvalidPath       = errors.New("invalid task path")
	ErrModuleNotFound    = errors.New("task module not found")
	ErrAttributeNotFound = errors.New("task attribute not found")
)

// ErrorKind classifies a ConfigurationError
type ErrorKind int

const (
	KindInvalidPath ErrorKind = iota
	KindModuleNotFound
	KindAttributeNotFound
)

// ConfigurationError reports a task path that cannot be resolved. It is never
// transient and should not be retried.
type ConfigurationError struct {
	Kind   ErrorKind
	Path   string
	Module string
	Attr   string
}

func (e *ConfigurationError) Error() string {
	switch e.Kind {
	case KindModuleNotFound:
		return fmt.Sprintf("error importing task module %s: no such module", e.Module)
	case KindAttributeNotFound:
		return fmt.Sprintf("task module %q does not define a %q task", e.Module, e.Attr)
	default:
		return fmt.Sprintf("task path %q must be of the form module.Task", e.Path)
	}
}

func (e *ConfigurationError) Unwrap() error {
	switch e.Kind {
	case KindModuleNotFound:
		return ErrModuleNotFound
	case KindAttributeNotFound:
		return ErrAttributeNotFound
	default:
		return ErrInvalidPath
	}
}

// Factory builds the task handle registered under a path
type Factory func() Handle

// Registry maps dotted task paths such as "search.tasks.UpdateIndex" to
// factories. The part before the last dot is the module, the rest is the
// task name within it.
type Registry struct {
	mutex   sync.RWMutex
	modules map[string]map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{
		modules: make(map[string]map[string]Factory),
	}
}

// Register adds a factory under path. It panics on a malformed path, a nil
// factory or a duplicate, since those can only be programming errors at
// process start.
func (r *Registry) Register(path string, factory Factory) {
	module, attr, err := splitPath(path)
	if err != nil {
		panic(err.Error())
	}
	if factory == nil {
		panic(fmt.Sprintf("nil task factory for %s", path))
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	attrs, ok := r.modules[module]
	if !ok {
		attrs = make(map[string]Factory)
		r.modules[module] = attrs
	}
	if _, dup := attrs[attr]; dup {
		panic(fmt.Sprintf("task %s is already registered", path))
	}
	attrs[attr] = factory
}

// Resolve returns a fresh handle for path
func (r *Registry) Resolve(path string) (Handle, error) {
	module, attr, err := splitPath(path)
	if err != nil {
		return nil, err
	}

	r.mutex.RLock()
	attrs, ok := r.modules[module]
	factory := attrs[attr]
	r.mutex.RUnlock()

	if !ok {
		return nil, &ConfigurationError{Kind: KindModuleNotFound, Path: path, Module: module, Attr: attr}
	}
	if factory == nil {
		return nil, &ConfigurationError{Kind: KindAttributeNotFound, Path: path, Module: module, Attr: attr}
	}

	return factory(), nil
}

// Paths lists every registered task path in sorted order
func (r *Registry) Paths() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var paths []string
	for module, attrs := range r.modules {
		for attr := range attrs {
			paths = append(paths, module+"."+attr)
		}
	}
	sort.Strings(paths)
	return paths
}

func splitPath(path string) (string, string, error) {
	idx := strings.LastIndex(path, ".")
	if idx <= 0 || idx == len(path)-1 {
		return "", "", &ConfigurationError{Kind: KindInvalidPath, Path: path}
	}
	return path[:idx], path[idx+1:], nil
}
