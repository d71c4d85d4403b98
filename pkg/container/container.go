// Package container wires main's stores, services and handlers by constructor injection.
// A provider is keyed by the type it returns. Asking for an interface finds the one provider
// whose type implements it, and shares that provider's instance.
package container

import (
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strings"
	"sync"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Container holds providers and the shared instances built from them.
type Container struct {
	mu    sync.Mutex
	nodes map[reflect.Type]*node
}

type node struct {
	ctor   reflect.Value
	shared bool
	built  bool
	value  reflect.Value
}

func New() *Container {
	return &Container{nodes: make(map[reflect.Type]*node)}
}

// Provide registers ctor, a function returning T or (T, error). Its parameters are resolved
// from the container when T is first needed. A shared provider runs at most once.
func (c *Container) Provide(ctor any, shared bool) error {
	fn := reflect.ValueOf(ctor)
	out, err := providedType(fn)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, dup := c.nodes[out]; dup {
		return fmt.Errorf("container: %v is already provided", out)
	}
	c.nodes[out] = &node{ctor: fn, shared: shared}
	return nil
}

// MustProvide registers ctor as shared and panics if it cannot be registered.
func (c *Container) MustProvide(ctor any) {
	if err := c.Provide(ctor, true); err != nil {
		panic(err)
	}
}

func providedType(fn reflect.Value) (reflect.Type, error) {
	if fn.Kind() != reflect.Func {
		return nil, fmt.Errorf("container: provider must be a function, got %v", fn.Kind())
	}
	t := fn.Type()
	if t.NumOut() == 1 || (t.NumOut() == 2 && t.Out(1) == errorType) {
		return t.Out(0), nil
	}
	return nil, fmt.Errorf("container: provider %v must return T or (T, error)", t)
}

// Resolve stores an instance of *target's type in target.
func (c *Container) Resolve(target any) error {
	ptr := reflect.ValueOf(target)
	if ptr.Kind() != reflect.Pointer || ptr.IsNil() {
		return fmt.Errorf("container: Resolve needs a non-nil pointer")
	}
	v, err := c.build(ptr.Elem().Type(), nil)
	if err != nil {
		return err
	}
	ptr.Elem().Set(v)
	return nil
}

// Get resolves a T from c.
func Get[T any](c *Container) (T, error) {
	var v T
	err := c.Resolve(&v)
	return v, err
}

// Invoke calls fn with its parameters resolved from the container. When fn's last result is
// an error, that error is returned.
func (c *Container) Invoke(fn any) error {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return fmt.Errorf("container: Invoke needs a function, got %v", v.Kind())
	}
	args, err := c.args(v.Type(), nil)
	if err != nil {
		return err
	}
	return resultErr(v.Call(args))
}

func (c *Container) args(ft reflect.Type, path []reflect.Type) ([]reflect.Value, error) {
	args := make([]reflect.Value, ft.NumIn())
	for i := range args {
		v, err := c.build(ft.In(i), path)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

// build returns an instance of t. path lists the types being built above this one.
func (c *Container) build(t reflect.Type, path []reflect.Type) (reflect.Value, error) {
	key, n, err := c.lookup(t)
	if err != nil {
		return reflect.Value{}, err
	}
	if slices.Contains(path, key) {
		return reflect.Value{}, fmt.Errorf("container: dependency cycle %s", cycle(append(path, key)))
	}

	c.mu.Lock()
	if n.built {
		v := n.value
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	args, err := c.args(n.ctor.Type(), append(path, key))
	if err != nil {
		return reflect.Value{}, err
	}
	outs := n.ctor.Call(args)
	if err := resultErr(outs); err != nil {
		return reflect.Value{}, fmt.Errorf("container: build %v: %w", key, err)
	}
	v := outs[0]
	if n.shared {
		c.mu.Lock()
		if n.built {
			v = n.value
		} else {
			n.value, n.built = v, true
		}
		c.mu.Unlock()
	}
	return v, nil
}

// lookup finds the provider for t. An interface without its own provider matches the single
// provider whose type implements it.
func (c *Container) lookup(t reflect.Type) (reflect.Type, *node, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n, ok := c.nodes[t]; ok {
		return t, n, nil
	}
	var matches []reflect.Type
	if t.Kind() == reflect.Interface {
		for pt := range c.nodes {
			if pt.Implements(t) {
				matches = append(matches, pt)
			}
		}
	}
	switch len(matches) {
	case 0:
		return nil, nil, fmt.Errorf("container: no provider for %v", t)
	case 1:
		return matches[0], c.nodes[matches[0]], nil
	}
	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = m.String()
	}
	sort.Strings(names)
	return nil, nil, fmt.Errorf("container: %v is ambiguous: %s", t, strings.Join(names, ", "))
}

func resultErr(outs []reflect.Value) error {
	if len(outs) == 0 {
		return nil
	}
	last := outs[len(outs)-1]
	if last.Type() != errorType || last.IsNil() {
		return nil
	}
	return last.Interface().(error)
}

func cycle(path []reflect.Type) string {
	parts := make([]string, len(path))
	for i, t := range path {
		parts[i] = t.String()
	}
	return strings.Join(parts, " -> ")
}
