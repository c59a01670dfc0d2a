/*
 * Copyright 2025 quarrydb.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// DefaultAdapterName is the conventional name of the primary adapter.
const DefaultAdapterName = "primary"

// Registry catalogs named adapter instances and tracks a default adapter
// per backend kind. Construct one at process start and pass it down;
// mutating calls belong to startup, shutdown, and test setup, not
// steady-state request handling.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
	defaults map[DatabaseType]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[string]Adapter),
		defaults: make(map[DatabaseType]string),
	}
}

type registerOptions struct {
	asDefault bool
	replace   bool
}

// RegisterOption customizes Register behavior.
type RegisterOption func(*registerOptions)

// AsDefault makes the registered adapter the default for its backend kind
// even when one already exists.
func AsDefault() RegisterOption {
	return func(o *registerOptions) { o.asDefault = true }
}

// Replace allows Register to overwrite an existing name.
func Replace() RegisterOption {
	return func(o *registerOptions) { o.replace = true }
}

// Register adds an adapter under a unique name. The first adapter of a
// backend kind becomes that kind's default unless a later registration
// claims it with AsDefault.
func (r *Registry) Register(name string, adapter Adapter, opts ...RegisterOption) error {
	var o registerOptions
	for _, opt := range opts {
		opt(&o)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if displaced, exists := r.adapters[name]; exists {
		if !o.replace {
			return &DuplicateAdapterError{Name: name}
		}
		// A replacement of a different kind must not leave the old
		// kind's default pointing at this name.
		if r.defaults[displaced.DatabaseType()] == name {
			delete(r.defaults, displaced.DatabaseType())
		}
	}
	r.adapters[name] = adapter
	if _, hasDefault := r.defaults[adapter.DatabaseType()]; o.asDefault || !hasDefault {
		r.defaults[adapter.DatabaseType()] = name
	}
	return nil
}

// Unregister removes and returns the named adapter, or nil if absent. If
// it was its kind's default, the default is cleared.
func (r *Registry) Unregister(name string) Adapter {
	r.mu.Lock()
	defer r.mu.Unlock()

	adapter, ok := r.adapters[name]
	if !ok {
		return nil
	}
	delete(r.adapters, name)
	if r.defaults[adapter.DatabaseType()] == name {
		delete(r.defaults, adapter.DatabaseType())
	}
	return adapter
}

// Get returns the named adapter or an AdapterNotFoundError.
func (r *Registry) Get(name string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapter, ok := r.adapters[name]
	if !ok {
		return nil, &AdapterNotFoundError{Name: name}
	}
	return adapter, nil
}

// GetDefault returns the default adapter for a backend kind, or an
// AdapterNotFoundError when no adapter of that kind is registered.
func (r *Registry) GetDefault(t DatabaseType) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name, ok := r.defaults[t]
	if !ok {
		return nil, &AdapterNotFoundError{Name: "default:" + t.String()}
	}
	return r.adapters[name], nil
}

// GetTyped narrows a named lookup to a concrete adapter type, failing with
// an AdapterTypeError on mismatch.
func GetTyped[T Adapter](r *Registry, name string) (T, error) {
	var zero T
	adapter, err := r.Get(name)
	if err != nil {
		return zero, err
	}
	typed, ok := adapter.(T)
	if !ok {
		return zero, &AdapterTypeError{
			Name: name,
			Want: fmt.Sprintf("%T", zero),
			Got:  fmt.Sprintf("%T", adapter),
		}
	}
	return typed, nil
}

func resolve(r *Registry, name string, t DatabaseType) (Adapter, error) {
	if name != "" {
		return r.Get(name)
	}
	return r.GetDefault(t)
}

// GetSQL returns the named SQL adapter, or the kind default when name is
// empty.
func (r *Registry) GetSQL(name string) (*SQLAdapter, error) {
	adapter, err := resolve(r, name, DatabaseTypeSQL)
	if err != nil {
		return nil, err
	}
	typed, ok := adapter.(*SQLAdapter)
	if !ok {
		return nil, &AdapterTypeError{Name: name, Want: "*database.SQLAdapter", Got: fmt.Sprintf("%T", adapter)}
	}
	return typed, nil
}

// GetDocument returns the named document adapter, or the kind default when
// name is empty.
func (r *Registry) GetDocument(name string) (*MongoAdapter, error) {
	adapter, err := resolve(r, name, DatabaseTypeDocument)
	if err != nil {
		return nil, err
	}
	typed, ok := adapter.(*MongoAdapter)
	if !ok {
		return nil, &AdapterTypeError{Name: name, Want: "*database.MongoAdapter", Got: fmt.Sprintf("%T", adapter)}
	}
	return typed, nil
}

// GetKV returns the named key-value adapter, or the kind default when name
// is empty.
func (r *Registry) GetKV(name string) (*RedisAdapter, error) {
	adapter, err := resolve(r, name, DatabaseTypeKeyValue)
	if err != nil {
		return nil, err
	}
	typed, ok := adapter.(*RedisAdapter)
	if !ok {
		return nil, &AdapterTypeError{Name: name, Want: "*database.RedisAdapter", Got: fmt.Sprintf("%T", adapter)}
	}
	return typed, nil
}

// Has reports whether a name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.adapters[name]
	return ok
}

// HasType reports whether any adapter of the backend kind is registered.
func (r *Registry) HasType(t DatabaseType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.defaults[t]
	return ok
}

// Names returns a sorted snapshot of registered adapter names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered adapters.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.adapters)
}

// Each calls fn for every (name, adapter) pair in name order, stopping
// early when fn returns false.
func (r *Registry) Each(fn func(name string, adapter Adapter) bool) {
	r.mu.RLock()
	snapshot := make(map[string]Adapter, len(r.adapters))
	for name, adapter := range r.adapters {
		snapshot[name] = adapter
	}
	r.mu.RUnlock()

	names := make([]string, 0, len(snapshot))
	for name := range snapshot {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !fn(name, snapshot[name]) {
			return
		}
	}
}

// ConnectAll connects every registered adapter sequentially. The first
// failure aborts the sequence and is returned; adapters already connected
// stay connected (fail-fast, known limitation).
func (r *Registry) ConnectAll(ctx context.Context) error {
	var firstErr error
	r.Each(func(name string, adapter Adapter) bool {
		if err := adapter.Connect(ctx); err != nil {
			firstErr = fmt.Errorf("connect %q: %w", name, err)
			return false
		}
		return true
	})
	return firstErr
}

// DisconnectAll disconnects every registered adapter sequentially with the
// same fail-fast behavior as ConnectAll.
func (r *Registry) DisconnectAll(ctx context.Context) error {
	var firstErr error
	r.Each(func(name string, adapter Adapter) bool {
		if err := adapter.Disconnect(ctx); err != nil {
			firstErr = fmt.Errorf("disconnect %q: %w", name, err)
			return false
		}
		return true
	})
	return firstErr
}

// HealthCheckAll probes every registered adapter and never fails; each
// adapter's failures are absorbed into false independently.
func (r *Registry) HealthCheckAll(ctx context.Context) map[string]bool {
	result := make(map[string]bool)
	r.Each(func(name string, adapter Adapter) bool {
		result[name] = adapter.HealthCheck(ctx)
		return true
	})
	return result
}

// Clear drops all registrations without disconnecting them. Callers must
// disconnect first; this is a bookkeeping reset for test harnesses.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters = make(map[string]Adapter)
	r.defaults = make(map[DatabaseType]string)
}
