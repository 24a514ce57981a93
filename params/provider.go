package params

import "fmt"

// Provider is the opaque key/value access a model is configured from. Scopes
// nest; getters act on the current scope.
type Provider interface {
	Exists(name string) bool
	GetInt(name string) (int, error)
	GetDouble(name string) (float64, error)
	GetBool(name string) (bool, error)
	GetString(name string) (string, error)
	GetIntArray(name string) ([]int, error)
	GetDoubleArray(name string) ([]float64, error)
	PushScope(name string) error
	PopScope()
}

// MapProvider is a Provider backed by nested maps, primarily for tests and
// experiment drivers. Nested scopes are values of type map[string]any.
type MapProvider struct {
	stack []map[string]any
}

// NewMapProvider returns a MapProvider rooted at data.
func NewMapProvider(data map[string]any) *MapProvider {
	return &MapProvider{stack: []map[string]any{data}}
}

func (p *MapProvider) scope() map[string]any {
	return p.stack[len(p.stack)-1]
}

// Exists reports whether the current scope holds name.
func (p *MapProvider) Exists(name string) bool {
	_, ok := p.scope()[name]
	return ok
}

// PushScope enters the nested scope stored under name.
func (p *MapProvider) PushScope(name string) error {
	v, ok := p.scope()[name]
	if !ok {
		return fmt.Errorf("params: scope %q does not exist", name)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return fmt.Errorf("params: %q is not a scope", name)
	}
	p.stack = append(p.stack, m)
	return nil
}

// PopScope leaves the current scope. Popping the root scope panics.
func (p *MapProvider) PopScope() {
	if len(p.stack) == 1 {
		panic("params: pop on root scope")
	}
	p.stack = p.stack[:len(p.stack)-1]
}

// GetInt returns the integer stored under name.
func (p *MapProvider) GetInt(name string) (int, error) {
	switch v := p.scope()[name].(type) {
	case int:
		return v, nil
	case float64:
		return int(v), nil
	}
	return 0, fmt.Errorf("params: %q is not an int", name)
}

// GetDouble returns the float stored under name.
func (p *MapProvider) GetDouble(name string) (float64, error) {
	switch v := p.scope()[name].(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	}
	return 0, fmt.Errorf("params: %q is not a double", name)
}

// GetBool returns the boolean stored under name.
func (p *MapProvider) GetBool(name string) (bool, error) {
	if v, ok := p.scope()[name].(bool); ok {
		return v, nil
	}
	return false, fmt.Errorf("params: %q is not a bool", name)
}

// GetString returns the string stored under name.
func (p *MapProvider) GetString(name string) (string, error) {
	if v, ok := p.scope()[name].(string); ok {
		return v, nil
	}
	return "", fmt.Errorf("params: %q is not a string", name)
}

// GetIntArray returns the integer array stored under name. A scalar int is
// promoted to a one-element array.
func (p *MapProvider) GetIntArray(name string) ([]int, error) {
	switch v := p.scope()[name].(type) {
	case []int:
		return v, nil
	case int:
		return []int{v}, nil
	}
	return nil, fmt.Errorf("params: %q is not an int array", name)
}

// GetDoubleArray returns the float array stored under name. A scalar is
// promoted to a one-element array.
func (p *MapProvider) GetDoubleArray(name string) ([]float64, error) {
	switch v := p.scope()[name].(type) {
	case []float64:
		return v, nil
	case float64:
		return []float64{v}, nil
	case int:
		return []float64{float64(v)}, nil
	}
	return nil, fmt.Errorf("params: %q is not a double array", name)
}
