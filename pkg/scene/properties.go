package scene

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/df07/lumen/pkg/core"
)

// Configuration errors returned while loading a scene
var (
	ErrUnknownType     = errors.New("unknown type")
	ErrMissingProperty = errors.New("missing property")
	ErrInvalidProperty = errors.New("invalid property")
)

// Properties holds the parameters of one plugin description as decoded
// from JSON. Getters record which names were read so unused parameters
// can be reported.
type Properties struct {
	path    string
	values  map[string]any
	queried map[string]bool
}

// NewProperties wraps decoded values; path prefixes error messages
func NewProperties(path string, values map[string]any) *Properties {
	if values == nil {
		values = map[string]any{}
	}
	return &Properties{path: path, values: values, queried: map[string]bool{}}
}

// Path returns the location of these properties in the description
func (p *Properties) Path() string {
	return p.path
}

// Set assigns a value, mostly used when building descriptions in code
func (p *Properties) Set(name string, value any) *Properties {
	p.values[name] = value
	return p
}

func (p *Properties) Has(name string) bool {
	_, ok := p.values[name]
	return ok
}

func (p *Properties) lookup(name string) (any, bool) {
	v, ok := p.values[name]
	if ok {
		p.queried[name] = true
	}
	return v, ok
}

func (p *Properties) missing(name string) error {
	return fmt.Errorf("%s.%s: %w", p.path, name, ErrMissingProperty)
}

func (p *Properties) invalid(name string, format string, args ...any) error {
	return fmt.Errorf("%s.%s: %w: %s", p.path, name, ErrInvalidProperty, fmt.Sprintf(format, args...))
}

// Unused returns the names that were never read, sorted
func (p *Properties) Unused() []string {
	var names []string
	for name := range p.values {
		if !p.queried[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}

// Float returns a number, or def when the property is absent
func (p *Properties) Float(name string, def float64) (float64, error) {
	v, ok := p.lookup(name)
	if !ok {
		return def, nil
	}
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, p.invalid(name, "expected a number, got %v", v)
	}
	return f, nil
}

// RequiredFloat returns a number that must be present
func (p *Properties) RequiredFloat(name string) (float64, error) {
	if !p.Has(name) {
		return 0, p.missing(name)
	}
	return p.Float(name, 0)
}

// PositiveFloat returns a number that must be greater than zero
func (p *Properties) PositiveFloat(name string, def float64) (float64, error) {
	f, err := p.Float(name, def)
	if err != nil {
		return 0, err
	}
	if f <= 0 {
		return 0, p.invalid(name, "must be positive, got %g", f)
	}
	return f, nil
}

// Int returns an integer, or def when the property is absent
func (p *Properties) Int(name string, def int) (int, error) {
	v, ok := p.lookup(name)
	if !ok {
		return def, nil
	}
	f, ok := toFloat(v)
	if !ok || f != math.Trunc(f) {
		return 0, p.invalid(name, "expected an integer, got %v", v)
	}
	return int(f), nil
}

func (p *Properties) Bool(name string, def bool) (bool, error) {
	v, ok := p.lookup(name)
	if !ok {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, p.invalid(name, "expected a boolean, got %v", v)
	}
	return b, nil
}

func (p *Properties) String(name string, def string) (string, error) {
	v, ok := p.lookup(name)
	if !ok {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", p.invalid(name, "expected a string, got %v", v)
	}
	return s, nil
}

// Vec3 accepts a three-element array or a single number for a grey value
func (p *Properties) Vec3(name string, def core.Vec3) (core.Vec3, error) {
	v, ok := p.lookup(name)
	if !ok {
		return def, nil
	}
	return p.toVec3(name, v)
}

// RequiredVec3 returns a vector that must be present
func (p *Properties) RequiredVec3(name string) (core.Vec3, error) {
	if !p.Has(name) {
		return core.Vec3{}, p.missing(name)
	}
	return p.Vec3(name, core.Vec3{})
}

func (p *Properties) toVec3(name string, v any) (core.Vec3, error) {
	if f, ok := toFloat(v); ok {
		return core.Splat(f), nil
	}
	switch x := v.(type) {
	case core.Vec3:
		return x, nil
	case []any:
		fs, err := p.floats(name, x)
		if err != nil {
			return core.Vec3{}, err
		}
		if len(fs) != 3 {
			return core.Vec3{}, p.invalid(name, "expected 3 components, got %d", len(fs))
		}
		return core.NewVec3(fs[0], fs[1], fs[2]), nil
	case []float64:
		if len(x) != 3 {
			return core.Vec3{}, p.invalid(name, "expected 3 components, got %d", len(x))
		}
		return core.NewVec3(x[0], x[1], x[2]), nil
	}
	return core.Vec3{}, p.invalid(name, "expected a vector, got %v", v)
}

func (p *Properties) floats(name string, values []any) ([]float64, error) {
	out := make([]float64, len(values))
	for i, e := range values {
		f, ok := toFloat(e)
		if !ok {
			return nil, p.invalid(name, "element %d is not a number", i)
		}
		out[i] = f
	}
	return out, nil
}

// Floats returns a flat list of numbers, nil when absent
func (p *Properties) Floats(name string) ([]float64, error) {
	v, ok := p.lookup(name)
	if !ok {
		return nil, nil
	}
	switch x := v.(type) {
	case []float64:
		return x, nil
	case []any:
		return p.floats(name, x)
	}
	return nil, p.invalid(name, "expected a list of numbers")
}

// Vec3s reads a flat list of numbers as packed xyz triples
func (p *Properties) Vec3s(name string) ([]core.Vec3, error) {
	fs, err := p.Floats(name)
	if err != nil || fs == nil {
		return nil, err
	}
	if len(fs)%3 != 0 {
		return nil, p.invalid(name, "length %d is not a multiple of 3", len(fs))
	}
	out := make([]core.Vec3, len(fs)/3)
	for i := range out {
		out[i] = core.NewVec3(fs[3*i], fs[3*i+1], fs[3*i+2])
	}
	return out, nil
}

// Vec2s reads a flat list of numbers as packed uv pairs
func (p *Properties) Vec2s(name string) ([]core.Vec2, error) {
	fs, err := p.Floats(name)
	if err != nil || fs == nil {
		return nil, err
	}
	if len(fs)%2 != 0 {
		return nil, p.invalid(name, "length %d is not a multiple of 2", len(fs))
	}
	out := make([]core.Vec2, len(fs)/2)
	for i := range out {
		out[i] = core.NewVec2(fs[2*i], fs[2*i+1])
	}
	return out, nil
}

// Ints reads a list of non-negative integers
func (p *Properties) Ints(name string) ([]int, error) {
	fs, err := p.Floats(name)
	if err != nil || fs == nil {
		return nil, err
	}
	out := make([]int, len(fs))
	for i, f := range fs {
		if f != math.Trunc(f) || f < 0 {
			return nil, p.invalid(name, "element %d is not a non-negative integer", i)
		}
		out[i] = int(f)
	}
	return out, nil
}

// Plugin returns a nested plugin description, or nil when absent
func (p *Properties) Plugin(name string) (*PluginDescription, error) {
	v, ok := p.lookup(name)
	if !ok {
		return nil, nil
	}
	switch x := v.(type) {
	case *PluginDescription:
		return x, nil
	case map[string]any:
		return newPluginDescription(p.path+"."+name, x)
	}
	return nil, p.invalid(name, "expected an object")
}

// Reference returns either a nested plugin or the name of a previously
// declared one. Exactly one of the results is set on success.
func (p *Properties) Reference(name string) (*PluginDescription, string, error) {
	v, ok := p.values[name]
	if !ok {
		return nil, "", p.missing(name)
	}
	if s, isString := v.(string); isString {
		p.queried[name] = true
		return nil, s, nil
	}
	d, err := p.Plugin(name)
	return d, "", err
}
