package model

import (
	"errors"
	"fmt"

	"github.com/danielpatrickdp/phi-engine/internal/partition"
	"github.com/danielpatrickdp/phi-engine/internal/tensor"
)

// Mapping is the plain field-name → value form every result type converts
// to and from. External serialization layers work only with mappings.
type Mapping = map[string]any

// Mapper is the serialization capability: a result type exposes every field
// needed to reconstruct it by name.
type Mapper interface {
	TypeName() string
	ToMapping() Mapping
}

// ErrUnknownType is returned when a mapping names a type the registry does
// not know.
var ErrUnknownType = errors.New("unknown result type")

// #region registry

// Registry holds the reconstructors for known result types. It is built
// explicitly at startup; nothing is discovered at runtime.
type Registry struct {
	constructors map[string]func(Mapping) (Mapper, error)
}

// DefaultRegistry returns a registry with every result type registered.
func DefaultRegistry() *Registry {
	r := &Registry{constructors: make(map[string]func(Mapping) (Mapper, error))}
	r.register("Mip", mipFromMapping)
	r.register("Mice", miceFromMapping)
	r.register("Concept", conceptFromMapping)
	r.register("Constellation", constellationFromMapping)
	r.register("SystemMip", systemMipFromMapping)
	return r
}

func (r *Registry) register(name string, f func(Mapping) (Mapper, error)) {
	r.constructors[name] = f
}

// FromMapping reconstructs a result object of the named type.
func (r *Registry) FromMapping(typeName string, m Mapping) (Mapper, error) {
	f, ok := r.constructors[typeName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typeName)
	}
	return f(m)
}

// Known reports whether the registry can reconstruct the named type.
func (r *Registry) Known(typeName string) bool {
	_, ok := r.constructors[typeName]
	return ok
}

// #endregion registry

// #region field-helpers

func getFloat(m Mapping, key string) (float64, error) {
	v, ok := m[key].(float64)
	if !ok {
		return 0, fmt.Errorf("mapping field %q: want float64, have %T", key, m[key])
	}
	return v, nil
}

func getString(m Mapping, key string) (string, error) {
	v, ok := m[key].(string)
	if !ok {
		return "", fmt.Errorf("mapping field %q: want string, have %T", key, m[key])
	}
	return v, nil
}

func getInts(m Mapping, key string) ([]int, error) {
	if m[key] == nil {
		return nil, nil
	}
	v, ok := m[key].([]int)
	if !ok {
		return nil, fmt.Errorf("mapping field %q: want []int, have %T", key, m[key])
	}
	return append([]int(nil), v...), nil
}

func getMapping(m Mapping, key string) (Mapping, error) {
	v, ok := m[key].(Mapping)
	if !ok {
		return nil, fmt.Errorf("mapping field %q: want mapping, have %T", key, m[key])
	}
	return v, nil
}

func getMappings(m Mapping, key string) ([]Mapping, error) {
	if m[key] == nil {
		return nil, nil
	}
	v, ok := m[key].([]Mapping)
	if !ok {
		return nil, fmt.Errorf("mapping field %q: want []mapping, have %T", key, m[key])
	}
	return v, nil
}

// #endregion field-helpers

// #region value-codecs

func tensorToMapping(t *tensor.Dense) Mapping {
	if t == nil {
		return nil
	}
	return Mapping{"shape": t.Shape(), "data": t.Ravel()}
}

func tensorFromMapping(m Mapping, key string) (*tensor.Dense, error) {
	if m[key] == nil {
		return nil, nil
	}
	tm, err := getMapping(m, key)
	if err != nil {
		return nil, err
	}
	if len(tm) == 0 {
		return nil, nil
	}
	shape, err := getInts(tm, "shape")
	if err != nil {
		return nil, err
	}
	data, ok := tm["data"].([]float64)
	if !ok {
		return nil, fmt.Errorf("mapping field %q: tensor data missing", key)
	}
	return tensor.FromData(data, shape...)
}

func pairToMapping(p partition.Pair) Mapping {
	return Mapping{
		"part0_mechanism": ints(p.Part0.Mechanism),
		"part0_purview":   ints(p.Part0.Purview),
		"part1_mechanism": ints(p.Part1.Mechanism),
		"part1_purview":   ints(p.Part1.Purview),
	}
}

func pairFromMapping(m Mapping, key string) (partition.Pair, error) {
	pm, err := getMapping(m, key)
	if err != nil {
		return partition.Pair{}, err
	}
	var p partition.Pair
	if p.Part0.Mechanism, err = getInts(pm, "part0_mechanism"); err != nil {
		return p, err
	}
	if p.Part0.Purview, err = getInts(pm, "part0_purview"); err != nil {
		return p, err
	}
	if p.Part1.Mechanism, err = getInts(pm, "part1_mechanism"); err != nil {
		return p, err
	}
	if p.Part1.Purview, err = getInts(pm, "part1_purview"); err != nil {
		return p, err
	}
	return p, nil
}

// #endregion value-codecs
