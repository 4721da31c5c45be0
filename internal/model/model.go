// Package model defines the immutable result objects produced by the search:
// Mip, Mice, Concept, Constellation, and SystemMip. Each type converts to and
// from a plain field mapping through the Mapper capability, so an external
// serialization layer can persist results without reflection. Results are
// value objects: constructed once, composed upward, never mutated.
package model

import (
	"math"

	"github.com/danielpatrickdp/phi-engine/internal/dist"
	"github.com/danielpatrickdp/phi-engine/internal/partition"
	"github.com/danielpatrickdp/phi-engine/internal/tensor"
)

// Direction selects the temporal orientation of a repertoire search.
type Direction string

const (
	Cause  Direction = "cause"
	Effect Direction = "effect"
)

// PhiEq compares two phi values within the numeric tolerance.
func PhiEq(a, b float64) bool {
	return math.Abs(a-b) < dist.Tolerance
}

// #region mip

// Mip is the minimum information partition of one mechanism/purview
// repertoire: the two repertoires compared, the winning partition, and the
// resulting distance.
type Mip struct {
	Phi           float64
	Direction     Direction
	Mechanism     []int
	Purview       []int
	Partition     partition.Pair
	Unpartitioned *tensor.Dense
	Partitioned   *tensor.Dense
}

func (m *Mip) TypeName() string { return "Mip" }

func (m *Mip) ToMapping() Mapping {
	return Mapping{
		"phi":           m.Phi,
		"direction":     string(m.Direction),
		"mechanism":     ints(m.Mechanism),
		"purview":       ints(m.Purview),
		"partition":     pairToMapping(m.Partition),
		"unpartitioned": tensorToMapping(m.Unpartitioned),
		"partitioned":   tensorToMapping(m.Partitioned),
	}
}

func mipFromMapping(mp Mapping) (Mapper, error) {
	var m Mip
	var err error
	if m.Phi, err = getFloat(mp, "phi"); err != nil {
		return nil, err
	}
	d, err := getString(mp, "direction")
	if err != nil {
		return nil, err
	}
	m.Direction = Direction(d)
	if m.Mechanism, err = getInts(mp, "mechanism"); err != nil {
		return nil, err
	}
	if m.Purview, err = getInts(mp, "purview"); err != nil {
		return nil, err
	}
	if m.Partition, err = pairFromMapping(mp, "partition"); err != nil {
		return nil, err
	}
	if m.Unpartitioned, err = tensorFromMapping(mp, "unpartitioned"); err != nil {
		return nil, err
	}
	if m.Partitioned, err = tensorFromMapping(mp, "partitioned"); err != nil {
		return nil, err
	}
	return &m, nil
}

// #endregion mip

// #region mice

// Mice is a maximally irreducible cause or effect: the best purview's MIP
// for one mechanism in one direction.
type Mice struct {
	Mip Mip
}

func (m *Mice) TypeName() string { return "Mice" }

func (m *Mice) ToMapping() Mapping {
	return Mapping{"mip": m.Mip.ToMapping()}
}

func miceFromMapping(mp Mapping) (Mapper, error) {
	inner, err := getMapping(mp, "mip")
	if err != nil {
		return nil, err
	}
	mip, err := mipFromMapping(inner)
	if err != nil {
		return nil, err
	}
	return &Mice{Mip: *mip.(*Mip)}, nil
}

// #endregion mice

// #region concept

// Concept aggregates the core cause and core effect of one mechanism. Its
// phi is the minimum of the two directional phis.
type Concept struct {
	Mechanism []int
	Phi       float64
	Cause     *Mice
	Effect    *Mice
}

func (c *Concept) TypeName() string { return "Concept" }

func (c *Concept) ToMapping() Mapping {
	return Mapping{
		"mechanism": ints(c.Mechanism),
		"phi":       c.Phi,
		"cause":     c.Cause.ToMapping(),
		"effect":    c.Effect.ToMapping(),
	}
}

func conceptFromMapping(mp Mapping) (Mapper, error) {
	var c Concept
	var err error
	if c.Mechanism, err = getInts(mp, "mechanism"); err != nil {
		return nil, err
	}
	if c.Phi, err = getFloat(mp, "phi"); err != nil {
		return nil, err
	}
	cm, err := getMapping(mp, "cause")
	if err != nil {
		return nil, err
	}
	cause, err := miceFromMapping(cm)
	if err != nil {
		return nil, err
	}
	c.Cause = cause.(*Mice)
	em, err := getMapping(mp, "effect")
	if err != nil {
		return nil, err
	}
	effect, err := miceFromMapping(em)
	if err != nil {
		return nil, err
	}
	c.Effect = effect.(*Mice)
	return &c, nil
}

// #endregion concept

// #region constellation

// Constellation is an ordered collection of concepts forming a candidate
// cause-effect structure.
type Constellation []*Concept

func (cs Constellation) TypeName() string { return "Constellation" }

func (cs Constellation) ToMapping() Mapping {
	concepts := make([]Mapping, len(cs))
	for i, c := range cs {
		concepts[i] = c.ToMapping()
	}
	return Mapping{"concepts": concepts}
}

func constellationFromMapping(mp Mapping) (Mapper, error) {
	raw, err := getMappings(mp, "concepts")
	if err != nil {
		return nil, err
	}
	cs := make(Constellation, len(raw))
	for i, cm := range raw {
		c, err := conceptFromMapping(cm)
		if err != nil {
			return nil, err
		}
		cs[i] = c.(*Concept)
	}
	return cs, nil
}

// #endregion constellation

// #region system-mip

// SystemMip is the system-level result: the subsystem's big Phi, the
// minimum-information cut, and the constellations compared.
type SystemMip struct {
	Phi           float64
	Cut           partition.Cut
	Nodes         []int
	State         []int
	Unpartitioned Constellation
	Partitioned   Constellation
}

func (s *SystemMip) TypeName() string { return "SystemMip" }

func (s *SystemMip) ToMapping() Mapping {
	return Mapping{
		"phi":           s.Phi,
		"cut_severed":   ints(s.Cut.Severed),
		"cut_intact":    ints(s.Cut.Intact),
		"nodes":         ints(s.Nodes),
		"state":         ints(s.State),
		"unpartitioned": s.Unpartitioned.ToMapping(),
		"partitioned":   s.Partitioned.ToMapping(),
	}
}

func systemMipFromMapping(mp Mapping) (Mapper, error) {
	var s SystemMip
	var err error
	if s.Phi, err = getFloat(mp, "phi"); err != nil {
		return nil, err
	}
	if s.Cut.Severed, err = getInts(mp, "cut_severed"); err != nil {
		return nil, err
	}
	if s.Cut.Intact, err = getInts(mp, "cut_intact"); err != nil {
		return nil, err
	}
	if s.Nodes, err = getInts(mp, "nodes"); err != nil {
		return nil, err
	}
	if s.State, err = getInts(mp, "state"); err != nil {
		return nil, err
	}
	um, err := getMapping(mp, "unpartitioned")
	if err != nil {
		return nil, err
	}
	u, err := constellationFromMapping(um)
	if err != nil {
		return nil, err
	}
	s.Unpartitioned = u.(Constellation)
	pm, err := getMapping(mp, "partitioned")
	if err != nil {
		return nil, err
	}
	p, err := constellationFromMapping(pm)
	if err != nil {
		return nil, err
	}
	s.Partitioned = p.(Constellation)
	return &s, nil
}

// #endregion system-mip

func ints(v []int) []int {
	return append([]int(nil), v...)
}
