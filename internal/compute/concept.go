package compute

import (
	"fmt"
	"math"
	"sort"

	"github.com/danielpatrickdp/phi-engine/internal/convention"
	"github.com/danielpatrickdp/phi-engine/internal/dist"
	"github.com/danielpatrickdp/phi-engine/internal/model"
	"github.com/danielpatrickdp/phi-engine/internal/partition"
	"github.com/danielpatrickdp/phi-engine/internal/tensor"
)

// #region core-cause-effect

// CoreCause returns the maximally irreducible cause of a mechanism: the
// purview whose MIP has the largest phi. Ties prefer the larger purview,
// then the earliest in powerset order.
func (e *Engine) CoreCause(mechanism []int) (*model.Mice, error) {
	return e.core(model.Cause, mechanism)
}

// CoreEffect returns the maximally irreducible effect of a mechanism.
func (e *Engine) CoreEffect(mechanism []int) (*model.Mice, error) {
	return e.core(model.Effect, mechanism)
}

func (e *Engine) core(dir model.Direction, mechanism []int) (*model.Mice, error) {
	var best *model.Mip
	for _, purview := range convention.Powerset(e.sub.Nodes()) {
		if len(purview) == 0 {
			continue
		}
		mip, err := e.FindMip(dir, mechanism, purview)
		if err != nil {
			return nil, err
		}
		switch {
		case best == nil:
			best = mip
		case mip.Phi > best.Phi+e.precision:
			best = mip
		case math.Abs(mip.Phi-best.Phi) <= e.precision && len(mip.Purview) > len(best.Purview):
			best = mip
		}
	}
	if best == nil {
		return nil, fmt.Errorf("no purview available for mechanism %v", mechanism)
	}
	return &model.Mice{Mip: *best}, nil
}

// #endregion core-cause-effect

// #region concept

// Concept assembles the core cause and core effect of one mechanism. The
// concept's phi is the minimum of the two directional phis.
func (e *Engine) Concept(mechanism []int) (*model.Concept, error) {
	cause, err := e.CoreCause(mechanism)
	if err != nil {
		return nil, err
	}
	effect, err := e.CoreEffect(mechanism)
	if err != nil {
		return nil, err
	}
	phi := cause.Mip.Phi
	if effect.Mip.Phi < phi {
		phi = effect.Mip.Phi
	}
	return &model.Concept{
		Mechanism: ints(mechanism),
		Phi:       phi,
		Cause:     cause,
		Effect:    effect,
	}, nil
}

// Constellation evaluates every non-empty mechanism and returns the
// concepts with phi > 0, in powerset order.
func (e *Engine) Constellation() (model.Constellation, error) {
	constellation := model.Constellation{}
	for _, mechanism := range convention.Powerset(e.sub.Nodes()) {
		if len(mechanism) == 0 {
			continue
		}
		concept, err := e.Concept(mechanism)
		if err != nil {
			return nil, err
		}
		if concept.Phi > 0 {
			constellation = append(constellation, concept)
		}
	}
	return constellation, nil
}

// #endregion concept

// #region system

// SystemMip runs the MIP search one level up: over directed system cuts,
// scoring each cut by the distance between the unpartitioned and cut
// constellations. Big Phi is the distance under the best cut. A subsystem
// of fewer than two nodes admits no cut and is trivially reducible.
func (e *Engine) SystemMip() (*model.SystemMip, error) {
	unpartitioned, err := e.Constellation()
	if err != nil {
		return nil, err
	}
	nodes := e.sub.Nodes()
	result := &model.SystemMip{
		Nodes:         nodes,
		State:         e.sub.State(),
		Unpartitioned: unpartitioned,
	}
	if len(nodes) < 2 {
		result.Partitioned = unpartitioned
		return result, nil
	}

	cuts := partition.SystemCuts(nodes)
	// Tie-break order: smaller severed sets first, canonical order within
	// equal sizes.
	sort.SliceStable(cuts, func(i, j int) bool {
		return len(cuts[i].Severed) < len(cuts[j].Severed)
	})

	best := -1
	var bestPhi float64
	var bestConstellation model.Constellation
	for i, cut := range cuts {
		cutEngine := e.forSubsystem(e.sub.WithCut(cut))
		cutConstellation, err := cutEngine.Constellation()
		if err != nil {
			return nil, err
		}
		d, err := e.constellationDistance(unpartitioned, cutConstellation)
		if err != nil {
			return nil, err
		}
		if best == -1 || d < bestPhi-e.precision {
			best = i
			bestPhi = d
			bestConstellation = cutConstellation
		}
		if bestPhi < e.precision {
			// Zero is the global minimum; the scan visits cuts in
			// tie-break order, so this cut is the final selection.
			break
		}
	}
	if bestPhi < e.precision {
		bestPhi = 0
	}
	result.Phi = bestPhi
	result.Cut = cuts[best]
	result.Partitioned = bestConstellation
	return result, nil
}

// #endregion system

// #region constellation-distance

// constellationDistance compares two candidate cause-effect structures.
// Concepts are matched by mechanism; a matched pair contributes the EMD
// between its cause repertoires plus the EMD between its effect
// repertoires, each expanded over the whole subsystem so purviews are
// comparable. A concept with no match is compared against the null concept
// (max-entropy cause, unconstrained effect). This is deliberately a
// different comparison than the repertoire distance of the mechanism-level
// search.
func (e *Engine) constellationDistance(a, b model.Constellation) (float64, error) {
	matched := make(map[string]*model.Concept, len(b))
	for _, c := range b {
		matched[mechKey(c.Mechanism)] = c
	}
	total := 0.0
	for _, ca := range a {
		cb, ok := matched[mechKey(ca.Mechanism)]
		if ok {
			delete(matched, mechKey(ca.Mechanism))
			d, err := e.conceptDistance(ca, cb)
			if err != nil {
				return 0, err
			}
			total += d
			continue
		}
		d, err := e.nullConceptDistance(ca)
		if err != nil {
			return 0, err
		}
		total += d
	}
	// Concepts that exist only under the cut are destroyed structure too.
	for _, cb := range b {
		if _, stillUnmatched := matched[mechKey(cb.Mechanism)]; !stillUnmatched {
			continue
		}
		d, err := e.nullConceptDistance(cb)
		if err != nil {
			return 0, err
		}
		total += d
	}
	return total, nil
}

func (e *Engine) conceptDistance(a, b *model.Concept) (float64, error) {
	causeD, err := e.distance(
		e.expand(a.Cause.Mip.Unpartitioned),
		e.expand(b.Cause.Mip.Unpartitioned),
	)
	if err != nil {
		return 0, err
	}
	effectD, err := e.distance(
		e.expand(a.Effect.Mip.Unpartitioned),
		e.expand(b.Effect.Mip.Unpartitioned),
	)
	if err != nil {
		return 0, err
	}
	return causeD + effectD, nil
}

func (e *Engine) nullConceptDistance(c *model.Concept) (float64, error) {
	nodes := e.sub.Nodes()
	n := e.sub.Network().Size()
	nullCause := dist.MaxEntropy(nodes, n)
	nullEffect, err := e.repertoire(model.Effect, nil, nodes)
	if err != nil {
		return 0, err
	}
	causeD, err := e.distance(e.expand(c.Cause.Mip.Unpartitioned), nullCause)
	if err != nil {
		return 0, err
	}
	effectD, err := e.distance(e.expand(c.Effect.Mip.Unpartitioned), nullEffect)
	if err != nil {
		return 0, err
	}
	return causeD + effectD, nil
}

// expand broadcasts a repertoire over the whole subsystem: nodes absent
// from its purview are unconstrained and spread uniformly. Mass is
// preserved.
func (e *Engine) expand(rep *tensor.Dense) *tensor.Dense {
	shape := rep.Shape()
	var missing []int
	for _, i := range e.sub.Nodes() {
		if shape[i] == 1 {
			missing = append(missing, i)
		}
	}
	if len(missing) == 0 {
		return rep
	}
	out, err := rep.Mul(dist.MaxEntropy(missing, e.sub.Network().Size()))
	if err != nil {
		panic(err) // shapes agree by construction
	}
	return out
}

func mechKey(mechanism []int) string {
	return fmt.Sprint(mechanism)
}

// #endregion constellation-distance
