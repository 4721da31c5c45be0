// Package compute runs the minimum information partition searches: over
// mechanism/purview partitions for small phi, over purviews for core causes
// and effects, and over system cuts for big Phi. Partition scoring is
// data-parallel; selection is deterministic regardless of evaluation order.
package compute

import (
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/phi-engine/internal/cache"
	"github.com/danielpatrickdp/phi-engine/internal/dist"
	"github.com/danielpatrickdp/phi-engine/internal/emd"
	"github.com/danielpatrickdp/phi-engine/internal/model"
	"github.com/danielpatrickdp/phi-engine/internal/partition"
	"github.com/danielpatrickdp/phi-engine/internal/subsystem"
	"github.com/danielpatrickdp/phi-engine/internal/tensor"
)

// #region engine

// Config carries the engine's injected collaborators and tuning knobs.
type Config struct {
	Cache     *cache.Cache // nil disables memoization; results are unchanged
	Store     *cache.Store // optional persistent backing for cost matrices
	Precision float64      // phi comparison tolerance; 0 means dist.Tolerance
	Workers   int          // parallel partition evaluations; <=1 is serial
}

// Engine evaluates one subsystem. It holds no mutable state of its own:
// the injected cache is the only shared resource.
type Engine struct {
	sub       *subsystem.Subsystem
	subKey    string
	cache     *cache.Cache
	store     *cache.Store
	precision float64
	workers   int
}

// New wires an engine for the given subsystem.
func New(sub *subsystem.Subsystem, cfg Config) *Engine {
	precision := cfg.Precision
	if precision <= 0 {
		precision = dist.Tolerance
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &Engine{
		sub:       sub,
		subKey:    subsystemKey(sub),
		cache:     cfg.Cache,
		store:     cfg.Store,
		precision: precision,
		workers:   workers,
	}
}

// Subsystem returns the subsystem under evaluation.
func (e *Engine) Subsystem() *subsystem.Subsystem { return e.sub }

// forSubsystem derives an engine over a cut subsystem, sharing the caches.
func (e *Engine) forSubsystem(sub *subsystem.Subsystem) *Engine {
	return &Engine{
		sub:       sub,
		subKey:    subsystemKey(sub),
		cache:     e.cache,
		store:     e.store,
		precision: e.precision,
		workers:   e.workers,
	}
}

func subsystemKey(sub *subsystem.Subsystem) string {
	var flat []int
	for _, row := range sub.CM() {
		flat = append(flat, row...)
	}
	return cache.Digest("subsystem", sub.State(), sub.Nodes(), flat)
}

// #endregion engine

// #region repertoires

// repertoire computes (or recalls) the cause or effect repertoire for a
// mechanism/purview pair.
func (e *Engine) repertoire(dir model.Direction, mechanism, purview []int) (*tensor.Dense, error) {
	key := cache.Digest("repertoire", e.subKey, string(dir), mechanism, purview)
	if v, ok := e.cache.Get(key); ok {
		return v.(*tensor.Dense), nil
	}
	var rep *tensor.Dense
	var err error
	if dir == model.Cause {
		rep, err = e.sub.CauseRepertoire(mechanism, purview)
	} else {
		rep, err = e.sub.EffectRepertoire(mechanism, purview)
	}
	if err != nil {
		return nil, err
	}
	e.cache.Put(key, rep)
	return rep, nil
}

// partitionedRepertoire is the product of the two parts' independent
// repertoires.
func (e *Engine) partitionedRepertoire(dir model.Direction, pair partition.Pair) (*tensor.Dense, error) {
	r0, err := e.repertoire(dir, pair.Part0.Mechanism, pair.Part0.Purview)
	if err != nil {
		return nil, err
	}
	r1, err := e.repertoire(dir, pair.Part1.Mechanism, pair.Part1.Purview)
	if err != nil {
		return nil, err
	}
	return r0.Mul(r1)
}

// hammingCost returns the memoized Hamming cost matrix for n nodes,
// consulting the persistent store before recomputing.
func (e *Engine) hammingCost(n int) ([][]float64, error) {
	key := cache.Digest("hamming", n)
	if v, ok := e.cache.Get(key); ok {
		return v.([][]float64), nil
	}
	if e.store != nil {
		if t, ok, err := e.store.GetTensor(key); err != nil {
			return nil, err
		} else if ok {
			m := costFromTensor(t)
			e.cache.Put(key, m)
			return m, nil
		}
	}
	m := emd.HammingMatrix(n)
	e.cache.Put(key, m)
	if e.store != nil {
		if err := e.store.PutTensor(key, costToTensor(m)); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (e *Engine) distance(d1, d2 *tensor.Dense) (float64, error) {
	cost, err := e.hammingCost(d1.Squeeze().Rank())
	if err != nil {
		return 0, err
	}
	return emd.HammingWithCost(d1, d2, cost)
}

func costToTensor(m [][]float64) *tensor.Dense {
	n := len(m)
	t := tensor.New(n, n)
	for i := range m {
		for j, v := range m[i] {
			t.Set(v, i, j)
		}
	}
	return t
}

func costFromTensor(t *tensor.Dense) [][]float64 {
	n := t.Shape()[0]
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
		for j := range m[i] {
			m[i][j] = t.At(i, j)
		}
	}
	return m
}

// #endregion repertoires

// #region mip-search

// FindMip returns the minimum information partition for one mechanism and
// purview in one direction. Candidates are scored in tie-break order
// (smaller first group before larger, canonical enumeration order within
// equal sizes), so the first zero-distance candidate is already the final
// selection and short-circuits serial evaluation.
func (e *Engine) FindMip(dir model.Direction, mechanism, purview []int) (*model.Mip, error) {
	unpartitioned, err := e.repertoire(dir, mechanism, purview)
	if err != nil {
		return nil, err
	}
	if err := subsystem.CheckRepertoire(unpartitioned, e.precision); err != nil {
		return nil, fmt.Errorf("unpartitioned %s repertoire of %v over %v: %w", dir, mechanism, purview, err)
	}

	candidates := partition.MipBipartitions(mechanism, purview)
	if len(candidates) == 0 {
		// Nothing to partition: the mechanism is trivially reducible.
		return &model.Mip{
			Phi:           0,
			Direction:     dir,
			Mechanism:     ints(mechanism),
			Purview:       ints(purview),
			Unpartitioned: unpartitioned,
			Partitioned:   unpartitioned,
		}, nil
	}
	// Stable sort by first-group size puts candidates in tie-break order.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Part0.Size() < candidates[j].Part0.Size()
	})

	type scored struct {
		phi  float64
		rep  *tensor.Dense
		done bool
	}
	results := make([]scored, len(candidates))
	score := func(i int) error {
		rep, err := e.partitionedRepertoire(dir, candidates[i])
		if err != nil {
			return err
		}
		if err := subsystem.CheckRepertoire(rep, e.precision); err != nil {
			return fmt.Errorf("partitioned %s repertoire under %+v: %w", dir, candidates[i], err)
		}
		phi, err := e.distance(unpartitioned, rep)
		if err != nil {
			return err
		}
		results[i] = scored{phi: phi, rep: rep, done: true}
		return nil
	}

	if e.workers <= 1 {
		for i := range candidates {
			if err := score(i); err != nil {
				return nil, err
			}
			if results[i].phi < e.precision {
				// Zero is the global minimum and candidates arrive
				// in tie-break order: this is the final selection.
				break
			}
		}
	} else {
		var g errgroup.Group
		g.SetLimit(e.workers)
		for i := range candidates {
			i := i
			g.Go(func() error { return score(i) })
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	best := -1
	for i := range results {
		if !results[i].done {
			continue
		}
		if best == -1 || results[i].phi < results[best].phi-e.precision {
			best = i
		}
	}
	sel := results[best]
	phi := sel.phi
	if phi < e.precision {
		phi = 0
	}
	return &model.Mip{
		Phi:           phi,
		Direction:     dir,
		Mechanism:     ints(mechanism),
		Purview:       ints(purview),
		Partition:     candidates[best],
		Unpartitioned: unpartitioned,
		Partitioned:   sel.rep,
	}, nil
}

func ints(v []int) []int {
	return append([]int(nil), v...)
}

// #endregion mip-search
