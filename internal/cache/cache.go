// Package cache provides the memoization layer for the repertoire and
// distance computations: a byte-bounded LRU keyed by typed content digests,
// optionally backed by a persistent sqlite store. It is a pure performance
// layer; disabling it never changes a numeric result.
package cache

import (
	"bufio"
	"container/list"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/danielpatrickdp/phi-engine/internal/tensor"
)

// #region digest

// Digest returns a content hash of the given arguments, suitable as a cache
// key. Each supported type has an explicit encoding: tensors are hashed by
// shape plus IEEE 754 element bits in row-major order, so layout in memory
// never matters; slices and scalars are hashed structurally.
func Digest(args ...any) string {
	h := sha256.New()
	buf := make([]byte, 8)
	writeInt := func(v int64) {
		binary.LittleEndian.PutUint64(buf, uint64(v))
		h.Write(buf)
	}
	for _, arg := range args {
		switch v := arg.(type) {
		case nil:
			h.Write([]byte{'n'})
		case *tensor.Dense:
			h.Write([]byte{'t'})
			shape := v.Shape()
			writeInt(int64(len(shape)))
			for _, s := range shape {
				writeInt(int64(s))
			}
			for _, f := range v.Ravel() {
				binary.LittleEndian.PutUint64(buf, math.Float64bits(f))
				h.Write(buf)
			}
		case []int:
			h.Write([]byte{'i'})
			writeInt(int64(len(v)))
			for _, x := range v {
				writeInt(int64(x))
			}
		case int:
			h.Write([]byte{'d'})
			writeInt(int64(v))
		case float64:
			h.Write([]byte{'f'})
			binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
			h.Write(buf)
		case bool:
			h.Write([]byte{'b'})
			if v {
				h.Write([]byte{1})
			} else {
				h.Write([]byte{0})
			}
		case string:
			h.Write([]byte{'s'})
			writeInt(int64(len(v)))
			h.Write([]byte(v))
		default:
			panic(fmt.Sprintf("cache: no digest encoding for %T", arg))
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// #endregion digest

// #region cache

// Cache is a byte-bounded LRU. Access is guarded by a single mutex; two
// goroutines computing the same key concurrently both succeed and the last
// write wins, which is harmless because every cached computation is pure.
type Cache struct {
	mu     sync.Mutex
	budget int64
	used   int64
	items  map[string]*list.Element
	order  *list.List // front = most recent

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

type entry struct {
	key   string
	value any
	size  int64
}

// New returns a cache bounded by the given byte budget.
func New(budget int64) *Cache {
	if budget <= 0 {
		budget = DefaultBudget()
	}
	return &Cache{
		budget: budget,
		items:  make(map[string]*list.Element),
		order:  list.New(),
	}
}

// Get returns the cached value for key, marking it most recently used.
// A nil *Cache is a valid disabled cache: every lookup misses.
func (c *Cache) Get(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.order.MoveToFront(el)
		c.hits.Add(1)
		return el.Value.(*entry).value, true
	}
	c.misses.Add(1)
	return nil, false
}

// Put stores a value, evicting least-recently-used entries until the cache
// fits its budget. Values larger than the whole budget are not cached.
func (c *Cache) Put(key string, value any) {
	if c == nil {
		return
	}
	size := Sizeof(value)
	if size > c.budget {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		old := el.Value.(*entry)
		c.used += size - old.size
		old.value = value
		old.size = size
		c.order.MoveToFront(el)
	} else {
		el := c.order.PushFront(&entry{key: key, value: value, size: size})
		c.items[key] = el
		c.used += size
	}
	for c.used > c.budget {
		back := c.order.Back()
		if back == nil {
			break
		}
		ev := back.Value.(*entry)
		c.order.Remove(back)
		delete(c.items, ev.key)
		c.used -= ev.size
		c.evictions.Add(1)
	}
}

// Stats returns hit, miss, and eviction counts.
func (c *Cache) Stats() (hits, misses, evictions int64) {
	if c == nil {
		return 0, 0, 0
	}
	return c.hits.Load(), c.misses.Load(), c.evictions.Load()
}

// Used returns the current byte accounting.
func (c *Cache) Used() int64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used
}

// #endregion cache

// #region sizing

// Sizeof estimates the retained bytes of a cached value.
func Sizeof(v any) int64 {
	const overhead = 48
	switch x := v.(type) {
	case *tensor.Dense:
		return overhead + int64(x.Size())*8
	case [][]float64:
		var n int64
		for _, row := range x {
			n += int64(len(row))
		}
		return overhead + n*8
	case []float64:
		return overhead + int64(len(x))*8
	case float64, int64, int:
		return overhead
	default:
		return overhead
	}
}

// DefaultBudget derives a byte budget from half of the memory currently
// available to the process, falling back to a fixed figure when the
// platform gives no answer.
func DefaultBudget() int64 {
	const fallback = 256 << 20
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return fallback
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "MemAvailable:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			break
		}
		kb, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			break
		}
		return kb * 1024 / 2
	}
	return fallback
}

// #endregion sizing
