// Package bufpool recycles the byte slices used on the connection hot path:
// transfer chunks, the initial sniff read and HTTP header accumulation.
//
// Buffers are grouped into size classes. Get returns a slice backed by the
// smallest class that fits; requests above the largest class are allocated
// directly and never pooled.
//
//	buf := bufpool.Get(4096)
//	defer bufpool.Put(buf)
package bufpool

import (
	"sort"
	"sync"
)

const (
	// ChunkSize matches the default transfer chunk of the command protocol.
	ChunkSize = 4 << 10

	// SniffSize matches the default initial read used for protocol detection.
	SniffSize = 8 << 10

	// HeaderSize matches the default HTTP header accumulation limit.
	HeaderSize = 64 << 10
)

// Pool is a set of sync.Pools keyed by buffer capacity.
type Pool struct {
	classes []int
	pools   map[int]*sync.Pool
}

// NewPool creates a pool with the given size classes. Non-positive and
// duplicate sizes are dropped; with no valid sizes the default classes are used.
func NewPool(sizes ...int) *Pool {
	seen := make(map[int]bool, len(sizes))
	classes := make([]int, 0, len(sizes))
	for _, s := range sizes {
		if s > 0 && !seen[s] {
			seen[s] = true
			classes = append(classes, s)
		}
	}
	if len(classes) == 0 {
		classes = []int{ChunkSize, SniffSize, HeaderSize}
	}
	sort.Ints(classes)

	p := &Pool{classes: classes, pools: make(map[int]*sync.Pool, len(classes))}
	for _, size := range classes {
		size := size
		p.pools[size] = &sync.Pool{
			New: func() any {
				b := make([]byte, size)
				return &b
			},
		}
	}
	return p
}

// Classes returns the configured size classes in ascending order.
func (p *Pool) Classes() []int {
	return append([]int(nil), p.classes...)
}

func (p *Pool) classFor(size int) int {
	i := sort.SearchInts(p.classes, size)
	if i == len(p.classes) {
		return 0
	}
	return p.classes[i]
}

// Get returns a slice of length size. Its capacity is the class size, or
// exactly size when no class is large enough.
func (p *Pool) Get(size int) []byte {
	if size < 0 {
		size = 0
	}
	class := p.classFor(size)
	if class == 0 {
		return make([]byte, size)
	}
	bp := p.pools[class].Get().(*[]byte)
	return (*bp)[:size]
}

// Put hands buf back. Slices whose capacity is not a class size are left
// to the garbage collector.
func (p *Pool) Put(buf []byte) {
	if buf == nil {
		return
	}
	sp, ok := p.pools[cap(buf)]
	if !ok {
		return
	}
	full := buf[:cap(buf)]
	sp.Put(&full)
}

var defaultPool = NewPool()

// Get takes a buffer from the package-level pool.
func Get(size int) []byte {
	return defaultPool.Get(size)
}

// Put returns a buffer obtained from Get to the package-level pool.
func Put(buf []byte) {
	defaultPool.Put(buf)
}
