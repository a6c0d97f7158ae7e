// Package pool provides a fixed-size buffer pool for datagram-sized
// allocations, keeping the Endpoint's hot receive/send path free of
// per-packet garbage under sustained traffic.
package pool

import (
	"errors"
	"sync/atomic"

	"github.com/freelan-go/freelan/pkg/fscplog"
)

const (
	// DefaultBlockSize covers a DATA message at the maximum MTU with room
	// to spare for header and AEAD tag.
	DefaultBlockSize = 65536

	// DefaultBlockCount is the number of blocks the pool keeps warm.
	DefaultBlockCount = 32
)

// ErrExhausted is returned by Get when every block is checked out and
// HeapFallback is false.
var ErrExhausted = errors.New("pool: exhausted, no free block and HeapFallback is false")

// Buffer is a pool-managed byte slice with a reference count. A Buffer
// obtained fresh from Pool.Get has exactly one reference; Retain adds one,
// Release removes one, and the underlying memory returns to the pool (or
// is dropped, for heap-fallback buffers) when the count reaches zero.
type Buffer struct {
	Bytes []byte

	pool *Pool
	heap bool
	refs int32
}

// Retain increments the reference count, needed when a buffer is handed
// to more than one consumer (for example a retransmit queue holding onto
// a datagram that the send path also still owns).
func (b *Buffer) Retain() {
	atomic.AddInt32(&b.refs, 1)
}

// Release decrements the reference count and returns the buffer to its
// pool once no owner remains. Calling Release more times than the buffer
// was retained is a caller bug and is not guarded against, matching the
// teacher pattern of unchecked sync.Pool Put/Get pairing.
func (b *Buffer) Release() {
	if atomic.AddInt32(&b.refs, -1) > 0 {
		return
	}
	if b.heap || b.pool == nil {
		return
	}
	select {
	case b.pool.free <- b.Bytes[:cap(b.Bytes)]:
	default:
		// The pool was shrunk out from under this buffer (can't happen
		// with the current API, since block count is fixed at New) or
		// the free list is already full; either way, drop it.
	}
}

// Pool hands out fixed-size byte buffers from a bounded set of blockCount
// pre-allocated blocks (spec's C2 MemoryPool, §4.2). Once every block is
// checked out, Get either fails with ErrExhausted or, if HeapFallback is
// set, serves the request from the heap and logs a WARNING - the engine
// must not allocate on the per-datagram path once warmed up, so a
// fallback allocation is something an operator should see.
type Pool struct {
	blockSize int
	free      chan []byte

	// HeapFallback allows Get to serve from the heap once every pooled
	// block is checked out, instead of failing the request. Off by
	// default, matching spec §4.2's "otherwise allocation fails".
	HeapFallback bool

	log *fscplog.Logger
}

// New creates a Pool of blockCount blocks, each blockSize bytes.
func New(blockSize, blockCount int) *Pool {
	p := &Pool{blockSize: blockSize, free: make(chan []byte, blockCount)}
	for i := 0; i < blockCount; i++ {
		p.free <- make([]byte, blockSize)
	}
	return p
}

// NewDefault creates a Pool using DefaultBlockSize and DefaultBlockCount.
func NewDefault() *Pool {
	return New(DefaultBlockSize, DefaultBlockCount)
}

// SetLogger attaches the logger Get uses to report heap-fallback
// allocations. A nil logger (the default) just means those allocations
// go unreported.
func (p *Pool) SetLogger(log *fscplog.Logger) {
	p.log = log
}

// Get returns a Buffer of at least n bytes. A request larger than the
// pool's block size always falls back to the heap, regardless of
// HeapFallback, since no pooled block could ever satisfy it - that is
// sized allocation, not pool exhaustion. A request at or below the block
// size is served from the free list; if none is free, it is served from
// the heap when HeapFallback is set (logging a WARNING), or fails with
// ErrExhausted otherwise.
func (p *Pool) Get(n int) (*Buffer, error) {
	if n > p.blockSize {
		return &Buffer{Bytes: make([]byte, n), heap: true, refs: 1}, nil
	}
	select {
	case raw := <-p.free:
		return &Buffer{Bytes: raw[:n], pool: p, refs: 1}, nil
	default:
	}
	if !p.HeapFallback {
		return nil, ErrExhausted
	}
	if p.log != nil {
		p.log.Warnf("pool.heap_fallback", "pool exhausted, allocating %d bytes from the heap", n)
	}
	return &Buffer{Bytes: make([]byte, n), heap: true, refs: 1}, nil
}
