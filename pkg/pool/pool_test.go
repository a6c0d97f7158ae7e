package pool

import "testing"

func TestGetReturnsRequestedLength(t *testing.T) {
	p := New(1024, 4)
	buf, err := p.Get(100)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(buf.Bytes) != 100 {
		t.Fatalf("got len %d, want 100", len(buf.Bytes))
	}
	buf.Release()
}

func TestGetAboveBlockSizeFallsBackToHeap(t *testing.T) {
	p := New(64, 4)
	buf, err := p.Get(4096)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !buf.heap {
		t.Fatal("expected heap fallback for oversized request")
	}
	if len(buf.Bytes) != 4096 {
		t.Fatalf("got len %d, want 4096", len(buf.Bytes))
	}
	buf.Release()
}

func TestBufferRetainDelaysRelease(t *testing.T) {
	p := New(128, 4)
	buf, err := p.Get(32)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	buf.Retain()
	buf.Release()
	if buf.refs != 1 {
		t.Fatalf("got refs %d, want 1 after one of two releases", buf.refs)
	}
	buf.Release()
	if buf.refs != 0 {
		t.Fatalf("got refs %d, want 0 after final release", buf.refs)
	}
}

func TestPooledBufferIsReused(t *testing.T) {
	p := New(128, 1)
	first, err := p.Get(128)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	addr := &first.Bytes[0]
	first.Release()

	second, err := p.Get(128)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if &second.Bytes[0] != addr {
		t.Fatal("expected the sole block to be reused")
	}
}

func TestNewDefaultUsesDefaultBlockSize(t *testing.T) {
	p := NewDefault()
	if p.blockSize != DefaultBlockSize {
		t.Fatalf("got block size %d, want %d", p.blockSize, DefaultBlockSize)
	}
	if cap(p.free) != DefaultBlockCount {
		t.Fatalf("got block count %d, want %d", cap(p.free), DefaultBlockCount)
	}
}

func TestGetFailsWhenExhaustedWithoutHeapFallback(t *testing.T) {
	p := New(64, 1)
	first, err := p.Get(64)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := p.Get(64); err != ErrExhausted {
		t.Fatalf("got err %v, want ErrExhausted", err)
	}
	first.Release()
	if _, err := p.Get(64); err != nil {
		t.Fatalf("Get after Release: %v", err)
	}
}

func TestGetFallsBackToHeapWhenExhaustedAndHeapFallbackSet(t *testing.T) {
	p := New(64, 1)
	p.HeapFallback = true
	if _, err := p.Get(64); err != nil {
		t.Fatalf("Get: %v", err)
	}
	buf, err := p.Get(64)
	if err != nil {
		t.Fatalf("Get with HeapFallback: %v", err)
	}
	if !buf.heap {
		t.Fatal("expected the exhausted pool to serve this request from the heap")
	}
}
