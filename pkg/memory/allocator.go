package memory

import (
	"gomojo/pkg/diag"
	"gomojo/pkg/types"
)

// Allocator hands out compile-time addresses. Addresses are dense and
// increasing within each (class, type) partition.
type Allocator struct {
	next [ClassCount]Counts

	pool   map[Value]Address
	consts []Value // constant values in allocation order
}

func NewAllocator() *Allocator {
	return &Allocator{
		pool: make(map[Value]Address),
	}
}

func (a *Allocator) Global(t types.Type) (Address, error)    { return a.Sequential(Global, t, 1) }
func (a *Allocator) Local(t types.Type) (Address, error)     { return a.Sequential(Local, t, 1) }
func (a *Allocator) Temporary(t types.Type) (Address, error) { return a.Sequential(Temporary, t, 1) }

// Constant interns v. The same literal always yields the same address.
func (a *Allocator) Constant(v Value) (Address, error) {
	if addr, ok := a.pool[v]; ok {
		return addr, nil
	}

	addr, err := a.Sequential(Constant, v.Type, 1)
	if err != nil {
		return 0, err
	}

	a.pool[v] = addr
	a.consts = append(a.consts, v)

	return addr, nil
}

// Sequential reserves n contiguous slots and returns the first one.
func (a *Allocator) Sequential(c Class, t types.Type, n int) (Address, error) {
	if !t.Storable() {
		return 0, diag.New(diag.ErrType, 0, "no storage for %v values", t)
	}

	if n <= 0 {
		return 0, diag.New(diag.ErrDeclaration, 0, "block size must be positive: %d", n)
	}

	off := a.next[c][t]
	if n > Partition-off {
		return 0, diag.New(diag.ErrResource, 0, "%v %v memory exhausted (%d slots)", c, t, Partition)
	}

	a.next[c][t] += n

	return Make(c, t, off), nil
}

// ResetTemporaries starts temporary numbering over for the next function body.
func (a *Allocator) ResetTemporaries() { a.next[Temporary] = Counts{} }

// ResetLocals starts local numbering over for the next function.
func (a *Allocator) ResetLocals() { a.next[Local] = Counts{} }

// Count returns how many slots of class c are allocated.
func (a *Allocator) Count(c Class) Counts { return a.next[c] }

// Constants builds the runtime constant segment.
func (a *Allocator) Constants() *Segment {
	s := NewSegment(a.next[Constant])

	for _, v := range a.consts {
		addr := a.pool[v]
		_ = s.Store(addr.Type(), addr.Offset(), v)
	}

	return s
}
