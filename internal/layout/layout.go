// Package layout computes size, alignment, and field offsets for every
// aggregate in the declaration graph, replicating what the foreign
// compiler would produce for the configured target ABI.
package layout

import (
	"ffigen/internal/abi"
	"ffigen/internal/ctypes"
	"ffigen/internal/source"
)

// TypeLayout is the ABI layout of one type for a specific target.
type TypeLayout struct {
	Size  int
	Align int

	// Aggregate-only: absolute bit offsets and per-field alignments in
	// declaration order.
	FieldOffsetsBits []uint64
	FieldAligns      []int
}

// Engine computes memory layout for types. Results are cached per TypeID;
// the engine never reports diagnostics itself, it returns typed errors the
// annotation pass converts into demotions.
type Engine struct {
	Target abi.Target
	Types  *ctypes.Interner

	// Names resolves interned identifiers for diagnostics. Optional; the
	// driver wires it so demotion diagnostics carry the declaration name.
	Names func(source.StringID) string

	cache *cache
}

// New creates an Engine for the given target table.
func New(target abi.Target, types *ctypes.Interner) *Engine {
	return &Engine{
		Target: target,
		Types:  types,
		cache:  newCache(),
	}
}

// layoutState tracks in-progress computations so a type that contains
// itself by value is detected as a cycle instead of recursing forever.
// Cycles broken by a pointer never enter the state: pointers lay out
// without visiting their pointee.
type layoutState struct {
	stack []ctypes.TypeID
	index map[ctypes.TypeID]int
}

func newLayoutState() *layoutState {
	return &layoutState{
		index: make(map[ctypes.TypeID]int, 32),
	}
}

// LayoutOf computes and caches the layout of a type.
func (e *Engine) LayoutOf(id ctypes.TypeID) (TypeLayout, error) {
	l, err := e.layoutOf(id, newLayoutState())
	if err != nil {
		return l, err
	}
	return l, nil
}

func (e *Engine) layoutOf(id ctypes.TypeID, state *layoutState) (TypeLayout, *Error) {
	if e == nil || e.Types == nil {
		return TypeLayout{Size: 0, Align: 1}, nil
	}
	if e.cache == nil {
		e.cache = newCache()
	}
	canon := e.Types.ResolveTypedefs(id)
	if cached, ok := e.cache.get(canon); ok {
		return cached.Layout, cached.Err
	}

	if idx, ok := state.index[canon]; ok {
		cycle := append([]ctypes.TypeID(nil), state.stack[idx:]...)
		cycle = append(cycle, canon)
		err := &Error{Kind: ErrRecursiveValue, Type: canon, Cycle: cycle}
		e.cache.put(canon, &entry{Layout: TypeLayout{Size: 0, Align: 1}, Err: err})
		return TypeLayout{Size: 0, Align: 1}, err
	}

	state.index[canon] = len(state.stack)
	state.stack = append(state.stack, canon)
	l, err := e.compute(canon, state)
	state.stack = state.stack[:len(state.stack)-1]
	delete(state.index, canon)

	e.cache.put(canon, &entry{Layout: l, Err: err})
	return l, err
}

// SizeOf returns the size of a type in bytes.
func (e *Engine) SizeOf(id ctypes.TypeID) (int, error) {
	l, err := e.LayoutOf(id)
	return l.Size, err
}

// AlignOf returns the alignment requirement of a type in bytes.
func (e *Engine) AlignOf(id ctypes.TypeID) (int, error) {
	l, err := e.LayoutOf(id)
	return l.Align, err
}

// FieldOffsetBits returns the absolute bit offset of an aggregate field.
func (e *Engine) FieldOffsetBits(aggregate ctypes.TypeID, fieldIdx int) (uint64, error) {
	l, err := e.LayoutOf(aggregate)
	if err != nil {
		return 0, err
	}
	if fieldIdx < 0 || fieldIdx >= len(l.FieldOffsetsBits) {
		return 0, nil
	}
	return l.FieldOffsetsBits[fieldIdx], nil
}
