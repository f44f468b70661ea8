package ctypes

import (
	"fmt"
	"slices"
	"strings"

	"fortio.org/safecast"

	"ffigen/internal/source"
)

// Param describes one function parameter. Foreign headers frequently omit
// parameter names; Name is NoStringID then and the emitter synthesizes a
// placeholder.
type Param struct {
	Name source.StringID
	Type TypeID
}

// FuncInfo stores a function signature.
type FuncInfo struct {
	Result   TypeID
	Params   []Param
	Variadic bool
}

// InternFunc returns a TypeID for the signature, reusing an existing node
// when an identical signature (ignoring parameter names) was seen before.
func (in *Interner) InternFunc(info FuncInfo) TypeID {
	key := funcKey(info)
	if id, ok := in.funcIndex[key]; ok {
		return id
	}
	slot, err := safecast.Conv[uint32](len(in.funcs))
	if err != nil {
		panic(fmt.Errorf("ctypes: func count overflow: %w", err))
	}
	info.Params = slices.Clone(info.Params)
	in.funcs = append(in.funcs, info)
	id := in.internRaw(Type{Kind: KindFunc, Payload: slot})
	in.funcIndex[key] = id
	return id
}

// FuncInfo returns the signature for the provided func TypeID.
func (in *Interner) FuncInfo(id TypeID) (*FuncInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindFunc {
		return nil, false
	}
	if int(tt.Payload) >= len(in.funcs) {
		return nil, false
	}
	return &in.funcs[tt.Payload], true
}

// funcKey identifies a signature structurally. Parameter names do not
// participate: int f(int a) and int f(int b) share one signature node.
func funcKey(info FuncInfo) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d(", info.Result)
	for i, p := range info.Params {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%d", p.Type)
	}
	if info.Variadic {
		sb.WriteString(",...")
	}
	sb.WriteByte(')')
	return sb.String()
}
