package ctypes

import (
	"fmt"

	"fortio.org/safecast"

	"ffigen/internal/source"
)

// TypedefInfo stores metadata for a typedef. Target may be set after
// registration so typedef chains can reference not-yet-built types.
type TypedefInfo struct {
	Name   source.StringID
	Decl   source.Span
	Target TypeID
}

// RegisterTypedef allocates a typedef node and returns its TypeID.
func (in *Interner) RegisterTypedef(name source.StringID, decl source.Span) TypeID {
	slot, err := safecast.Conv[uint32](len(in.typedefs))
	if err != nil {
		panic(fmt.Errorf("ctypes: typedef count overflow: %w", err))
	}
	in.typedefs = append(in.typedefs, TypedefInfo{Name: name, Decl: decl})
	return in.internRaw(Type{Kind: KindTypedef, Payload: slot})
}

// SetTypedefTarget stores the aliased type.
func (in *Interner) SetTypedefTarget(id, target TypeID) {
	if info := in.typedefInfo(id); info != nil {
		info.Target = target
	}
}

// TypedefInfo returns metadata for the provided typedef TypeID.
func (in *Interner) TypedefInfo(id TypeID) (*TypedefInfo, bool) {
	info := in.typedefInfo(id)
	if info == nil {
		return nil, false
	}
	return info, true
}

// ResolveTypedefs follows typedef chains to the underlying type. Chains
// are expected to be short; a seen-set guards against malformed cycles.
func (in *Interner) ResolveTypedefs(id TypeID) TypeID {
	seen := make(map[TypeID]struct{}, 4)
	for {
		if _, ok := seen[id]; ok {
			return id
		}
		seen[id] = struct{}{}
		tt, ok := in.Lookup(id)
		if !ok || tt.Kind != KindTypedef {
			return id
		}
		info := in.typedefInfo(id)
		if info == nil || info.Target == NoTypeID {
			return id
		}
		id = info.Target
	}
}

func (in *Interner) typedefInfo(id TypeID) *TypedefInfo {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindTypedef {
		return nil
	}
	if int(tt.Payload) >= len(in.typedefs) {
		return nil
	}
	return &in.typedefs[tt.Payload]
}
