package ctypes

import (
	"fmt"

	"fortio.org/safecast"
)

// OpaqueReason explains why a node was demoted to an opaque placeholder.
type OpaqueReason uint8

const (
	// OpaqueUnsupported: ingestion saw a foreign construct it does not model.
	OpaqueUnsupported OpaqueReason = iota + 1
	// OpaqueIncomplete: forward-declared, never defined.
	OpaqueIncomplete
	// OpaqueLayoutUnresolvable: layout computation ambiguous or contradictory.
	OpaqueLayoutUnresolvable
)

func (r OpaqueReason) String() string {
	switch r {
	case OpaqueUnsupported:
		return "unsupported"
	case OpaqueIncomplete:
		return "incomplete"
	case OpaqueLayoutUnresolvable:
		return "layout-unresolvable"
	default:
		return fmt.Sprintf("OpaqueReason(%d)", r)
	}
}

// OpaqueInfo carries whatever is still known about a demoted node.
type OpaqueInfo struct {
	Reason  OpaqueReason
	Size    int
	Align   int
	HasSize bool
}

// RegisterOpaque allocates a fresh opaque node.
func (in *Interner) RegisterOpaque(info OpaqueInfo) TypeID {
	slot := in.appendOpaqueInfo(info)
	return in.internRaw(Type{Kind: KindOpaque, Payload: slot})
}

// MarkOpaque demotes an existing node to opaque in place. The TypeID stays
// valid: everything already referencing it now sees the placeholder. Nodes
// are never deleted once referenced, so demotion is the only destructive
// transition the arena supports.
func (in *Interner) MarkOpaque(id TypeID, info OpaqueInfo) {
	if id == NoTypeID || int(id) >= len(in.types) {
		return
	}
	slot := in.appendOpaqueInfo(info)
	in.types[id] = Type{Kind: KindOpaque, Payload: slot}
}

// OpaqueInfo returns metadata for the provided opaque TypeID.
func (in *Interner) OpaqueInfo(id TypeID) (*OpaqueInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindOpaque {
		return nil, false
	}
	if tt.Payload == 0 || int(tt.Payload) >= len(in.opaques) {
		return nil, false
	}
	return &in.opaques[tt.Payload], true
}

func (in *Interner) appendOpaqueInfo(info OpaqueInfo) uint32 {
	slot, err := safecast.Conv[uint32](len(in.opaques))
	if err != nil {
		panic(fmt.Errorf("ctypes: opaque count overflow: %w", err))
	}
	in.opaques = append(in.opaques, info)
	return slot
}
