package ctypes

import (
	"fmt"
	"slices"

	"fortio.org/safecast"

	"ffigen/internal/source"
)

// Field describes one member of a struct or union. OffsetBits is absolute
// from the start of the enclosing aggregate and is filled in by the layout
// phase; within a non-union aggregate offsets are monotonically
// non-decreasing in declaration order, and union fields all sit at 0.
type Field struct {
	Name       source.StringID
	Type       TypeID
	Span       source.Span
	IsBitfield bool
	BitWidth   uint32
	OffsetBits uint64
}

// StructInfo stores metadata for a struct type. Size and Align stay unset
// (HasLayout false) until the layout phase annotates the node.
type StructInfo struct {
	Name      source.StringID
	Decl      source.Span
	Fields    []Field
	Size      int
	Align     int
	HasLayout bool
	// Pack is a #pragma pack ceiling in bytes; 0 means natural alignment.
	Pack int
	// IsForward is true while only a forward declaration has been seen.
	IsForward bool
}

// UnionInfo stores metadata for a union type.
type UnionInfo struct {
	Name      source.StringID
	Decl      source.Span
	Fields    []Field
	Size      int
	Align     int
	HasLayout bool
	Pack      int
	IsForward bool
}

// RegisterStruct allocates a struct node with an empty field list and
// returns its TypeID. Fields are populated later with SetStructFields;
// this two-phase protocol is what lets a struct field reference the
// enclosing struct's own TypeID.
func (in *Interner) RegisterStruct(name source.StringID, decl source.Span) TypeID {
	slot := in.appendStructInfo(StructInfo{Name: name, Decl: decl, IsForward: true})
	return in.internRaw(Type{Kind: KindStruct, Payload: slot})
}

// SetStructFields stores the resolved field list and marks the struct defined.
func (in *Interner) SetStructFields(id TypeID, fields []Field) {
	info := in.structInfo(id)
	if info == nil {
		return
	}
	info.Fields = slices.Clone(fields)
	info.IsForward = false
}

// SetStructPack records a packing ceiling for the struct.
func (in *Interner) SetStructPack(id TypeID, pack int) {
	if info := in.structInfo(id); info != nil {
		info.Pack = pack
	}
}

// SetStructLayout annotates the struct with computed size, alignment, and
// per-field bit offsets. offsets must match the field count.
func (in *Interner) SetStructLayout(id TypeID, size, align int, offsets []uint64) {
	info := in.structInfo(id)
	if info == nil {
		return
	}
	info.Size = size
	info.Align = align
	info.HasLayout = true
	for i := range info.Fields {
		if i < len(offsets) {
			info.Fields[i].OffsetBits = offsets[i]
		}
	}
}

// StructInfo returns metadata for the provided struct TypeID.
func (in *Interner) StructInfo(id TypeID) (*StructInfo, bool) {
	info := in.structInfo(id)
	if info == nil {
		return nil, false
	}
	return info, true
}

// RegisterUnion allocates a union node with an empty field list.
func (in *Interner) RegisterUnion(name source.StringID, decl source.Span) TypeID {
	slot := in.appendUnionInfo(UnionInfo{Name: name, Decl: decl, IsForward: true})
	return in.internRaw(Type{Kind: KindUnion, Payload: slot})
}

// SetUnionFields stores the resolved variant list and marks the union defined.
func (in *Interner) SetUnionFields(id TypeID, fields []Field) {
	info := in.unionInfo(id)
	if info == nil {
		return
	}
	info.Fields = slices.Clone(fields)
	info.IsForward = false
}

// SetUnionPack records a packing ceiling for the union.
func (in *Interner) SetUnionPack(id TypeID, pack int) {
	if info := in.unionInfo(id); info != nil {
		info.Pack = pack
	}
}

// SetUnionLayout annotates the union with computed size and alignment.
// Union variants all start at offset 0, so no per-field offsets are taken.
func (in *Interner) SetUnionLayout(id TypeID, size, align int) {
	info := in.unionInfo(id)
	if info == nil {
		return
	}
	info.Size = size
	info.Align = align
	info.HasLayout = true
}

// UnionInfo returns metadata for the provided union TypeID.
func (in *Interner) UnionInfo(id TypeID) (*UnionInfo, bool) {
	info := in.unionInfo(id)
	if info == nil {
		return nil, false
	}
	return info, true
}

func (in *Interner) structInfo(id TypeID) *StructInfo {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindStruct {
		return nil
	}
	if tt.Payload == 0 || int(tt.Payload) >= len(in.structs) {
		return nil
	}
	return &in.structs[tt.Payload]
}

func (in *Interner) unionInfo(id TypeID) *UnionInfo {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindUnion {
		return nil
	}
	if tt.Payload == 0 || int(tt.Payload) >= len(in.unions) {
		return nil
	}
	return &in.unions[tt.Payload]
}

func (in *Interner) appendStructInfo(info StructInfo) uint32 {
	slot, err := safecast.Conv[uint32](len(in.structs))
	if err != nil {
		panic(fmt.Errorf("ctypes: struct count overflow: %w", err))
	}
	in.structs = append(in.structs, info)
	return slot
}

func (in *Interner) appendUnionInfo(info UnionInfo) uint32 {
	slot, err := safecast.Conv[uint32](len(in.unions))
	if err != nil {
		panic(fmt.Errorf("ctypes: union count overflow: %w", err))
	}
	in.unions = append(in.unions, info)
	return slot
}
