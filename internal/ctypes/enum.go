package ctypes

import (
	"fmt"
	"slices"

	"fortio.org/safecast"

	"ffigen/internal/source"
)

// EnumVariant stores one enumerator and its resolved value.
type EnumVariant struct {
	Name  source.StringID
	Value int64
	Span  source.Span
}

// EnumInfo stores metadata for an enum type. BaseType is the underlying
// integer type; it stays NoTypeID until the layout phase applies the
// configured underlying-type policy (or the frontend supplied one).
type EnumInfo struct {
	Name     source.StringID
	Decl     source.Span
	BaseType TypeID
	Variants []EnumVariant
}

// RegisterEnum allocates an enum node and returns its TypeID.
func (in *Interner) RegisterEnum(name source.StringID, decl source.Span) TypeID {
	slot, err := safecast.Conv[uint32](len(in.enums))
	if err != nil {
		panic(fmt.Errorf("ctypes: enum count overflow: %w", err))
	}
	in.enums = append(in.enums, EnumInfo{Name: name, Decl: decl})
	return in.internRaw(Type{Kind: KindEnum, Payload: slot})
}

// SetEnumVariants stores the resolved enumerators.
func (in *Interner) SetEnumVariants(id TypeID, variants []EnumVariant) {
	if info := in.enumInfo(id); info != nil {
		info.Variants = slices.Clone(variants)
	}
}

// SetEnumBaseType stores the underlying integer type for the enum.
func (in *Interner) SetEnumBaseType(id, base TypeID) {
	if info := in.enumInfo(id); info != nil {
		info.BaseType = base
	}
}

// EnumInfo returns metadata for the provided enum TypeID.
func (in *Interner) EnumInfo(id TypeID) (*EnumInfo, bool) {
	info := in.enumInfo(id)
	if info == nil {
		return nil, false
	}
	return info, true
}

func (in *Interner) enumInfo(id TypeID) *EnumInfo {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindEnum {
		return nil
	}
	if int(tt.Payload) >= len(in.enums) {
		return nil
	}
	return &in.enums[tt.Payload]
}
