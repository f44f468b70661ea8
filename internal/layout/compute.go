package layout

import (
	"fortio.org/safecast"

	"ffigen/internal/abi"
	"ffigen/internal/ctypes"
)

func roundUp(n, align int) int {
	if align <= 1 {
		return n
	}
	r := n % align
	if r == 0 {
		return n
	}
	return n + (align - r)
}

func roundUpBits(n, alignBits uint64) uint64 {
	if alignBits <= 1 {
		return n
	}
	r := n % alignBits
	if r == 0 {
		return n
	}
	return n + (alignBits - r)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// effPack folds the per-aggregate pragma pack with the global override.
// Zero means natural alignment.
func effPack(local, global int) int {
	switch {
	case local == 0:
		return global
	case global == 0:
		return local
	case local < global:
		return local
	default:
		return global
	}
}

func capAlign(align, pack int) int {
	if align < 1 {
		align = 1
	}
	if pack > 0 && align > pack {
		return pack
	}
	return align
}

func (e *Engine) compute(id ctypes.TypeID, state *layoutState) (TypeLayout, *Error) {
	tt, ok := e.Types.Lookup(id)
	if !ok {
		return TypeLayout{Size: 0, Align: 1}, &Error{Kind: ErrIncomplete, Type: id}
	}

	switch tt.Kind {
	case ctypes.KindVoid:
		return TypeLayout{Size: 0, Align: 1}, nil

	case ctypes.KindBool:
		return TypeLayout{Size: e.Target.Bool.Size, Align: e.Target.Bool.Align}, nil

	case ctypes.KindInt, ctypes.KindUint:
		return TypeLayout{Size: int(tt.Width) / 8, Align: e.Target.ScalarAlign(tt.Width)}, nil

	case ctypes.KindFloat:
		if tt.Width == ctypes.Width32 {
			return TypeLayout{Size: e.Target.Float.Size, Align: e.Target.Float.Align}, nil
		}
		return TypeLayout{Size: e.Target.Double.Size, Align: e.Target.Double.Align}, nil

	case ctypes.KindPointer, ctypes.KindFunc:
		return e.ptrLayout(), nil

	case ctypes.KindArray:
		return e.arrayLayout(id, tt, state)

	case ctypes.KindStruct:
		return e.structLayout(id, state)

	case ctypes.KindUnion:
		return e.unionLayout(id, state)

	case ctypes.KindEnum:
		return e.enumLayout(id, state)

	case ctypes.KindOpaque:
		if info, ok := e.Types.OpaqueInfo(id); ok && info.HasSize {
			return TypeLayout{Size: info.Size, Align: maxInt(info.Align, 1)}, nil
		}
		return TypeLayout{Size: 0, Align: 1}, &Error{Kind: ErrIncomplete, Type: id}

	case ctypes.KindTypedef:
		// Typedefs are resolved before compute; reaching one here means
		// its target was never set.
		return TypeLayout{Size: 0, Align: 1}, &Error{Kind: ErrIncomplete, Type: id}

	default:
		return TypeLayout{Size: 0, Align: 1}, &Error{Kind: ErrIncomplete, Type: id}
	}
}

func (e *Engine) ptrLayout() TypeLayout {
	size := e.Target.PtrSize
	align := e.Target.PtrAlign
	if size <= 0 {
		size = 8
	}
	if align <= 0 {
		align = size
	}
	return TypeLayout{Size: size, Align: align}
}

func (e *Engine) arrayLayout(id ctypes.TypeID, tt ctypes.Type, state *layoutState) (TypeLayout, *Error) {
	if tt.Count == ctypes.ArrayIncompleteLength {
		return TypeLayout{Size: 0, Align: 1}, &Error{Kind: ErrFlexibleArray, Type: id}
	}
	el, err := e.layoutOf(tt.Elem, state)
	if err != nil {
		return TypeLayout{Size: 0, Align: 1}, err
	}
	align := maxInt(el.Align, 1)
	stride := roundUp(el.Size, align)
	n, convErr := safecast.Conv[int](tt.Count)
	if convErr != nil || n < 0 || (stride > 0 && n > (1<<40)/stride) {
		return TypeLayout{Size: 0, Align: 1}, &Error{Kind: ErrArrayTooLarge, Type: id}
	}
	return TypeLayout{Size: stride * n, Align: align}, nil
}

func (e *Engine) enumLayout(id ctypes.TypeID, state *layoutState) (TypeLayout, *Error) {
	info, ok := e.Types.EnumInfo(id)
	if !ok {
		return TypeLayout{Size: 0, Align: 1}, &Error{Kind: ErrIncomplete, Type: id}
	}
	base := info.BaseType
	if base == ctypes.NoTypeID {
		base = e.EnumUnderlying(info)
	}
	return e.layoutOf(base, state)
}

// EnumUnderlying applies the configured underlying-type policy to an enum
// whose frontend did not fix a base type.
func (e *Engine) EnumUnderlying(info *ctypes.EnumInfo) ctypes.TypeID {
	b := e.Types.Builtins()
	switch e.Target.EnumRepr {
	case abi.EnumReprInt32:
		return b.Int32
	case abi.EnumReprUint32:
		return b.Uint32
	}

	// Smallest-representable policy.
	var lo, hi int64
	for i, v := range info.Variants {
		if i == 0 || v.Value < lo {
			lo = v.Value
		}
		if i == 0 || v.Value > hi {
			hi = v.Value
		}
	}
	if lo >= 0 {
		switch {
		case hi < 1<<8:
			return b.Uint8
		case hi < 1<<16:
			return b.Uint16
		case hi < 1<<32:
			return b.Uint32
		default:
			return b.Uint64
		}
	}
	switch {
	case lo >= -1<<7 && hi < 1<<7:
		return b.Int8
	case lo >= -1<<15 && hi < 1<<15:
		return b.Int16
	case lo >= -1<<31 && hi < 1<<31:
		return b.Int32
	default:
		return b.Int64
	}
}

func (e *Engine) structLayout(id ctypes.TypeID, state *layoutState) (TypeLayout, *Error) {
	info, ok := e.Types.StructInfo(id)
	if !ok {
		return TypeLayout{Size: 0, Align: 1}, &Error{Kind: ErrIncomplete, Type: id}
	}
	if info.IsForward {
		return TypeLayout{Size: 0, Align: 1}, &Error{Kind: ErrIncomplete, Type: id}
	}
	pack := effPack(info.Pack, e.Target.PackOverride)

	if len(info.Fields) == 0 {
		// Matches observed foreign-compiler behavior for empty aggregates.
		return TypeLayout{Size: 1, Align: 1}, nil
	}

	offsets := make([]uint64, len(info.Fields))
	aligns := make([]int, len(info.Fields))

	var endBits uint64
	align := 1

	// Bitfield run state: one open storage unit at a time.
	unitOpen := false
	var unitStartBits uint64
	unitBits := 0
	bitsUsed := 0

	closeUnit := func() {
		if unitOpen {
			endBits = unitStartBits + uint64(unitBits)
			unitOpen = false
			bitsUsed = 0
		}
	}

	for i, f := range info.Fields {
		if isFlexibleArrayField(e.Types, f.Type) {
			return TypeLayout{Size: 0, Align: 1}, &Error{Kind: ErrFlexibleArray, Type: id}
		}
		fl, err := e.layoutOf(f.Type, state)
		if err != nil {
			return TypeLayout{Size: 0, Align: 1}, err
		}

		if f.IsBitfield {
			storageBits := fl.Size * 8
			fAlign := capAlign(fl.Align, pack)
			if int(f.BitWidth) > storageBits {
				return TypeLayout{Size: 0, Align: 1}, &Error{Kind: ErrBitfieldTooWide, Type: id}
			}
			if f.BitWidth == 0 {
				// Zero-width bitfield: close the run and realign to the
				// declared storage boundary.
				closeUnit()
				endBits = roundUpBits(endBits, uint64(fAlign)*8)
				offsets[i] = endBits
				aligns[i] = fAlign
				continue
			}
			if !unitOpen || unitBits != storageBits || bitsUsed+int(f.BitWidth) > unitBits {
				closeUnit()
				unitStartBits = roundUpBits(endBits, uint64(fAlign)*8)
				unitBits = storageBits
				bitsUsed = 0
				unitOpen = true
			}
			if e.Target.BitfieldOrder == abi.BitfieldMSBFirst {
				offsets[i] = unitStartBits + uint64(unitBits-bitsUsed-int(f.BitWidth))
			} else {
				offsets[i] = unitStartBits + uint64(bitsUsed)
			}
			bitsUsed += int(f.BitWidth)
			aligns[i] = fAlign
			align = maxInt(align, fAlign)
			continue
		}

		closeUnit()
		fAlign := capAlign(fl.Align, pack)
		off := roundUpBits(endBits, uint64(fAlign)*8)
		offsets[i] = off
		aligns[i] = fAlign
		endBits = off + uint64(fl.Size)*8
		align = maxInt(align, fAlign)
	}
	closeUnit()

	sizeBytes := int(roundUpBits(endBits, 8) / 8)
	sizeBytes = roundUp(sizeBytes, align)
	if sizeBytes == 0 {
		sizeBytes = 1
		align = 1
	}
	return TypeLayout{
		Size:             sizeBytes,
		Align:            align,
		FieldOffsetsBits: offsets,
		FieldAligns:      aligns,
	}, nil
}

func (e *Engine) unionLayout(id ctypes.TypeID, state *layoutState) (TypeLayout, *Error) {
	info, ok := e.Types.UnionInfo(id)
	if !ok {
		return TypeLayout{Size: 0, Align: 1}, &Error{Kind: ErrIncomplete, Type: id}
	}
	if info.IsForward {
		return TypeLayout{Size: 0, Align: 1}, &Error{Kind: ErrIncomplete, Type: id}
	}
	pack := effPack(info.Pack, e.Target.PackOverride)

	if len(info.Fields) == 0 {
		return TypeLayout{Size: 1, Align: 1}, nil
	}

	offsets := make([]uint64, len(info.Fields))
	aligns := make([]int, len(info.Fields))
	size := 0
	align := 1
	for i, f := range info.Fields {
		if isFlexibleArrayField(e.Types, f.Type) {
			return TypeLayout{Size: 0, Align: 1}, &Error{Kind: ErrFlexibleArray, Type: id}
		}
		fl, err := e.layoutOf(f.Type, state)
		if err != nil {
			return TypeLayout{Size: 0, Align: 1}, err
		}
		fAlign := capAlign(fl.Align, pack)
		if f.IsBitfield {
			storageBits := fl.Size * 8
			if int(f.BitWidth) > storageBits {
				return TypeLayout{Size: 0, Align: 1}, &Error{Kind: ErrBitfieldTooWide, Type: id}
			}
			if e.Target.BitfieldOrder == abi.BitfieldMSBFirst {
				offsets[i] = uint64(storageBits - int(f.BitWidth))
			}
		}
		aligns[i] = fAlign
		size = maxInt(size, fl.Size)
		align = maxInt(align, fAlign)
	}
	size = roundUp(size, align)
	if size == 0 {
		size = 1
		align = 1
	}
	return TypeLayout{
		Size:             size,
		Align:            align,
		FieldOffsetsBits: offsets,
		FieldAligns:      aligns,
	}, nil
}

// isFlexibleArrayField reports whether the field type (through typedefs)
// is an incomplete array.
func isFlexibleArrayField(types *ctypes.Interner, id ctypes.TypeID) bool {
	tt, ok := types.Lookup(types.ResolveTypedefs(id))
	return ok && tt.Kind == ctypes.KindArray && tt.Count == ctypes.ArrayIncompleteLength
}
