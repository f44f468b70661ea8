// Package abi describes the target platform rules every layout and
// naming decision is parameterized by. Nothing downstream hard-codes a
// platform: the Target table is validated once, up front, and a broken
// table aborts the whole run before any declaration is processed.
package abi

import (
	"fmt"
	"strings"

	"ffigen/internal/ctypes"
)

// BitfieldOrder selects which end of a storage unit bit 0 maps to.
type BitfieldOrder uint8

const (
	// BitfieldLSBFirst packs bitfields starting at the least significant
	// bit (the usual little-endian compiler behavior).
	BitfieldLSBFirst BitfieldOrder = iota
	BitfieldMSBFirst
)

// EnumRepr selects the policy for an enum's underlying integer type when
// the frontend did not supply one.
type EnumRepr uint8

const (
	// EnumReprSmallest picks the narrowest integer type that represents
	// every variant value, preferring unsigned when all values are
	// non-negative.
	EnumReprSmallest EnumRepr = iota
	// EnumReprInt32 fixes the underlying type to a signed 32-bit integer
	// (what most C compilers do for plain enums).
	EnumReprInt32
	// EnumReprUint32 fixes the underlying type to an unsigned 32-bit integer.
	EnumReprUint32
)

// ScalarLayout is the size/alignment pair for one primitive, in bytes.
type ScalarLayout struct {
	Size  int
	Align int
}

// Target is the ABI table for one platform.
type Target struct {
	Triple string

	PtrSize  int
	PtrAlign int

	// C integer model: widths in bits for the labeled C types.
	ShortWidth    int
	IntWidth      int
	LongWidth     int
	LongLongWidth int

	// Alignment for fixed-width integers, keyed by width in bits.
	IntAlign map[int]int

	Float  ScalarLayout
	Double ScalarLayout
	Bool   ScalarLayout

	// PackOverride caps member alignment the way #pragma pack(n) does.
	// Zero means natural alignment.
	PackOverride int

	BitfieldOrder BitfieldOrder
	EnumRepr      EnumRepr

	// CharSigned reports whether plain "char" is signed on this target.
	CharSigned bool
}

// X86_64LinuxGNU returns the LP64 System V table.
func X86_64LinuxGNU() Target {
	return Target{
		Triple:        "x86_64-linux-gnu",
		PtrSize:       8,
		PtrAlign:      8,
		ShortWidth:    16,
		IntWidth:      32,
		LongWidth:     64,
		LongLongWidth: 64,
		IntAlign:      map[int]int{8: 1, 16: 2, 32: 4, 64: 8},
		Float:         ScalarLayout{Size: 4, Align: 4},
		Double:        ScalarLayout{Size: 8, Align: 8},
		Bool:          ScalarLayout{Size: 1, Align: 1},
		EnumRepr:      EnumReprInt32,
		CharSigned:    true,
	}
}

// ByTriple resolves a named target table.
func ByTriple(triple string) (Target, error) {
	switch strings.TrimSpace(triple) {
	case "", "x86_64-linux-gnu", "aarch64-linux-gnu":
		t := X86_64LinuxGNU()
		if triple != "" {
			t.Triple = triple
		}
		return t, nil
	default:
		return Target{}, fmt.Errorf("abi: unknown target triple %q", triple)
	}
}

// ScalarAlign returns the alignment of a fixed-width integer.
func (t Target) ScalarAlign(width ctypes.Width) int {
	if a, ok := t.IntAlign[int(width)]; ok {
		return a
	}
	return int(width) / 8
}

// IntWidthOf maps a C integer spelling class to a ctypes width.
func (t Target) IntWidthOf(bits int) ctypes.Width {
	switch bits {
	case 8:
		return ctypes.Width8
	case 16:
		return ctypes.Width16
	case 32:
		return ctypes.Width32
	default:
		return ctypes.Width64
	}
}

// Fingerprint folds every layout-affecting knob into a stable string, used
// to key the generation cache: a different table must never reuse output
// produced under another one.
func (t Target) Fingerprint() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s|ptr%d/%d|s%d i%d l%d ll%d|", t.Triple, t.PtrSize, t.PtrAlign,
		t.ShortWidth, t.IntWidth, t.LongWidth, t.LongLongWidth)
	for _, w := range []int{8, 16, 32, 64} {
		fmt.Fprintf(&sb, "a%d=%d ", w, t.IntAlign[w])
	}
	fmt.Fprintf(&sb, "|f%d/%d d%d/%d b%d/%d|pack%d|bf%d|enum%d|chs%t",
		t.Float.Size, t.Float.Align, t.Double.Size, t.Double.Align,
		t.Bool.Size, t.Bool.Align, t.PackOverride, t.BitfieldOrder, t.EnumRepr, t.CharSigned)
	return sb.String()
}
