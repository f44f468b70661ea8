package graph

import (
	"encoding/binary"
	"hash/fnv"

	"ffigen/internal/ctypes"
)

// fingerprintFields hashes the shape of an anonymous aggregate: kind tag,
// field names, resolved member TypeIDs, and bitfield widths. Two inline
// definitions with the same shape collapse into one hoisted node, keeping
// output independent of how many times a header repeats the pattern.
func fingerprintFields(tag byte, fields []ctypes.Field) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	h.Write([]byte{tag})
	for _, f := range fields {
		binary.LittleEndian.PutUint32(buf[:4], uint32(f.Name))
		h.Write(buf[:4])
		binary.LittleEndian.PutUint32(buf[:4], uint32(f.Type))
		h.Write(buf[:4])
		w := uint32(0)
		if f.IsBitfield {
			w = f.BitWidth + 1
		}
		binary.LittleEndian.PutUint32(buf[:4], w)
		h.Write(buf[:4])
	}
	return h.Sum64()
}

func fingerprintVariants(variants []ctypes.EnumVariant) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	h.Write([]byte{'e'})
	for _, v := range variants {
		binary.LittleEndian.PutUint32(buf[:4], uint32(v.Name))
		h.Write(buf[:4])
		binary.LittleEndian.PutUint64(buf[:], uint64(v.Value))
		h.Write(buf[:])
	}
	return h.Sum64()
}
