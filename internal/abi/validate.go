package abi

import (
	"fmt"
)

// ConfigError reports an internally inconsistent ABI table. It is the one
// fatal error family: every downstream computation depends on the table,
// so the run aborts before any declaration is processed.
type ConfigError struct {
	Field  string
	Detail string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("abi configuration: %s: %s", e.Field, e.Detail)
}

func isPow2(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Validate checks the table for internal consistency.
func (t Target) Validate() error {
	if t.PtrSize <= 0 || !isPow2(t.PtrSize) {
		return &ConfigError{Field: "pointer size", Detail: fmt.Sprintf("%d is not a positive power of two", t.PtrSize)}
	}
	if !isPow2(t.PtrAlign) {
		return &ConfigError{Field: "pointer alignment", Detail: fmt.Sprintf("%d is not a power of two", t.PtrAlign)}
	}
	for _, w := range []int{8, 16, 32, 64} {
		a, ok := t.IntAlign[w]
		if !ok {
			return &ConfigError{Field: fmt.Sprintf("int%d alignment", w), Detail: "missing"}
		}
		if !isPow2(a) {
			return &ConfigError{Field: fmt.Sprintf("int%d alignment", w), Detail: fmt.Sprintf("%d is not a power of two", a)}
		}
		if a > w/8 {
			return &ConfigError{Field: fmt.Sprintf("int%d alignment", w), Detail: fmt.Sprintf("%d exceeds size %d", a, w/8)}
		}
	}
	for _, s := range []struct {
		name   string
		layout ScalarLayout
	}{
		{"float", t.Float},
		{"double", t.Double},
		{"bool", t.Bool},
	} {
		if s.layout.Size <= 0 {
			return &ConfigError{Field: s.name, Detail: "size must be positive"}
		}
		if !isPow2(s.layout.Align) {
			return &ConfigError{Field: s.name, Detail: fmt.Sprintf("alignment %d is not a power of two", s.layout.Align)}
		}
	}
	for _, w := range []struct {
		name string
		bits int
	}{
		{"short", t.ShortWidth},
		{"int", t.IntWidth},
		{"long", t.LongWidth},
		{"long long", t.LongLongWidth},
	} {
		switch w.bits {
		case 8, 16, 32, 64:
		default:
			return &ConfigError{Field: w.name + " width", Detail: fmt.Sprintf("%d bits unsupported", w.bits)}
		}
	}
	if t.PackOverride != 0 && !isPow2(t.PackOverride) {
		return &ConfigError{Field: "pack override", Detail: fmt.Sprintf("%d is not a power of two", t.PackOverride)}
	}
	switch t.BitfieldOrder {
	case BitfieldLSBFirst, BitfieldMSBFirst:
	default:
		return &ConfigError{Field: "bitfield order", Detail: fmt.Sprintf("unknown value %d", t.BitfieldOrder)}
	}
	switch t.EnumRepr {
	case EnumReprSmallest, EnumReprInt32, EnumReprUint32:
	default:
		return &ConfigError{Field: "enum repr", Detail: fmt.Sprintf("unknown value %d", t.EnumRepr)}
	}
	return nil
}
