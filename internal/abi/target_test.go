package abi

import (
	"errors"
	"testing"
)

func TestDefaultTableValidates(t *testing.T) {
	if err := X86_64LinuxGNU().Validate(); err != nil {
		t.Fatalf("default table invalid: %v", err)
	}
}

func TestByTriple(t *testing.T) {
	if _, err := ByTriple(""); err != nil {
		t.Errorf("empty triple should pick the default table: %v", err)
	}
	got, err := ByTriple("aarch64-linux-gnu")
	if err != nil {
		t.Fatalf("ByTriple: %v", err)
	}
	if got.Triple != "aarch64-linux-gnu" {
		t.Errorf("triple = %q", got.Triple)
	}
	if _, err := ByTriple("m68k-sunos"); err == nil {
		t.Error("unknown triple accepted")
	}
}

func TestValidateRejectsBrokenTables(t *testing.T) {
	cases := []struct {
		name  string
		field string
		mod   func(*Target)
	}{
		{"pointer size", "pointer size", func(t *Target) { t.PtrSize = 3 }},
		{"missing int align", "int16 alignment", func(t *Target) { delete(t.IntAlign, 16) }},
		{"align exceeds size", "int8 alignment", func(t *Target) { t.IntAlign[8] = 2 }},
		{"pack", "pack override", func(t *Target) { t.PackOverride = 3 }},
		{"bitfield order", "bitfield order", func(t *Target) { t.BitfieldOrder = BitfieldOrder(9) }},
		{"enum repr", "enum repr", func(t *Target) { t.EnumRepr = EnumRepr(9) }},
		{"int width", "int width", func(t *Target) { t.IntWidth = 24 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tbl := X86_64LinuxGNU()
			tc.mod(&tbl)
			err := tbl.Validate()
			var cerr *ConfigError
			if !errors.As(err, &cerr) {
				t.Fatalf("err = %v, want ConfigError", err)
			}
			if cerr.Field != tc.field {
				t.Errorf("field = %q, want %q", cerr.Field, tc.field)
			}
		})
	}
}

func TestFingerprintReactsToKnobs(t *testing.T) {
	base := X86_64LinuxGNU().Fingerprint()

	packed := X86_64LinuxGNU()
	packed.PackOverride = 2
	if packed.Fingerprint() == base {
		t.Error("pack override did not change the fingerprint")
	}

	msb := X86_64LinuxGNU()
	msb.BitfieldOrder = BitfieldMSBFirst
	if msb.Fingerprint() == base {
		t.Error("bitfield order did not change the fingerprint")
	}

	if X86_64LinuxGNU().Fingerprint() != base {
		t.Error("fingerprint not stable for identical tables")
	}
}

func TestScalarAlign(t *testing.T) {
	tbl := X86_64LinuxGNU()
	if got := tbl.ScalarAlign(64); got != 8 {
		t.Errorf("ScalarAlign(64) = %d, want 8", got)
	}
	tbl.IntAlign[64] = 4
	if got := tbl.ScalarAlign(64); got != 4 {
		t.Errorf("ScalarAlign honors the table: got %d, want 4", got)
	}
}
