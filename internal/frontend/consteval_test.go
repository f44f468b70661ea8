package frontend

import "testing"

func TestEvalConstExpr(t *testing.T) {
	env := map[string]int64{"RED": 4, "BLUE": 8}
	lookup := func(name string) (int64, bool) {
		v, ok := env[name]
		return v, ok
	}
	tests := []struct {
		expr string
		want int64
	}{
		{"1 << 4", 16},
		{"(1 << 4) | 1", 17},
		{"0x10 + 2", 18},
		{"010", 8},
		{"1u << 3", 8},
		{"0x80000000UL", 1 << 31},
		{"-1", -1},
		{"~0", -1},
		{"!0", 1},
		{"!7", 0},
		{"2 + 3 * 4", 14},
		{"(2 + 3) * 4", 20},
		{"1 << 2 << 3", 32},
		{"100 / 7", 14},
		{"100 % 7", 2},
		{"8 >> 2", 2},
		{"255 & 0x0f", 15},
		{"5 ^ 3", 6},
		{"RED | BLUE", 12},
		{"RED * 2 + 1", 9},
		{"'A'", 65},
		{"'\\n'", 10},
	}
	for _, tc := range tests {
		got, err := EvalConstExpr(tc.expr, lookup)
		if err != nil {
			t.Errorf("EvalConstExpr(%q): %v", tc.expr, err)
			continue
		}
		if got != tc.want {
			t.Errorf("EvalConstExpr(%q) = %d, want %d", tc.expr, got, tc.want)
		}
	}
}

func TestEvalConstExprRejects(t *testing.T) {
	for _, expr := range []string{
		"",
		"sizeof(int)",
		"UNKNOWN_NAME",
		"1 +",
		"(1",
		"1 ? 2 : 3",
		"1 && 1",
		"1 || 0",
		"1.5",
		"1 / 0",
		"7 % 0",
		"1 << 64",
		`"text"`,
	} {
		if _, err := EvalConstExpr(expr, nil); err == nil {
			t.Errorf("EvalConstExpr(%q) succeeded, want error", expr)
		}
	}
}
