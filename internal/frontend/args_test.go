package frontend

import (
	"slices"
	"testing"
)

func TestSplitArgs(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"   ", nil},
		{"-I/usr/include", []string{"-I/usr/include"}},
		{"-I /usr/local/include -DNDEBUG", []string{"-I", "/usr/local/include", "-DNDEBUG"}},
		{`-DNAME="a b"`, []string{"-DNAME=a b"}},
		{`-DPATH='/tmp/x y'`, []string{"-DPATH=/tmp/x y"}},
		{`a\ b c`, []string{"a b", "c"}},
		{`back\\slash`, []string{`back\slash`}},
		{`C:\include`, []string{`C:\include`}},
		{`"" x`, []string{"", "x"}},
	}
	for _, tc := range cases {
		got := SplitArgs(tc.in)
		if !slices.Equal(got, tc.want) {
			t.Errorf("SplitArgs(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
