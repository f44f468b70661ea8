package tsc

import (
	"strconv"
	"strings"
)

type packAction uint8

const (
	packSet packAction = iota
	packPush
	packPop
)

// packOp is one decoded #pragma pack directive. value is meaningful only
// when hasValue is set; packSet without a value restores natural
// alignment, pack().
type packOp struct {
	action   packAction
	value    int
	hasValue bool
}

// parsePackPragma recognizes the #pragma pack directive family:
// pack(), pack(N), pack(push), pack(push, N), and pack(pop). ok is false
// for every other pragma, which callers skip without effect.
func parsePackPragma(text string) (packOp, bool) {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "#") {
		return packOp{}, false
	}
	s, ok := trimWord(strings.TrimSpace(s[1:]), "pragma")
	if !ok {
		return packOp{}, false
	}
	s, ok = trimWord(s, "pack")
	if !ok {
		return packOp{}, false
	}
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return packOp{}, false
	}
	inner := strings.TrimSpace(s[1 : len(s)-1])
	if inner == "" {
		return packOp{action: packSet}, true
	}
	parts := strings.Split(inner, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	switch parts[0] {
	case "push":
		op := packOp{action: packPush}
		if len(parts) > 1 {
			n, err := strconv.Atoi(parts[1])
			if err != nil || n <= 0 {
				return packOp{}, false
			}
			op.value, op.hasValue = n, true
		}
		return op, true
	case "pop":
		return packOp{action: packPop}, true
	default:
		n, err := strconv.Atoi(parts[0])
		if err != nil || n <= 0 {
			return packOp{}, false
		}
		return packOp{action: packSet, value: n, hasValue: true}, true
	}
}

// trimWord strips a leading identifier word plus trailing space, failing
// when the word is only a prefix of a longer identifier.
func trimWord(s, w string) (string, bool) {
	if !strings.HasPrefix(s, w) {
		return s, false
	}
	rest := s[len(w):]
	if rest != "" && isIdentByte(rest[0]) {
		return s, false
	}
	return strings.TrimSpace(rest), true
}

func isIdentByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' ||
		b >= '0' && b <= '9' || b == '_'
}
