package frontend

import (
	"fmt"
	"strconv"
	"strings"
)

// EvalConstExpr evaluates a C integer constant expression over int64
// arithmetic. lookup resolves identifiers, typically earlier enumerators
// of the same enum; it may be nil. Supported are integer and character
// literals, parentheses, unary + - ~ !, and the binary operators
// * / % + - << >> & ^ |. Anything else fails with an error naming the
// offending token, and the caller decides how to degrade.
func EvalConstExpr(src string, lookup func(string) (int64, bool)) (int64, error) {
	p := &constExpr{src: src, lookup: lookup}
	v, err := p.binary(0)
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return 0, fmt.Errorf("trailing input %q", p.src[p.pos:])
	}
	return v, nil
}

type constExpr struct {
	src    string
	pos    int
	lookup func(string) (int64, bool)
}

func (p *constExpr) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

// binOps maps each operator to its C precedence level. Higher binds
// tighter; all listed operators associate left.
var binOps = map[string]int{
	"|": 1, "^": 2, "&": 3,
	"<<": 4, ">>": 4,
	"+": 5, "-": 5,
	"*": 6, "/": 6, "%": 6,
}

// peekOp returns the operator at the cursor without consuming it, or ""
// when the next token is not a supported binary operator. Doubled & and
// | are logical operators we do not evaluate, so they stop the parse.
func (p *constExpr) peekOp() string {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return ""
	}
	if p.pos+1 < len(p.src) {
		two := p.src[p.pos : p.pos+2]
		switch two {
		case "<<", ">>":
			return two
		case "&&", "||":
			return ""
		}
	}
	one := p.src[p.pos : p.pos+1]
	if _, ok := binOps[one]; ok {
		return one
	}
	return ""
}

func (p *constExpr) binary(minPrec int) (int64, error) {
	lhs, err := p.unary()
	if err != nil {
		return 0, err
	}
	for {
		op := p.peekOp()
		if op == "" || binOps[op] < minPrec {
			return lhs, nil
		}
		p.pos += len(op)
		rhs, err := p.binary(binOps[op] + 1)
		if err != nil {
			return 0, err
		}
		lhs, err = applyBinOp(op, lhs, rhs)
		if err != nil {
			return 0, err
		}
	}
}

func applyBinOp(op string, lhs, rhs int64) (int64, error) {
	switch op {
	case "|":
		return lhs | rhs, nil
	case "^":
		return lhs ^ rhs, nil
	case "&":
		return lhs & rhs, nil
	case "+":
		return lhs + rhs, nil
	case "-":
		return lhs - rhs, nil
	case "*":
		return lhs * rhs, nil
	case "/":
		if rhs == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		return lhs / rhs, nil
	case "%":
		if rhs == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		return lhs % rhs, nil
	case "<<", ">>":
		if rhs < 0 || rhs > 63 {
			return 0, fmt.Errorf("shift count %d out of range", rhs)
		}
		if op == "<<" {
			return lhs << uint(rhs), nil
		}
		return lhs >> uint(rhs), nil
	}
	return 0, fmt.Errorf("unsupported operator %q", op)
}

func (p *constExpr) unary() (int64, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0, fmt.Errorf("unexpected end of expression")
	}
	switch p.src[p.pos] {
	case '+':
		p.pos++
		return p.unary()
	case '-':
		p.pos++
		v, err := p.unary()
		return -v, err
	case '~':
		p.pos++
		v, err := p.unary()
		return ^v, err
	case '!':
		p.pos++
		v, err := p.unary()
		if err != nil {
			return 0, err
		}
		if v == 0 {
			return 1, nil
		}
		return 0, nil
	case '(':
		p.pos++
		v, err := p.binary(0)
		if err != nil {
			return 0, err
		}
		p.skipSpace()
		if p.pos >= len(p.src) || p.src[p.pos] != ')' {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return v, nil
	case '\'':
		return p.charLit()
	}
	return p.primary()
}

func (p *constExpr) charLit() (int64, error) {
	end := strings.IndexByte(p.src[p.pos+1:], '\'')
	if end < 0 {
		return 0, fmt.Errorf("unterminated character literal")
	}
	body := p.src[p.pos+1 : p.pos+1+end]
	p.pos += end + 2
	r, _, rest, err := strconv.UnquoteChar(body, '\'')
	if err != nil || rest != "" {
		return 0, fmt.Errorf("bad character literal %q", body)
	}
	return int64(r), nil
}

func (p *constExpr) primary() (int64, error) {
	start := p.pos
	for p.pos < len(p.src) && isWordByte(p.src[p.pos]) {
		p.pos++
	}
	tok := p.src[start:p.pos]
	if tok == "" {
		return 0, fmt.Errorf("unexpected character %q", p.src[p.pos])
	}
	if tok[0] >= '0' && tok[0] <= '9' {
		lit := strings.TrimRight(tok, "uUlL")
		v, err := strconv.ParseInt(lit, 0, 64)
		if err != nil {
			return 0, fmt.Errorf("bad numeric literal %q", tok)
		}
		return v, nil
	}
	if p.lookup != nil {
		if v, ok := p.lookup(tok); ok {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown identifier %q", tok)
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' ||
		b >= '0' && b <= '9' || b == '_'
}
