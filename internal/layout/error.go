package layout

import (
	"fmt"
	"strings"

	"ffigen/internal/ctypes"
)

// ErrorKind enumerates layout computation failures. Each one demotes the
// affected node to an opaque placeholder; none aborts the run.
type ErrorKind uint8

const (
	// ErrRecursiveValue: a type contains itself by value, so no finite
	// size exists.
	ErrRecursiveValue ErrorKind = iota + 1
	// ErrIncomplete: the type was never defined.
	ErrIncomplete
	// ErrFlexibleArray: the aggregate ends in a flexible array member.
	ErrFlexibleArray
	// ErrBitfieldTooWide: a bitfield is wider than its storage unit.
	ErrBitfieldTooWide
	// ErrArrayTooLarge: an array size overflows the address space model.
	ErrArrayTooLarge
)

// Error describes one failed layout computation.
type Error struct {
	Kind  ErrorKind
	Type  ctypes.TypeID
	Cycle []ctypes.TypeID // ErrRecursiveValue only
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case ErrRecursiveValue:
		if len(e.Cycle) == 0 {
			return fmt.Sprintf("recursive value type has infinite size (type#%d)", e.Type)
		}
		parts := make([]string, 0, len(e.Cycle))
		for _, id := range e.Cycle {
			parts = append(parts, fmt.Sprintf("type#%d", id))
		}
		return fmt.Sprintf("recursive value type has infinite size (cycle: %s)", strings.Join(parts, " -> "))
	case ErrIncomplete:
		return fmt.Sprintf("incomplete type has no layout (type#%d)", e.Type)
	case ErrFlexibleArray:
		return fmt.Sprintf("flexible array member makes layout unresolvable (type#%d)", e.Type)
	case ErrBitfieldTooWide:
		return fmt.Sprintf("bitfield wider than its storage unit (type#%d)", e.Type)
	case ErrArrayTooLarge:
		return fmt.Sprintf("array size overflows (type#%d)", e.Type)
	default:
		return fmt.Sprintf("layout error kind=%d type#%d", e.Kind, e.Type)
	}
}
