package resolve

// reserved holds Go keywords and predeclared identifiers. A resolved name
// landing here gets an underscore suffix so the output always parses.
var reserved = map[string]bool{
	// keywords
	"break": true, "case": true, "chan": true, "const": true,
	"continue": true, "default": true, "defer": true, "else": true,
	"fallthrough": true, "for": true, "func": true, "go": true,
	"goto": true, "if": true, "import": true, "interface": true,
	"map": true, "package": true, "range": true, "return": true,
	"select": true, "struct": true, "switch": true, "type": true,
	"var": true,

	// predeclared identifiers
	"any": true, "bool": true, "byte": true, "comparable": true,
	"complex64": true, "complex128": true, "error": true, "float32": true,
	"float64": true, "int": true, "int8": true, "int16": true,
	"int32": true, "int64": true, "rune": true, "string": true,
	"uint": true, "uint8": true, "uint16": true, "uint32": true,
	"uint64": true, "uintptr": true, "true": true, "false": true,
	"iota": true, "nil": true, "append": true, "cap": true,
	"clear": true, "close": true, "complex": true, "copy": true,
	"delete": true, "imag": true, "len": true, "make": true,
	"max": true, "min": true, "new": true, "panic": true,
	"print": true, "println": true, "real": true, "recover": true,
}

// emitterOwned lists identifiers the generated package declares itself:
// the loader entry point and its helpers. They are claimed before any
// declaration so a C symbol resolving to one of them gets a suffix
// instead of colliding with the loader.
var emitterOwned = []string{"Load", "lib", "loadFuncs", "libraryPath"}
