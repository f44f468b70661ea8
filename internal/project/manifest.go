// Package project loads the ffigen.toml manifest describing one binding
// generation project: which headers to read, the target ABI, naming
// rules, and the libraries the bindings link against.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"ffigen/internal/abi"
)

// ManifestName is the file ffigen looks for when no manifest is given.
const ManifestName = "ffigen.toml"

// Manifest is the parsed ffigen.toml.
type Manifest struct {
	Package  PackageSection  `toml:"package"`
	Target   TargetSection   `toml:"target"`
	Generate GenerateSection `toml:"generate"`
	Link     []LinkEntry     `toml:"link"`

	// Dir is the directory the manifest was loaded from; relative paths
	// inside it resolve against Dir.
	Dir string `toml:"-"`
}

// PackageSection names the generated Go package.
type PackageSection struct {
	Name string `toml:"name"`
}

// TargetSection selects and tunes the ABI table.
type TargetSection struct {
	Triple string `toml:"triple"`

	// BitfieldOrder overrides the table default: "lsb" or "msb".
	BitfieldOrder string `toml:"bitfield_order"`

	// EnumType forces the enum underlying type policy: "smallest",
	// "int32", or "uint32".
	EnumType string `toml:"enum_type"`

	// Pack applies a global #pragma pack ceiling in bytes.
	Pack int `toml:"pack"`
}

// GenerateSection controls what is read and how it is rendered.
type GenerateSection struct {
	Headers []string `toml:"headers"`

	// Match keeps only declarations whose C name contains one of these
	// substrings. Empty keeps everything.
	Match []string `toml:"match"`

	TrimPrefixes []string `toml:"trim_prefixes"`

	// Naming is "pascal" (default) or "preserve".
	Naming string `toml:"naming"`

	// Builtins also renders fixed-width typedefs the headers pulled in
	// from compiler builtin headers.
	Builtins bool `toml:"builtins"`

	AllowUnknownTypes bool `toml:"allow_unknown_types"`

	// ParserArgs is a shell-style string of extra frontend arguments.
	ParserArgs string `toml:"parser_args"`

	// Output is the directory generated files are written to.
	Output string `toml:"output"`
}

// LinkEntry records one library the bindings bind against.
type LinkEntry struct {
	Name string `toml:"name"`
	Kind string `toml:"kind"` // static, dynamic, framework
}

var errNoManifest = errors.New("project: no ffigen.toml found")

// IsNotFound reports whether err means no manifest exists.
func IsNotFound(err error) bool {
	return errors.Is(err, errNoManifest)
}

// Find walks up from startDir to the nearest ffigen.toml.
func Find(startDir string) (string, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("project: resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("project: stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errNoManifest
		}
		dir = parent
	}
}

// Load parses and validates a manifest file.
func Load(path string) (*Manifest, error) {
	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("%s: parse: %w", path, err)
	}
	m.Dir = filepath.Dir(path)
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	if m.Package.Name == "" {
		return errors.New("[package].name is required")
	}
	if len(m.Generate.Headers) == 0 {
		return errors.New("[generate].headers must list at least one header")
	}
	for _, l := range m.Link {
		switch l.Kind {
		case "", "static", "dynamic", "framework":
		default:
			return fmt.Errorf("[[link]] %q: unknown kind %q", l.Name, l.Kind)
		}
		if l.Name == "" {
			return errors.New("[[link]] entries need a name")
		}
	}
	switch strings.ToLower(m.Generate.Naming) {
	case "", "pascal", "preserve":
	default:
		return fmt.Errorf("[generate].naming: unknown convention %q", m.Generate.Naming)
	}
	return nil
}

// HeaderPaths resolves header entries against the manifest directory.
func (m *Manifest) HeaderPaths() []string {
	out := make([]string, len(m.Generate.Headers))
	for i, h := range m.Generate.Headers {
		if filepath.IsAbs(h) {
			out[i] = h
		} else {
			out[i] = filepath.Join(m.Dir, h)
		}
	}
	return out
}

// PrimaryLibrary picks the loader's library: the first dynamic (or
// unkinded) link entry.
func (m *Manifest) PrimaryLibrary() string {
	for _, l := range m.Link {
		if l.Kind == "" || l.Kind == "dynamic" {
			return l.Name
		}
	}
	if len(m.Link) > 0 {
		return m.Link[0].Name
	}
	return ""
}

// ResolveTarget builds the ABI table from the [target] section. A table
// the section breaks (bad order, bad enum policy) is a configuration
// error and aborts the run.
func (m *Manifest) ResolveTarget() (abi.Target, error) {
	t, err := abi.ByTriple(m.Target.Triple)
	if err != nil {
		return abi.Target{}, err
	}
	switch strings.ToLower(m.Target.BitfieldOrder) {
	case "":
	case "lsb":
		t.BitfieldOrder = abi.BitfieldLSBFirst
	case "msb":
		t.BitfieldOrder = abi.BitfieldMSBFirst
	default:
		return abi.Target{}, &abi.ConfigError{Field: "bitfield_order",
			Detail: fmt.Sprintf("unknown value %q", m.Target.BitfieldOrder)}
	}
	switch strings.ToLower(m.Target.EnumType) {
	case "":
	case "smallest":
		t.EnumRepr = abi.EnumReprSmallest
	case "int32":
		t.EnumRepr = abi.EnumReprInt32
	case "uint32":
		t.EnumRepr = abi.EnumReprUint32
	default:
		return abi.Target{}, &abi.ConfigError{Field: "enum_type",
			Detail: fmt.Sprintf("unknown value %q", m.Target.EnumType)}
	}
	t.PackOverride = m.Target.Pack
	if err := t.Validate(); err != nil {
		return abi.Target{}, err
	}
	return t, nil
}
