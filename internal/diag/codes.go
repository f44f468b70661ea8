package diag

import (
	"fmt"
)

// Code is a compact, stable identifier for one diagnostic condition.
//
// Numbering is grouped by phase: 1xxx ingestion, 2xxx graph building,
// 3xxx layout, 4xxx name resolution, 5xxx emission, 9xxx configuration.
type Code uint16

const (
	UnknownCode Code = 0

	// Ingestion: the frontend handed us something we do not model.
	IngUnsupportedCursor  Code = 1001
	IngUnsupportedType    Code = 1002
	IngMacroNotConstant   Code = 1003
	IngMissingDeclarator  Code = 1004
	IngFrontendParseError Code = 1005

	// Graph building.
	GraphIncompleteType     Code = 2001
	GraphUnsupportedDecl    Code = 2002
	GraphDuplicateName      Code = 2003
	GraphUnknownTypeName    Code = 2004
	GraphConstOutOfRange    Code = 2005
	GraphVariadicFunction   Code = 2006
	GraphFlexibleArrayField Code = 2007

	// Layout.
	LayoutUnresolvable    Code = 3001
	LayoutRecursiveValue  Code = 3002
	LayoutSizeDisagrees   Code = 3003
	LayoutZeroSized       Code = 3004
	LayoutBitfieldTooWide Code = 3005

	// Name resolution. Collisions are always resolved; these are info-level.
	NameKeywordCollision Code = 4001
	NameDuplicateRenamed Code = 4002
	NameAnonymousHoisted Code = 4003

	// Emission.
	EmitOpaquePlaceholder Code = 5001
	EmitVariadicStub      Code = 5002
	EmitUnknownSize       Code = 5003

	// Configuration. The only fatal family: the run aborts before any
	// declaration is processed.
	ConfigBadAlignment  Code = 9001
	ConfigBadWidth      Code = 9002
	ConfigBadEnumPolicy Code = 9003
	ConfigBadNaming     Code = 9004
)

func (c Code) String() string {
	return fmt.Sprintf("FG%04d", uint16(c))
}
