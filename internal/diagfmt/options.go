package diagfmt

// PrettyOpts configures human-readable diagnostic output.
type PrettyOpts struct {
	Color     bool
	ShowNotes bool
	// Max truncates the printed list, not the bag. Zero prints all.
	Max int
}

// JSONOpts configures machine-readable diagnostic output.
type JSONOpts struct {
	// IncludePositions adds line/col to every location.
	IncludePositions bool
	IncludeNotes     bool
	Max              int
}
