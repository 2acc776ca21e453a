package ir

// Version constants for the IR and the compiler.
const (
	// IRVersion is the IR schema version. It is part of the schema hash
	// domain so that a change in IR layout invalidates cached artifacts.
	IRVersion = "1"

	// CompilerVersion is the stef compiler version.
	CompilerVersion = "0.1.0"
)
