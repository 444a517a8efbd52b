package driven

// Parser extracts plain text from an uploaded document.
type Parser interface {
	// Parse returns the document text. Paragraphs are separated by blank lines.
	Parse(data []byte) (string, error)

	// SupportedExtensions returns lower-case file extensions including the dot
	SupportedExtensions() []string

	// Priority returns the parser priority (higher = more specific).
	Priority() int
}

// ParserRegistry selects parsers by file extension.
// When multiple parsers match, the highest priority one is used.
type ParserRegistry interface {
	// Get retrieves the best parser for a filename, or nil.
	Get(filename string) Parser

	// Register registers a parser.
	Register(parser Parser)

	// List returns all registered extensions, sorted.
	List() []string
}
