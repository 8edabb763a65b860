package vcf

// LineReader is the interface for sources of raw VCF data lines.
// *Parser implements it; the matrix builder consumes it.
type LineReader interface {
	// NextLine reads the next data line and its 1-based line number.
	// Returns "" when there are no more lines.
	NextLine() (string, int, error)

	// SampleNames returns the sample columns in order.
	SampleNames() []string

	// Close closes the reader and releases resources.
	Close() error
}
