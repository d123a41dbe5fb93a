package models

const (
	codeMask = "****"

	// TestCodeDigest replaces the digest of placeholder codes issued in test mode.
	TestCodeDigest = "TEST" + codeMask
)

// RedactCode is the only form in which a code may leave the ledger: the first
// four characters followed by a fixed mask. Codes of eight characters or fewer
// keep at most half their length so short codes are never fully exposed.
func RedactCode(code string) string {
	runes := []rune(code)
	keep := 4
	if len(runes) <= 8 {
		keep = len(runes) / 2
	}
	return string(runes[:keep]) + codeMask
}
