package build

import "strings"

const (
	envelopeOpen  = "define([], function() { var temp={};"
	envelopeClose = "\n return temp;})"
)

// Assemble wraps the namespace assignments in body into the AMD module
// envelope and prepends the metadata header.
func Assemble(body string, metadata Metadata) (string, error) {
	var b strings.Builder
	b.Grow(len(envelopeOpen) + len(body) + len(envelopeClose))
	b.WriteString(envelopeOpen)
	b.WriteString(body)
	b.WriteString(envelopeClose)

	return SetMetadata(b.String(), metadata)
}
