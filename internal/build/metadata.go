package build

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/goccy/go-json"
)

// MetadataMarker opens the metadata comment at the head of an artifact.
const MetadataMarker = "PREJST:"

var (
	metadataComment = regexp.MustCompile(`/\*PREJST:(.*?)\*/\n?`)
	leadingMetadata = regexp.MustCompile(`^/\*PREJST:.*\*/`)
)

// Metadata is the JSON record stored in the artifact header.
type Metadata map[string]interface{}

// Version returns the version field as a string, "" when absent.
func (m Metadata) Version() string {
	switch v := m["version"].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// SetMetadata removes every metadata comment from code and prepends a single
// fresh one holding metadata.
func SetMetadata(code string, metadata Metadata) (string, error) {
	if metadata == nil {
		metadata = Metadata{}
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("failed to encode metadata: %w", err)
	}

	code = metadataComment.ReplaceAllString(code, "")
	return "/*" + MetadataMarker + commentSafe(string(data)) + "*/\n" + code, nil
}

// GetMetadata parses the first metadata comment in code. It returns nil
// without error when code carries none.
func GetMetadata(code string) (Metadata, error) {
	m := metadataComment.FindStringSubmatch(code)
	if m == nil {
		return nil, nil
	}

	var metadata Metadata
	if err := json.Unmarshal([]byte(m[1]), &metadata); err != nil {
		return nil, fmt.Errorf("invalid metadata comment: %w", err)
	}
	return metadata, nil
}

// RemoveMetadata replaces a leading metadata comment with a compact
// /*v:<version>*/ tag, or with nothing when the metadata has no version.
func RemoveMetadata(code string) string {
	if !leadingMetadata.MatchString(code) {
		return code
	}

	tag := ""
	if metadata, err := GetMetadata(code); err == nil {
		if v := metadata.Version(); v != "" {
			tag = "/*v:" + commentSafe(v) + "*/"
		}
	}

	return leadingMetadata.ReplaceAllLiteralString(code, tag)
}

// commentSafe escapes every */ so text cannot end its block comment early.
// In JSON strings *\/ decodes back to */.
func commentSafe(text string) string {
	return strings.ReplaceAll(text, "*/", `*\/`)
}
