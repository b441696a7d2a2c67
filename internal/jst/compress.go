package jst

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Private-use runes bracket the index of a protected template tag while the
// surrounding markup is tokenised.
const (
	placeholderOpen  = '\uE000'
	placeholderClose = '\uE001'
)

var (
	templateTag    = regexp.MustCompile(`<%[\s\S]*?%>`)
	placeholder    = regexp.MustCompile(`\x{E000}([0-9]+)\x{E001}`)
	whitespaceRun  = regexp.MustCompile(`[ \t\n\r\f]+`)
	preserveSpaces = map[string]bool{
		"pre":      true,
		"textarea": true,
		"script":   true,
		"style":    true,
	}
)

// Compress collapses redundant whitespace in the markup of a template and
// drops plain HTML comments. Template tags, the content of pre, textarea,
// script and style elements, tag markup and conditional comments are left
// byte for byte.
func Compress(source string) string {
	var tags []string
	protected := templateTag.ReplaceAllStringFunc(source, func(tag string) string {
		tags = append(tags, tag)
		return fmt.Sprintf("%c%d%c", placeholderOpen, len(tags)-1, placeholderClose)
	})

	z := html.NewTokenizer(strings.NewReader(protected))
	var out strings.Builder
	out.Grow(len(protected))

	depth := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}

		// Raw must be consumed before TagName, which lower-cases in place.
		raw := string(z.Raw())

		switch tt {
		case html.TextToken:
			if depth > 0 {
				out.WriteString(raw)
			} else {
				out.WriteString(whitespaceRun.ReplaceAllString(raw, " "))
			}
		case html.CommentToken:
			if isConditionalComment(raw) || strings.ContainsRune(raw, placeholderOpen) {
				out.WriteString(raw)
			}
		case html.StartTagToken:
			out.WriteString(raw)
			name, _ := z.TagName()
			if preserveSpaces[string(name)] {
				depth++
			}
		case html.EndTagToken:
			out.WriteString(raw)
			name, _ := z.TagName()
			if preserveSpaces[string(name)] && depth > 0 {
				depth--
			}
		default:
			out.WriteString(raw)
		}
	}

	return placeholder.ReplaceAllStringFunc(out.String(), func(s string) string {
		m := placeholder.FindStringSubmatch(s)
		i, err := strconv.Atoi(m[1])
		if err != nil || i >= len(tags) {
			return s
		}
		return tags[i]
	})
}

func isConditionalComment(raw string) bool {
	return strings.HasPrefix(raw, "<!--[if") || strings.HasPrefix(raw, "<![endif]")
}
