package build

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	// Names starting with a dot or holding characters outside [A-Za-z0-9_.$-].
	rejectedName = regexp.MustCompile(`^\.|[^\w.\-$]`)
	templateExt  = regexp.MustCompile(`(?i)\.(html|htm|jst)$`)
)

// FilterBasename reports whether name is usable as a template file name.
func FilterBasename(name string) bool {
	return !rejectedName.MatchString(name)
}

// FilterExtname reports whether name carries a template extension.
func FilterExtname(name string) bool {
	return templateExt.MatchString(name)
}

// ResolveID returns the template ID of path: its basename without extension.
// Templates sharing a basename in different directories share an ID; the
// namespace recorded on CompiledEntry tells them apart.
func ResolveID(path, base string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))

	if i := strings.LastIndex(rel, "/"); i >= 0 {
		rel = rel[i+1:]
	}
	return rel
}
