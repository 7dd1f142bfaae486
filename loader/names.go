package loader

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultSearchEnv names the environment variable holding extra search directories.
const DefaultSearchEnv = "DYNLIB_PATH"

const posixExt = ".so"

// nameVariants returns the spellings of name to try, most specific first:
// the name with the native extension, the lib-prefixed form, then the name as given.
func nameVariants(name, ext string) []string {
	dir, base := filepath.Split(name)
	native := withExt(base, ext)

	variants := []string{dir + native}
	if !strings.HasPrefix(base, "lib") {
		variants = append(variants, dir+"lib"+native)
	}
	variants = append(variants, name)
	return dedupe(variants)
}

// withExt attaches ext to base unless an extension is already present.
// A POSIX ".so" suffix is swapped for ext on platforms that use another one.
func withExt(base, ext string) string {
	if hasExt(base, ext) {
		return base
	}
	if ext != posixExt && hasSuffixFold(base, posixExt) {
		return base[:len(base)-len(posixExt)] + ext
	}
	return base + ext
}

// hasExt also accepts versioned names such as libc.so.6.
func hasExt(base, ext string) bool {
	lower := strings.ToLower(base)
	ext = strings.ToLower(ext)
	return strings.HasSuffix(lower, ext) || strings.Contains(lower, ext+".")
}

func hasSuffixFold(s, suffix string) bool {
	return len(s) >= len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix)
}

// splitSearchPath splits a list of directories separated by os.PathListSeparator.
func splitSearchPath(list string) []string {
	var dirs []string
	for _, dir := range filepath.SplitList(list) {
		if dir != "" {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

func (l *Loader) searchDirs() []string {
	dirs := append([]string(nil), l.dirs...)
	if l.env != "" {
		dirs = append(dirs, splitSearchPath(os.Getenv(l.env))...)
	}
	return dedupe(dirs)
}

// Candidates returns the paths Open tries for name, in order. Bare names are
// looked up in every search directory before being left to the platform's
// default search.
func (l *Loader) Candidates(name string) []string {
	if name == "" {
		return nil
	}

	variants := nameVariants(name, l.platform.Ext())

	var out []string
	if !hasDir(name) {
		for _, dir := range l.searchDirs() {
			for _, v := range variants {
				out = append(out, filepath.Join(dir, v))
			}
		}
	}
	out = append(out, variants...)
	return dedupe(out)
}

func hasDir(name string) bool {
	dir, _ := filepath.Split(name)
	return dir != ""
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
