package data

import (
	"strings"
)

// Separator is the single path separator.
const Separator = "/"

// Extension separator used by Path.Extension.
const extensionSeparator = "."

// Path is a POSIX-style path. Paths built with NewPath are validated: they
// contain no null bytes and are not empty. A Path value is immutable; every
// operation returns a new Path.
type Path string

// Root is the absolute root path.
const Root Path = Separator

// NewPath validates s and returns it as a Path.
func NewPath(s string) (Path, error) {
	if !isValid(s, false) {
		return "", ErrInvalidPath
	}
	return Path(s), nil
}

// NewPathAllowEmpty is NewPath but accepts the empty string, which is used
// as the "no residual" marker by some backends.
func NewPathAllowEmpty(s string) (Path, error) {
	if !isValid(s, true) {
		return "", ErrInvalidPath
	}
	return Path(s), nil
}

// MustPath is NewPath for paths known at compile time, such as device names.
// It panics on an invalid path.
func MustPath(s string) Path {
	p, err := NewPath(s)
	if err != nil {
		panic("xila: invalid static path " + s)
	}
	return p
}

func isValid(s string, allowEmpty bool) bool {
	if s == "" {
		return allowEmpty
	}
	return !strings.ContainsRune(s, 0)
}

func (p Path) String() string {
	return string(p)
}

// IsValid reports whether p satisfies the NewPath rules.
func (p Path) IsValid() bool {
	return isValid(string(p), false)
}

// IsAbsolute reports whether p starts at the root.
func (p Path) IsAbsolute() bool {
	return strings.HasPrefix(string(p), Separator)
}

// IsRoot reports whether p is the root path.
func (p Path) IsRoot() bool {
	return p == Root
}

// Join appends segment to p, inserting exactly one separator between them.
func (p Path) Join(segment string) (Path, error) {
	if strings.ContainsRune(segment, 0) {
		return "", ErrInvalidPath
	}

	segment = strings.TrimPrefix(segment, Separator)
	if segment == "" {
		return p, nil
	}

	base := string(p)
	if base == "" {
		return NewPath(segment)
	}

	if strings.HasSuffix(base, Separator) {
		return Path(base + segment), nil
	}

	return Path(base + Separator + segment), nil
}

// Append is Join for another Path.
func (p Path) Append(other Path) (Path, error) {
	return p.Join(string(other))
}

// Parent strips the trailing segment. The parent of root does not exist and
// reports ok=false; a relative single segment also has no parent.
func (p Path) Parent() (Path, bool) {
	s := strings.TrimSuffix(string(p), Separator)
	if s == "" {
		return "", false
	}

	index := strings.LastIndex(s, Separator)
	switch {
	case index < 0:
		return "", false
	case index == 0:
		return Root, true
	default:
		return Path(s[:index]), true
	}
}

// Segments splits p into its non-empty components.
func (p Path) Segments() []string {
	parts := strings.Split(string(p), Separator)
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			segments = append(segments, part)
		}
	}
	return segments
}

// FileName returns the last segment, or "" for root.
func (p Path) FileName() string {
	segments := p.Segments()
	if len(segments) == 0 {
		return ""
	}
	return segments[len(segments)-1]
}

// Extension returns the part of the file name after the last dot, without the
// dot. Hidden files without a further dot have no extension.
func (p Path) Extension() string {
	name := p.FileName()
	index := strings.LastIndex(name, extensionSeparator)
	if index <= 0 {
		return ""
	}
	return name[index+1:]
}

// StripPrefixAbsolute returns the residual of p after prefix, as an absolute
// path. Matching is segment-aware: "/ab" is not under "/a". When p equals
// prefix the residual is root.
func (p Path) StripPrefixAbsolute(prefix Path) (Path, bool) {
	if !p.IsAbsolute() || !prefix.IsAbsolute() {
		return "", false
	}

	if prefix.IsRoot() {
		return p, true
	}

	trimmedPrefix := strings.TrimSuffix(string(prefix), Separator)
	rest, found := strings.CutPrefix(string(p), trimmedPrefix)
	if !found {
		return "", false
	}

	if rest == "" {
		return Root, true
	}

	if !strings.HasPrefix(rest, Separator) {
		return "", false
	}

	return Path(rest), true
}

// HasPrefix reports whether p lies under prefix, segment-aware.
func (p Path) HasPrefix(prefix Path) bool {
	_, ok := p.StripPrefixAbsolute(prefix)
	return ok
}

// Canonicalize resolves "." and ".." segments and collapses separators.
// ".." above root stays at root.
func (p Path) Canonicalize() Path {
	stack := make([]string, 0, 8)
	for _, segment := range p.Segments() {
		switch segment {
		case ".":
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			stack = append(stack, segment)
		}
	}

	joined := strings.Join(stack, Separator)
	if p.IsAbsolute() {
		return Path(Separator + joined)
	}
	return Path(joined)
}

// Len returns the byte length, used as the match score of mount prefixes.
func (p Path) Len() int {
	return len(p)
}
