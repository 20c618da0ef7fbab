package bundle

import (
	"fmt"
	"strings"
)

// PathSeparator separates keys in a textual key path. It matches the
// default i18next key separator, so a key containing a dot cannot be
// addressed.
const PathSeparator = "."

// Path addresses a value inside a bundle, one key per level.
type Path []string

// ParsePath splits a dotted key path such as "legal.privacy".
func ParsePath(s string) (Path, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty key path")
	}
	p := Path(strings.Split(s, PathSeparator))
	for _, key := range p {
		if key == "" {
			return nil, fmt.Errorf("key path %q has an empty segment", s)
		}
	}
	return p, nil
}

// MustParsePath is like ParsePath but panics on error. Intended for
// constants and tests.
func MustParsePath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the dotted form of p.
func (p Path) String() string {
	return strings.Join(p, PathSeparator)
}

// Parent returns p without its last key.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return nil
	}
	return p[:len(p)-1]
}

// Last returns the final key of p.
func (p Path) Last() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

func (p Path) clone() Path {
	out := make(Path, len(p))
	copy(out, p)
	return out
}
