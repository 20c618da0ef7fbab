// Package merge implements translation-bundle merging: values from source
// documents are assigned into a target bundle at key paths, overwriting
// whatever was there and leaving every other key alone.
package merge

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/tatoclean/bundlekit/bundle"
)

// Assignment copies the value at From in a source document to To in the
// target bundle.
type Assignment struct {
	From bundle.Path
	To   bundle.Path
}

// ParseAssignment parses "from" or "from=to". Both sides are dotted key
// paths; a missing "to" means the same path as "from".
func ParseAssignment(s string) (Assignment, error) {
	from, to, hasTo := strings.Cut(s, "=")
	fp, err := bundle.ParsePath(from)
	if err != nil {
		return Assignment{}, fmt.Errorf("assignment %q: %w", s, err)
	}
	if !hasTo {
		return Assignment{From: fp, To: fp}, nil
	}
	tp, err := bundle.ParsePath(to)
	if err != nil {
		return Assignment{}, fmt.Errorf("assignment %q: %w", s, err)
	}
	return Assignment{From: fp, To: tp}, nil
}

func (a Assignment) String() string {
	if a.From.String() == a.To.String() {
		return a.From.String()
	}
	return a.From.String() + "=" + a.To.String()
}

// Merge sets target[path] = value. For a nested path the parent section
// must already exist as an object; Merge never creates it. The value is
// copied, so later changes to target do not reach the source document.
func Merge(target *bundle.Object, path bundle.Path, value any) error {
	if len(path) == 0 {
		return fmt.Errorf("empty key path")
	}

	parent := target
	for i, key := range path.Parent() {
		v, ok := parent.Get(key)
		if !ok {
			return &bundle.KeyError{Path: path, Missing: path[:i+1]}
		}
		obj, ok := v.(*bundle.Object)
		if !ok {
			return &bundle.KeyError{Path: path, Missing: path[:i+1], NotObject: true}
		}
		parent = obj
	}

	parent.Set(path.Last(), bundle.Clone(value))
	return nil
}

// Source is a loaded source document and the assignments to take from it.
type Source struct {
	// Name identifies the document in messages (a file path or "inline").
	Name        string
	Doc         *bundle.Object
	Assignments []Assignment
}

// Assigned records one value written into the target.
type Assigned struct {
	Path  bundle.Path
	Value any
}

// Apply runs every assignment of src against target, in order.
func Apply(target *bundle.Object, src Source) ([]Assigned, error) {
	var out []Assigned
	for _, a := range src.Assignments {
		v, ok := src.Doc.Lookup(a.From)
		if !ok {
			return nil, fmt.Errorf("%s: %w", src.Name, &bundle.KeyError{Path: a.From, InSource: true})
		}
		if err := Merge(target, a.To, v); err != nil {
			return nil, fmt.Errorf("%s: %w", src.Name, err)
		}
		out = append(out, Assigned{Path: a.To, Value: v})
	}
	return out, nil
}

// LoadSource reads a source document from path.
func LoadSource(path string, assignments []Assignment) (Source, error) {
	doc, err := bundle.ParseFile(path)
	if err != nil {
		return Source{}, err
	}
	return Source{Name: path, Doc: doc, Assignments: assignments}, nil
}

// Result describes the outcome of File.
type Result struct {
	Target   string
	Assigned []Assigned
	// Changed is false when the written bytes equal the previous file.
	Changed bool
	// Written is false for dry runs.
	Written bool
}

// File loads the bundle at targetPath, applies every source in order and
// writes the result back once. Nothing is written if loading or merging
// fails, or if dryRun is set.
func File(targetPath string, sources []Source, dryRun bool) (*Result, error) {
	original, err := os.ReadFile(targetPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", bundle.ErrFileNotFound, targetPath)
		}
		return nil, fmt.Errorf("reading %s: %w", targetPath, err)
	}

	target, err := bundle.Parse(original)
	if err != nil {
		return nil, withPath(err, targetPath)
	}

	res := &Result{Target: targetPath}
	for _, src := range sources {
		assigned, err := Apply(target, src)
		if err != nil {
			return nil, err
		}
		res.Assigned = append(res.Assigned, assigned...)
	}

	out, err := target.Marshal()
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", targetPath, err)
	}
	res.Changed = !bytes.Equal(original, out)

	if dryRun {
		return res, nil
	}
	if err := os.WriteFile(targetPath, out, 0644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", targetPath, err)
	}
	res.Written = true
	return res, nil
}

func withPath(err error, path string) error {
	if fe, ok := err.(*bundle.FormatError); ok {
		fe.Path = path
	}
	return err
}
