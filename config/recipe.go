// Package config — .bundlekit.yaml recipe file support.
//
// The recipe declares the locale bundles of a project and the jobs that
// maintain them: merge jobs copy keys from source documents into the
// bundles, substitution jobs rewrite standalone words in their values.
// `bundlekit apply` replays the jobs in declaration order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tatoclean/bundlekit/bundle"
	"github.com/tatoclean/bundlekit/langmeta"
	"github.com/tatoclean/bundlekit/lockfile"
	"github.com/tatoclean/bundlekit/merge"
	"github.com/tatoclean/bundlekit/wordsub"
)

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// File is the top-level .bundlekit.yaml structure.
type File struct {
	// SourceLang is the locale other bundles are compared against (default "en").
	SourceLang string `yaml:"source_lang,omitempty"`
	// Locales maps a locale tag to its bundle file, relative to the recipe.
	Locales map[string]string `yaml:"locales,omitempty"`
	// Merges are run first, in order.
	Merges []MergeJob `yaml:"merges,omitempty"`
	// Substitutions are run after all merges, in order.
	Substitutions []SubstitutionJob `yaml:"substitutions,omitempty"`

	dir  string
	path string
}

// MergeJob copies keys from one source document into each of its locales.
type MergeJob struct {
	Name string `yaml:"name"`
	// Locales restricts the job (default: every declared locale).
	Locales []string `yaml:"locales,omitempty"`
	// Source is a file path relative to the recipe; "{lang}" expands to
	// the locale tag.
	Source string `yaml:"source,omitempty"`
	// Inline is a literal source document, used instead of Source.
	Inline *yaml.Node `yaml:"inline,omitempty"`
	// Keys lists what to copy.
	Keys []KeyMapping `yaml:"keys"`

	assignments []merge.Assignment
	inline      *bundle.Object
}

// KeyMapping copies source key path From to target key path To.
type KeyMapping struct {
	From string `yaml:"from"`
	// To defaults to From.
	To string `yaml:"to,omitempty"`
}

// SubstitutionJob replaces standalone words in the values of its locales.
type SubstitutionJob struct {
	Name    string         `yaml:"name"`
	Locales []string       `yaml:"locales,omitempty"`
	Pairs   []wordsub.Pair `yaml:"pairs"`

	sub *wordsub.Substituter
}

// LangPlaceholder in MergeJob.Source expands to the locale tag.
const LangPlaceholder = "{lang}"

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// FileName is the default recipe file name.
const FileName = ".bundlekit.yaml"

// Load loads and validates .bundlekit.yaml from the given directory.
// Returns nil if no recipe exists.
func Load(rootDir string) (*File, error) {
	path := filepath.Join(rootDir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.path = path
	f.dir = rootDir
	return f, nil
}

// Parse decodes and validates recipe data. Relative paths resolve against
// the current directory until the file is loaded with Load.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	f.dir = "."

	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) validate() error {
	// Defaults
	if f.SourceLang == "" {
		f.SourceLang = "en"
	}
	src, err := langmeta.Canonicalize(f.SourceLang)
	if err != nil {
		return fmt.Errorf("source_lang: %w", err)
	}
	f.SourceLang = src

	// Locales are keyed by canonical tag.
	locales := make(map[string]string, len(f.Locales))
	for tag, path := range f.Locales {
		canon, err := langmeta.Canonicalize(tag)
		if err != nil {
			return fmt.Errorf("locales: %w", err)
		}
		if _, dup := locales[canon]; dup {
			return fmt.Errorf("locales: %q declared twice", canon)
		}
		if strings.TrimSpace(path) == "" {
			return fmt.Errorf("locales: %q has no bundle path", canon)
		}
		locales[canon] = path
	}
	f.Locales = locales

	if len(f.Locales) > 0 {
		if _, ok := f.Locales[f.SourceLang]; !ok {
			return fmt.Errorf("source_lang %q is not a declared locale", f.SourceLang)
		}
	}
	if len(f.Locales) == 0 && len(f.Merges)+len(f.Substitutions) > 0 {
		return fmt.Errorf("jobs declared but no locales")
	}

	names := make(map[string]bool)
	checkName := func(kind string, i int, name string) error {
		if name == "" {
			return fmt.Errorf("%s #%d has no name", kind, i+1)
		}
		if names[name] {
			return fmt.Errorf("job name %q used twice", name)
		}
		names[name] = true
		return nil
	}

	// Validate & resolve merge jobs
	for i := range f.Merges {
		j := &f.Merges[i]
		if err := checkName("merge", i, j.Name); err != nil {
			return err
		}
		if j.Locales, err = f.resolveLocales(j.Locales); err != nil {
			return fmt.Errorf("merge %q: %w", j.Name, err)
		}

		switch {
		case j.Source != "" && j.Inline != nil:
			return fmt.Errorf("merge %q: source and inline are mutually exclusive", j.Name)
		case j.Source == "" && j.Inline == nil:
			return fmt.Errorf("merge %q: needs a source or an inline document", j.Name)
		case j.Inline != nil:
			doc, err := inlineDocument(j.Inline)
			if err != nil {
				return fmt.Errorf("merge %q: inline: %w", j.Name, err)
			}
			j.inline = doc
		}

		if len(j.Keys) == 0 {
			return fmt.Errorf("merge %q: no keys", j.Name)
		}
		j.assignments = j.assignments[:0]
		for _, k := range j.Keys {
			spec := k.From
			if k.To != "" {
				spec += "=" + k.To
			}
			a, err := merge.ParseAssignment(spec)
			if err != nil {
				return fmt.Errorf("merge %q: %w", j.Name, err)
			}
			j.assignments = append(j.assignments, a)
		}
	}

	// Validate & resolve substitution jobs
	for i := range f.Substitutions {
		j := &f.Substitutions[i]
		if err := checkName("substitution", i, j.Name); err != nil {
			return err
		}
		if j.Locales, err = f.resolveLocales(j.Locales); err != nil {
			return fmt.Errorf("substitution %q: %w", j.Name, err)
		}
		sub, err := wordsub.New(j.Pairs)
		if err != nil {
			return fmt.Errorf("substitution %q: %w", j.Name, err)
		}
		j.sub = sub
	}

	return nil
}

// resolveLocales canonicalizes a job's locale list; empty means all.
func (f *File) resolveLocales(tags []string) ([]string, error) {
	if len(tags) == 0 {
		return f.LocaleTags(), nil
	}
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		canon, err := langmeta.Canonicalize(tag)
		if err != nil {
			return nil, err
		}
		if _, ok := f.Locales[canon]; !ok {
			return nil, fmt.Errorf("locale %q is not declared", canon)
		}
		out = append(out, canon)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Resolving
// ---------------------------------------------------------------------------

// Path returns the recipe file path.
func (f *File) Path() string { return f.path }

// Dir returns the directory relative paths resolve against.
func (f *File) Dir() string { return f.dir }

// LocaleTags returns the declared locale tags, sorted.
func (f *File) LocaleTags() []string {
	tags := make([]string, 0, len(f.Locales))
	for tag := range f.Locales {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// BundlePath returns the bundle file of a locale.
func (f *File) BundlePath(lang string) string {
	return filepath.Join(f.dir, f.Locales[lang])
}

// BundleKey returns the lock key of a locale's bundle file.
func (f *File) BundleKey(lang string) string {
	return lockfile.TargetKey(filepath.Clean(f.Locales[lang]))
}

// SourcePath returns the source file of j for a locale, or "" for inline
// jobs.
func (f *File) SourcePath(j *MergeJob, lang string) string {
	if j.Source == "" {
		return ""
	}
	return filepath.Join(f.dir, strings.ReplaceAll(j.Source, LangPlaceholder, lang))
}

// LoadSource loads the source document of j for a locale.
func (f *File) LoadSource(j *MergeJob, lang string) (merge.Source, error) {
	if j.inline != nil {
		return merge.Source{Name: j.Name + " (inline)", Doc: j.inline, Assignments: j.Assignments()}, nil
	}
	return merge.LoadSource(f.SourcePath(j, lang), j.Assignments())
}

// Assignments returns the parsed key mappings of j.
func (j *MergeJob) Assignments() []merge.Assignment {
	out := make([]merge.Assignment, len(j.assignments))
	copy(out, j.assignments)
	return out
}

// Substituter returns the validated substituter of j.
func (j *SubstitutionJob) Substituter() *wordsub.Substituter {
	return j.sub
}

// Select returns the jobs named in names, in declaration order. No names
// selects every job.
func (f *File) Select(names []string) ([]*MergeJob, []*SubstitutionJob, error) {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}

	var merges []*MergeJob
	var subs []*SubstitutionJob
	for i := range f.Merges {
		if len(names) == 0 || want[f.Merges[i].Name] {
			merges = append(merges, &f.Merges[i])
			delete(want, f.Merges[i].Name)
		}
	}
	for i := range f.Substitutions {
		if len(names) == 0 || want[f.Substitutions[i].Name] {
			subs = append(subs, &f.Substitutions[i])
			delete(want, f.Substitutions[i].Name)
		}
	}

	if len(want) > 0 {
		unknown := make([]string, 0, len(want))
		for n := range want {
			unknown = append(unknown, n)
		}
		sort.Strings(unknown)
		return nil, nil, fmt.Errorf("unknown job(s): %s", strings.Join(unknown, ", "))
	}
	return merges, subs, nil
}
