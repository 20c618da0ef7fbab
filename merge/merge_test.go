package merge

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/tatoclean/bundlekit/bundle"
)

func mustParse(t *testing.T, s string) *bundle.Object {
	t.Helper()
	o, err := bundle.Parse([]byte(s))
	if err != nil {
		t.Fatalf("Parse(%s): %v", s, err)
	}
	return o
}

func marshal(t *testing.T, o *bundle.Object) string {
	t.Helper()
	out, err := bundle.MarshalValue(o)
	if err != nil {
		t.Fatalf("MarshalValue: %v", err)
	}
	return string(out)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestParseAssignment(t *testing.T) {
	tests := []struct {
		in       string
		from, to string
		wantErr  bool
	}{
		{in: "legal", from: "legal", to: "legal"},
		{in: "privacy=legal.privacy", from: "privacy", to: "legal.privacy"},
		{in: " terms = legal.terms ", from: "terms", to: "legal.terms"},
		{in: "", wantErr: true},
		{in: "privacy=", wantErr: true},
		{in: "legal..terms", wantErr: true},
	}

	for _, tc := range tests {
		a, err := ParseAssignment(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseAssignment(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseAssignment(%q) error: %v", tc.in, err)
		}
		if a.From.String() != tc.from || a.To.String() != tc.to {
			t.Fatalf("ParseAssignment(%q) = %s -> %s, want %s -> %s", tc.in, a.From, a.To, tc.from, tc.to)
		}
	}
}

func TestMerge_TopLevelCreatesAndOverwrites(t *testing.T) {
	target := mustParse(t, `{"nav": {"home": "Home"}, "footer": "x"}`)
	legal := mustParse(t, `{"cookie": {"title": "Cookies"}}`)

	if err := Merge(target, bundle.MustParsePath("legal"), legal); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if got, want := target.Keys(), []string{"nav", "footer", "legal"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("keys = %v, want %v", got, want)
	}

	if err := Merge(target, bundle.MustParsePath("nav"), "replaced"); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	want := `{"nav":"replaced","footer":"x","legal":{"cookie":{"title":"Cookies"}}}`
	if got := marshal(t, target); got != want {
		t.Fatalf("target = %s, want %s", got, want)
	}
}

func TestMerge_SubKeysPreserveSiblings(t *testing.T) {
	target := mustParse(t, `{"app": "A", "legal": {"cookie": {"title": "Cookies"}}}`)
	additions := mustParse(t, `{"privacy": {"t": "P"}, "terms": {"t": "T"}, "disclaimers": {"t": "D"}}`)

	src := Source{Name: "additions", Doc: additions}
	for _, k := range []string{"privacy", "terms", "disclaimers"} {
		src.Assignments = append(src.Assignments, Assignment{
			From: bundle.Path{k},
			To:   bundle.Path{"legal", k},
		})
	}

	assigned, err := Apply(target, src)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(assigned) != 3 {
		t.Fatalf("assigned %d values, want 3", len(assigned))
	}

	want := `{"app":"A","legal":{"cookie":{"title":"Cookies"},"privacy":{"t":"P"},"terms":{"t":"T"},"disclaimers":{"t":"D"}}}`
	if got := marshal(t, target); got != want {
		t.Fatalf("target = %s, want %s", got, want)
	}
}

func TestMerge_MissingParentFails(t *testing.T) {
	target := mustParse(t, `{"app": "A"}`)
	before := marshal(t, target)

	err := Merge(target, bundle.MustParsePath("legal.privacy"), "x")
	if !errors.Is(err, bundle.ErrMissingParent) {
		t.Fatalf("Merge error = %v, want ErrMissingParent", err)
	}
	var ke *bundle.KeyError
	if !errors.As(err, &ke) || ke.Missing.String() != "legal" {
		t.Fatalf("KeyError = %#v, want missing legal", ke)
	}
	if after := marshal(t, target); after != before {
		t.Fatalf("target changed on failure: %s", after)
	}

	target.Set("legal", "not an object")
	err = Merge(target, bundle.MustParsePath("legal.privacy"), "x")
	if !errors.As(err, &ke) || !ke.NotObject {
		t.Fatalf("Merge into string parent error = %v, want NotObject KeyError", err)
	}
}

func TestApply_MissingSourceKey(t *testing.T) {
	target := mustParse(t, `{"legal": {}}`)
	src := Source{
		Name:        "legal-additions-en.json",
		Doc:         mustParse(t, `{"privacy": {}}`),
		Assignments: []Assignment{{From: bundle.Path{"terms"}, To: bundle.Path{"legal", "terms"}}},
	}

	_, err := Apply(target, src)
	if !errors.Is(err, bundle.ErrMissingKey) {
		t.Fatalf("Apply error = %v, want ErrMissingKey", err)
	}
	if !strings.Contains(err.Error(), "legal-additions-en.json") {
		t.Fatalf("error %q does not name the source", err)
	}
}

func TestMerge_SourceIsNotAliased(t *testing.T) {
	target := mustParse(t, `{}`)
	cookie := mustParse(t, `{"legal": {"cookie": {}}}`)
	additions := mustParse(t, `{"privacy": {"t": "P"}}`)

	if _, err := Apply(target, Source{Doc: cookie, Assignments: []Assignment{{From: bundle.Path{"legal"}, To: bundle.Path{"legal"}}}}); err != nil {
		t.Fatalf("Apply cookie: %v", err)
	}
	if _, err := Apply(target, Source{Doc: additions, Assignments: []Assignment{{From: bundle.Path{"privacy"}, To: bundle.Path{"legal", "privacy"}}}}); err != nil {
		t.Fatalf("Apply additions: %v", err)
	}

	if got := marshal(t, cookie); got != `{"legal":{"cookie":{}}}` {
		t.Fatalf("source document modified: %s", got)
	}
}

func TestFile_MergeSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	targetPath := filepath.Join(dir, "src", "locales", "es", "translation.json")
	sourcePath := filepath.Join(dir, "legal-translations-es-clean.json")

	writeFile(t, targetPath, "\xEF\xBB\xBF"+`{"hero": {"title": "Hola"}, "legal": "old"}`)
	writeFile(t, sourcePath, "\xEF\xBB\xBF"+`{"legal": {"menu_title": "Legal", "cookie": {"intro_title": "Introducción"}}}`)

	src, err := LoadSource(sourcePath, []Assignment{{From: bundle.Path{"legal"}, To: bundle.Path{"legal"}}})
	if err != nil {
		t.Fatalf("LoadSource: %v", err)
	}

	res, err := File(targetPath, []Source{src}, false)
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	if !res.Changed || !res.Written {
		t.Fatalf("result = %+v, want changed and written", res)
	}

	got, err := bundle.ParseFile(targetPath)
	if err != nil {
		t.Fatalf("ParseFile after merge: %v", err)
	}
	want := `{"hero":{"title":"Hola"},"legal":{"menu_title":"Legal","cookie":{"intro_title":"Introducción"}}}`
	if s := marshal(t, got); s != want {
		t.Fatalf("merged bundle = %s, want %s", s, want)
	}

	first, _ := os.ReadFile(targetPath)
	res, err = File(targetPath, []Source{src}, false)
	if err != nil {
		t.Fatalf("second File: %v", err)
	}
	second, _ := os.ReadFile(targetPath)
	if res.Changed || string(first) != string(second) {
		t.Fatalf("re-running with identical sources changed the file:\n%s\n---\n%s", first, second)
	}
}

func TestFile_FailureLeavesTargetUntouched(t *testing.T) {
	dir := t.TempDir()
	targetPath := filepath.Join(dir, "translation.json")
	original := `{"app":"A"}`
	writeFile(t, targetPath, original)

	src := Source{
		Name:        "additions",
		Doc:         mustParse(t, `{"privacy": {}}`),
		Assignments: []Assignment{{From: bundle.Path{"privacy"}, To: bundle.Path{"legal", "privacy"}}},
	}

	if _, err := File(targetPath, []Source{src}, false); !errors.Is(err, bundle.ErrMissingParent) {
		t.Fatalf("File error = %v, want ErrMissingParent", err)
	}
	data, _ := os.ReadFile(targetPath)
	if string(data) != original {
		t.Fatalf("target modified after failed merge: %s", data)
	}

	if _, err := File(filepath.Join(dir, "missing.json"), nil, false); !errors.Is(err, bundle.ErrFileNotFound) {
		t.Fatalf("File(missing) error = %v, want ErrFileNotFound", err)
	}
}

func TestFile_DryRunDoesNotWrite(t *testing.T) {
	dir := t.TempDir()
	targetPath := filepath.Join(dir, "translation.json")
	original := `{"app":"A"}`
	writeFile(t, targetPath, original)

	src := Source{Doc: mustParse(t, `{"legal": {}}`), Assignments: []Assignment{{From: bundle.Path{"legal"}, To: bundle.Path{"legal"}}}}
	res, err := File(targetPath, []Source{src}, true)
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	if !res.Changed || res.Written {
		t.Fatalf("dry-run result = %+v, want changed and not written", res)
	}
	data, _ := os.ReadFile(targetPath)
	if string(data) != original {
		t.Fatalf("dry run modified target: %s", data)
	}
}

func TestFile_InvalidUTF8TargetIsNotRewritten(t *testing.T) {
	dir := t.TempDir()
	targetPath := filepath.Join(dir, "translation.json")
	original := "{\"hero\": \"Pol\xedtica\"}"
	writeFile(t, targetPath, original)

	src := Source{Name: "legal", Doc: mustParse(t, `{"legal": "L"}`), Assignments: []Assignment{{From: bundle.Path{"legal"}, To: bundle.Path{"legal"}}}}
	_, err := File(targetPath, []Source{src}, false)
	if !errors.Is(err, bundle.ErrFormat) {
		t.Fatalf("File error = %v, want ErrFormat", err)
	}
	if !strings.Contains(err.Error(), targetPath) {
		t.Fatalf("error %q does not name the target", err)
	}
	data, _ := os.ReadFile(targetPath)
	if string(data) != original {
		t.Fatalf("target modified: %q", data)
	}
}
