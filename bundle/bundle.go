// Package bundle implements reading and writing of i18next-style JSON
// translation bundles.
//
// A bundle is a JSON object holding all UI text for one locale:
//
//	{
//	    "nav": { "home": "Inicio" },
//	    "legal": {
//	        "cookie": { "subtitle": "..." },
//	        "privacy": { "subtitle": "..." }
//	    }
//	}
//
// Files may start with a byte-order mark; it is stripped on read and never
// written back. Key order and number literals survive a round-trip, and
// non-ASCII text is written literally.
package bundle

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// indent is the per-level indentation of written bundles.
const indent = "    "

// ---------------------------------------------------------------------------
// Object model
// ---------------------------------------------------------------------------

// Object is a JSON object that remembers the order of its keys.
//
// Values are one of: *Object, []any, string, json.Number, bool or nil.
type Object struct {
	keys   []string
	values map[string]any
}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{values: make(map[string]any)}
}

// Len returns the number of keys.
func (o *Object) Len() int {
	return len(o.keys)
}

// Keys returns the keys in document order.
func (o *Object) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	_, ok := o.values[key]
	return ok
}

// Get returns the value stored at key.
func (o *Object) Get(key string) (any, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Set stores v at key. An existing key keeps its position; a new key is
// appended.
func (o *Object) Set(key string, v any) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
}

// Lookup follows p from o and returns the value found there.
func (o *Object) Lookup(p Path) (any, bool) {
	if len(p) == 0 {
		return o, true
	}
	var cur any = o
	for _, key := range p {
		obj, ok := cur.(*Object)
		if !ok {
			return nil, false
		}
		cur, ok = obj.values[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Clone returns a deep copy of a bundle value.
func Clone(v any) any {
	switch v := v.(type) {
	case *Object:
		out := &Object{
			keys:   make([]string, len(v.keys)),
			values: make(map[string]any, len(v.values)),
		}
		copy(out.keys, v.keys)
		for k, val := range v.values {
			out.values[k] = Clone(val)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = Clone(val)
		}
		return out
	default:
		return v
	}
}

// Leaf is a string value together with its key path. Array elements are
// addressed by their decimal index.
type Leaf struct {
	Path  Path
	Value string
}

// Leaves returns every string value below o in document order.
func (o *Object) Leaves() []Leaf {
	var out []Leaf
	walkStrings(o, nil, func(p Path, s string) {
		out = append(out, Leaf{Path: p.clone(), Value: s})
	})
	return out
}

func walkStrings(v any, prefix Path, fn func(Path, string)) {
	switch v := v.(type) {
	case *Object:
		for _, k := range v.keys {
			walkStrings(v.values[k], append(prefix, k), fn)
		}
	case []any:
		for i, val := range v {
			walkStrings(val, append(prefix, strconv.Itoa(i)), fn)
		}
	case string:
		fn(prefix, v)
	}
}

// ReplaceStrings calls fn for every string value below o and stores the
// result in place. Keys are left alone.
func (o *Object) ReplaceStrings(fn func(string) string) {
	for _, k := range o.keys {
		o.values[k] = replaceStrings(o.values[k], fn)
	}
}

func replaceStrings(v any, fn func(string) string) any {
	switch v := v.(type) {
	case *Object:
		v.ReplaceStrings(fn)
		return v
	case []any:
		for i, val := range v {
			v[i] = replaceStrings(val, fn)
		}
		return v
	case string:
		return fn(v)
	default:
		return v
	}
}

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

// ParseFile reads and parses a bundle file.
func ParseFile(path string) (*Object, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	o, err := Parse(data)
	if err != nil {
		var fe *FormatError
		if errors.As(err, &fe) {
			fe.Path = path
		}
		return nil, err
	}
	return o, nil
}

// Parse parses bundle data. A leading byte-order mark is ignored; UTF-16
// input with a byte-order mark is transcoded first. Any other input must
// be valid UTF-8.
func Parse(data []byte) (*Object, error) {
	if !hasUTF16BOM(data) && !utf8.Valid(bytes.TrimPrefix(data, utf8BOM)) {
		return nil, &FormatError{Err: errors.New("invalid UTF-8 text")}
	}
	text, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
	if err != nil {
		return nil, &FormatError{Err: fmt.Errorf("decoding text: %w", err)}
	}

	dec := json.NewDecoder(bytes.NewReader(text))
	dec.UseNumber()

	t, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return nil, &FormatError{Err: errors.New("empty document")}
		}
		return nil, &FormatError{Err: err}
	}
	if delim, ok := t.(json.Delim); !ok || delim != '{' {
		return nil, &FormatError{Err: fmt.Errorf("top-level value must be an object, got %s", describeToken(t))}
	}

	o, err := parseObject(dec)
	if err != nil {
		return nil, &FormatError{Err: err}
	}

	if t, err := dec.Token(); err != io.EOF {
		if err != nil {
			return nil, &FormatError{Err: err}
		}
		return nil, &FormatError{Err: fmt.Errorf("unexpected %s after top-level object", describeToken(t))}
	}

	return o, nil
}

var utf8BOM = []byte("\xEF\xBB\xBF")

func hasUTF16BOM(data []byte) bool {
	return bytes.HasPrefix(data, []byte("\xFE\xFF")) || bytes.HasPrefix(data, []byte("\xFF\xFE"))
}

func parseObject(dec *json.Decoder) (*Object, error) {
	o := NewObject()

	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := kt.(string)
		if !ok {
			return nil, fmt.Errorf("expected string key, got %s", describeToken(kt))
		}

		vt, err := dec.Token()
		if err != nil {
			return nil, err
		}
		v, err := parseValue(dec, vt)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		o.Set(key, v)
	}

	// Closing brace.
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return o, nil
}

func parseArray(dec *json.Decoder) ([]any, error) {
	out := []any{}
	for dec.More() {
		t, err := dec.Token()
		if err != nil {
			return nil, err
		}
		v, err := parseValue(dec, t)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", len(out), err)
		}
		out = append(out, v)
	}

	// Closing bracket.
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return out, nil
}

func parseValue(dec *json.Decoder, t json.Token) (any, error) {
	delim, ok := t.(json.Delim)
	if !ok {
		return t, nil
	}
	switch delim {
	case '{':
		return parseObject(dec)
	case '[':
		return parseArray(dec)
	}
	return nil, fmt.Errorf("unexpected %q", rune(delim))
}

func describeToken(t json.Token) string {
	switch t := t.(type) {
	case json.Delim:
		if t == '[' {
			return "array"
		}
		return strconv.QuoteRune(rune(t))
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	case nil:
		return "null"
	}
	return fmt.Sprintf("%T", t)
}

// ---------------------------------------------------------------------------
// Writing
// ---------------------------------------------------------------------------

// WriteFile writes the bundle to path, replacing any existing file.
func (o *Object) WriteFile(path string) error {
	data, err := o.Marshal()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Marshal produces the file contents: 4-space indentation, keys in
// document order, a trailing newline and no byte-order mark.
func (o *Object) Marshal() ([]byte, error) {
	var b bytes.Buffer
	if err := writeValue(&b, o, 0); err != nil {
		return nil, err
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// MarshalValue returns the compact encoding of a single bundle value.
func MarshalValue(v any) ([]byte, error) {
	var b bytes.Buffer
	if err := writeValue(&b, v, -1); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// writeValue encodes v. A negative depth selects compact output.
func writeValue(b *bytes.Buffer, v any, depth int) error {
	switch v := v.(type) {
	case *Object:
		if v.Len() == 0 {
			b.WriteString("{}")
			return nil
		}
		b.WriteByte('{')
		for i, k := range v.keys {
			if i > 0 {
				b.WriteByte(',')
			}
			newline(b, next(depth))
			writeString(b, k)
			b.WriteByte(':')
			if depth >= 0 {
				b.WriteByte(' ')
			}
			if err := writeValue(b, v.values[k], next(depth)); err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
		}
		newline(b, depth)
		b.WriteByte('}')
	case []any:
		if len(v) == 0 {
			b.WriteString("[]")
			return nil
		}
		b.WriteByte('[')
		for i, val := range v {
			if i > 0 {
				b.WriteByte(',')
			}
			newline(b, next(depth))
			if err := writeValue(b, val, next(depth)); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
		newline(b, depth)
		b.WriteByte(']')
	case string:
		writeString(b, v)
	case json.Number:
		if !json.Valid([]byte(v)) {
			return fmt.Errorf("invalid number %q", string(v))
		}
		b.WriteString(string(v))
	case bool:
		b.WriteString(strconv.FormatBool(v))
	case nil:
		b.WriteString("null")
	default:
		return fmt.Errorf("unsupported value type %T", v)
	}
	return nil
}

func next(depth int) int {
	if depth < 0 {
		return depth
	}
	return depth + 1
}

func newline(b *bytes.Buffer, depth int) {
	if depth < 0 {
		return
	}
	b.WriteByte('\n')
	for i := 0; i < depth; i++ {
		b.WriteString(indent)
	}
}

// writeString writes s as a JSON string. Only quotes, backslashes and
// control characters are escaped; everything else, U+2028 and U+2029
// included, is written literally.
func writeString(b *bytes.Buffer, s string) {
	const hex = "0123456789abcdef"
	b.WriteByte('"')
	for i := 0; i < len(s); {
		c := s[i]
		if c >= utf8.RuneSelf {
			r, size := utf8.DecodeRuneInString(s[i:])
			if r == utf8.RuneError && size == 1 {
				b.WriteString(`\ufffd`)
			} else {
				b.WriteString(s[i : i+size])
			}
			i += size
			continue
		}
		switch c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			if c < 0x20 {
				b.WriteString(`\u00`)
				b.WriteByte(hex[c>>4])
				b.WriteByte(hex[c&0xF])
			} else {
				b.WriteByte(c)
			}
		}
		i++
	}
	b.WriteByte('"')
}
