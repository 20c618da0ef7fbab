// Package lockfile implements bundlekit.lock — a lock file that records,
// per bundle file and key path, the MD5 checksum of the value last merged
// there. `status` compares it with the current sources to list merges whose
// source content changed since the last `apply`.
//
// The lock file is stored alongside .bundlekit.yaml as bundlekit.lock.
package lockfile

import (
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tatoclean/bundlekit/bundle"
)

// LockFileName is the default lock file name.
const LockFileName = "bundlekit.lock"

// Version is the lock file format version.
const Version = 1

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// LockFile represents the bundlekit.lock file structure.
type LockFile struct {
	Version   int                          `yaml:"version"`
	Checksums map[string]map[string]string `yaml:"checksums"` // target -> key path -> md5

	path string `yaml:"-"`
}

// ---------------------------------------------------------------------------
// Loading and saving
// ---------------------------------------------------------------------------

// Load reads a lock file from the given directory.
// Returns an empty lock file if the file doesn't exist.
func Load(dir string) (*LockFile, error) {
	path := filepath.Join(dir, LockFileName)
	lf := &LockFile{
		Version:   Version,
		Checksums: make(map[string]map[string]string),
		path:      path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return lf, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, lf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	lf.path = path

	if lf.Version > Version {
		return nil, fmt.Errorf("%s: unsupported version %d", path, lf.Version)
	}
	if lf.Checksums == nil {
		lf.Checksums = make(map[string]map[string]string)
	}

	return lf, nil
}

// Save writes the lock file to disk.
func (lf *LockFile) Save() error {
	if lf.path == "" {
		return fmt.Errorf("lock file path not set")
	}

	data, err := yaml.Marshal(lf)
	if err != nil {
		return fmt.Errorf("marshaling lock file: %w", err)
	}

	if err := os.WriteFile(lf.path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", lf.path, err)
	}

	return nil
}

// Path returns the lock file path.
func (lf *LockFile) Path() string {
	return lf.path
}

// ---------------------------------------------------------------------------
// Checksum operations
// ---------------------------------------------------------------------------

// Hash computes the MD5 hex digest of a string.
func Hash(s string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(s)))
}

// ValueContent returns the canonical content of a bundle value for
// hashing: its compact JSON encoding.
func ValueContent(v any) (string, error) {
	data, err := bundle.MarshalValue(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// TargetKey builds the lock key of a bundle file from its path relative
// to the project root, e.g. "src/locales/es/translation.json".
func TargetKey(relPath string) string {
	return filepath.ToSlash(relPath)
}

// IsChanged reports whether content differs from what was last recorded
// for target and key. Unknown entries count as changed.
func (lf *LockFile) IsChanged(target, key, content string) bool {
	keys, ok := lf.Checksums[target]
	if !ok {
		return true
	}
	oldHash, ok := keys[key]
	if !ok {
		return true
	}
	return oldHash != Hash(content)
}

// Update records the checksum of content merged at key in target.
func (lf *LockFile) Update(target, key, content string) {
	if lf.Checksums[target] == nil {
		lf.Checksums[target] = make(map[string]string)
	}
	lf.Checksums[target][key] = Hash(content)
}

// Clean removes entries of target whose key is not in currentKeys.
func (lf *LockFile) Clean(target string, currentKeys []string) {
	existing := lf.Checksums[target]
	if existing == nil {
		return
	}

	valid := make(map[string]bool, len(currentKeys))
	for _, k := range currentKeys {
		valid[k] = true
	}

	for k := range existing {
		if !valid[k] {
			delete(existing, k)
		}
	}
	if len(existing) == 0 {
		delete(lf.Checksums, target)
	}
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

// Stats returns the number of targets and total keys in the lock file.
func (lf *LockFile) Stats() (targets, keys int) {
	targets = len(lf.Checksums)
	for _, m := range lf.Checksums {
		keys += len(m)
	}
	return
}

// Targets returns sorted list of target keys.
func (lf *LockFile) Targets() []string {
	targets := make([]string, 0, len(lf.Checksums))
	for t := range lf.Checksums {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	return targets
}

// Summary returns a human-readable summary string.
func (lf *LockFile) Summary() string {
	targets, keys := lf.Stats()
	if targets == 0 {
		return "empty"
	}

	var parts []string
	for _, t := range lf.Targets() {
		n := len(lf.Checksums[t])
		parts = append(parts, fmt.Sprintf("%s: %d keys", t, n))
	}
	return fmt.Sprintf("%d targets, %d keys (%s)", targets, keys, strings.Join(parts, ", "))
}
