package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/connect-cli/internal/core/domain"
	"github.com/custodia-labs/connect-cli/internal/core/ports/driven"
	"github.com/custodia-labs/connect-cli/internal/logger"
)

// Ensure SettingsStore implements the interface.
var _ driven.SettingsStore = (*SettingsStore)(nil)

// SettingsFileName is the global settings file inside the config root.
const SettingsFileName = "settings.toml"

// SettingsStore keeps settings in a TOML document where the key "a.b" is
// the entry b of table [a]. The file is read on every call so that
// concurrent invocations of the CLI see each other's writes.
type SettingsStore struct {
	mu   sync.Mutex
	path string
}

// NewSettingsStore opens settings.toml in dir, ~/.connect when empty.
// A file that does not parse is reported here rather than on first use.
func NewSettingsStore(dir string) (*SettingsStore, error) {
	if dir == "" {
		var err error
		if dir, err = DefaultRoot(); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return nil, err
	}

	s := &SettingsStore{path: filepath.Join(dir, SettingsFileName)}
	if _, err := s.read(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the settings file path.
func (s *SettingsStore) Path() string {
	return s.path
}

// Get returns the value at key. Tables are not values.
func (s *SettingsStore) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		logger.Warn("ignoring %s: %v", s.path, err)
		return nil, false
	}
	table, leaf := walk(doc, key, false)
	if table == nil {
		return nil, false
	}
	v, ok := table[leaf]
	if _, isTable := v.(map[string]any); isTable {
		return nil, false
	}
	return v, ok
}

// Set stores value at key, replacing any table or scalar in its way.
func (s *SettingsStore) Set(key string, value any) error {
	if !validKey(key) {
		return fmt.Errorf("setting key %q: %w", key, domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	table, leaf := walk(doc, key, true)
	table[leaf] = value
	return s.write(doc)
}

// Unset removes key and any table it leaves empty.
func (s *SettingsStore) Unset(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	table, leaf := walk(doc, key, false)
	if table == nil {
		return nil
	}
	if _, ok := table[leaf]; !ok {
		return nil
	}
	delete(table, leaf)
	prune(doc)
	return s.write(doc)
}

// Keys returns the dotted path of every scalar in the document.
func (s *SettingsStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		logger.Warn("ignoring %s: %v", s.path, err)
		return nil
	}
	var keys []string
	collectKeys(doc, "", &keys)
	sort.Strings(keys)
	return keys
}

// read parses the file. A missing file is an empty document.
func (s *SettingsStore) read() (map[string]any, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, err
	}
	doc := map[string]any{}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return doc, nil
}

func (s *SettingsStore) write(doc map[string]any) error {
	data, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return writeFileAtomic(s.path, data)
}

// walk returns the table that holds the last segment of key, and that
// segment. With create, missing or scalar parents are replaced by tables;
// without it a missing parent yields a nil table.
func walk(doc map[string]any, key string, create bool) (map[string]any, string) {
	parts := strings.Split(key, ".")
	table := doc
	for _, p := range parts[:len(parts)-1] {
		child, ok := table[p].(map[string]any)
		if !ok {
			if !create {
				return nil, ""
			}
			child = map[string]any{}
			table[p] = child
		}
		table = child
	}
	return table, parts[len(parts)-1]
}

// prune deletes empty tables below m and reports whether m is empty.
func prune(m map[string]any) bool {
	for k, v := range m {
		if child, ok := v.(map[string]any); ok && prune(child) {
			delete(m, k)
		}
	}
	return len(m) == 0
}

func collectKeys(m map[string]any, prefix string, keys *[]string) {
	for k, v := range m {
		full := k
		if prefix != "" {
			full = prefix + "." + k
		}
		if child, ok := v.(map[string]any); ok {
			collectKeys(child, full, keys)
			continue
		}
		*keys = append(*keys, full)
	}
}

func validKey(key string) bool {
	if key == "" {
		return false
	}
	for _, p := range strings.Split(key, ".") {
		if p == "" {
			return false
		}
	}
	return true
}
