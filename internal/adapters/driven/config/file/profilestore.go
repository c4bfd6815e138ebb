package file

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/connect-cli/internal/core/domain"
	"github.com/custodia-labs/connect-cli/internal/core/ports/driven"
	"github.com/custodia-labs/connect-cli/internal/logger"
)

// Ensure ProfileStore implements the interface.
var _ driven.ProfileStore = (*ProfileStore)(nil)

// File names of the profile layout:
//
//	<root>/<connector>/current_profile
//	<root>/<connector>/profiles/<name>/config.json
//	<root>/<connector>/profiles/<name>/tokens.json
const (
	profilesDir     = "profiles"
	currentFile     = "current_profile"
	configFileName  = "config.json"
	tokensFileName  = "tokens.json"
	dirPermissions  = 0o700
	filePermissions = 0o600
)

// ProfileStore keeps each connector's profiles as JSON files under root.
// It has no protection against concurrent writers in other processes.
type ProfileStore struct {
	mu       sync.Mutex
	root     string
	migrated map[string]bool
}

// NewProfileStore creates a profile store rooted at root.
// If root is empty, defaults to ~/.connect.
func NewProfileStore(root string) (*ProfileStore, error) {
	if root == "" {
		var err error
		root, err = DefaultRoot()
		if err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(root, dirPermissions); err != nil {
		return nil, err
	}
	return &ProfileStore{root: root, migrated: make(map[string]bool)}, nil
}

// DefaultRoot returns ~/.connect.
func DefaultRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".connect"), nil
}

// Root returns the store's root directory.
func (s *ProfileStore) Root() string {
	return s.root
}

func (s *ProfileStore) connectorDir(connector string) string {
	return filepath.Join(s.root, connector)
}

// Dir returns the profile directory.
func (s *ProfileStore) Dir(connector, name string) string {
	return filepath.Join(s.root, connector, profilesDir, name)
}

func checkName(name string) error {
	if !domain.ValidProfileName(name) {
		return fmt.Errorf("%w %q: use letters, digits, '-' and '_': %w", domain.ErrInvalidProfileName, name, domain.ErrInvalidInput)
	}
	return nil
}

// prepare validates the connector ID and migrates the legacy layout once
// per connector. Caller must hold the lock.
func (s *ProfileStore) prepare(connector string) error {
	if !domain.ValidProfileName(connector) {
		return fmt.Errorf("invalid connector %q: %w", connector, domain.ErrInvalidInput)
	}
	if s.migrated[connector] {
		return nil
	}
	if err := s.migrate(connector); err != nil {
		return fmt.Errorf("migrate %s profiles: %w", connector, err)
	}
	s.migrated[connector] = true
	return nil
}

// migrate moves a flat <connector>/config.json and tokens.json into
// profiles/default/ and writes the marker if absent. Running it again
// changes nothing.
func (s *ProfileStore) migrate(connector string) error {
	dir := s.connectorDir(connector)
	var legacy []string
	for _, name := range []string{configFileName, tokensFileName} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			legacy = append(legacy, name)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	if len(legacy) == 0 {
		return nil
	}

	target := s.Dir(connector, domain.DefaultProfile)
	if err := os.MkdirAll(target, dirPermissions); err != nil {
		return err
	}
	for _, name := range legacy {
		dst := filepath.Join(target, name)
		if _, err := os.Stat(dst); err == nil {
			// A profile file wins over the stale legacy copy.
			logger.Warn("%s: leaving legacy %s in place, %s already exists", connector, name, dst)
			continue
		}
		if err := os.Rename(filepath.Join(dir, name), dst); err != nil {
			return err
		}
		logger.Info("%s: migrated %s to profile %q", connector, name, domain.DefaultProfile)
	}

	if _, err := os.Stat(filepath.Join(dir, currentFile)); errors.Is(err, fs.ErrNotExist) {
		return writeFileAtomic(filepath.Join(dir, currentFile), []byte(domain.DefaultProfile+"\n"))
	}
	return nil
}

// Create adds an empty profile.
func (s *ProfileStore) Create(connector, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.prepare(connector); err != nil {
		return err
	}

	dir := s.Dir(connector, name)
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("profile %q: %w", name, domain.ErrAlreadyExists)
	}
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return err
	}
	return writeJSON(filepath.Join(dir, configFileName), domain.ProfileConfig{})
}

// List returns the profiles sorted by name.
func (s *ProfileStore) List(connector string) ([]domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.prepare(connector); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(filepath.Join(s.connectorDir(connector), profilesDir))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	current := s.current(connector)
	profiles := make([]domain.Profile, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() || !domain.ValidProfileName(e.Name()) {
			continue
		}
		profiles = append(profiles, domain.Profile{
			Name:      e.Name(),
			Connector: connector,
			Current:   e.Name() == current,
		})
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].Name < profiles[j].Name })
	return profiles, nil
}

// Switch makes name the current profile.
func (s *ProfileStore) Switch(connector, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.prepare(connector); err != nil {
		return err
	}

	if _, err := os.Stat(s.Dir(connector, name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("profile %q: %w", name, domain.ErrNotFound)
		}
		return err
	}
	return writeFileAtomic(filepath.Join(s.connectorDir(connector), currentFile), []byte(name+"\n"))
}

// Delete removes a profile directory.
func (s *ProfileStore) Delete(connector, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.prepare(connector); err != nil {
		return err
	}

	dir := s.Dir(connector, name)
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("profile %q: %w", name, domain.ErrNotFound)
		}
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	if s.current(connector) == name {
		err := os.Remove(filepath.Join(s.connectorDir(connector), currentFile))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Current returns the selected profile name.
func (s *ProfileStore) Current(connector string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.prepare(connector); err != nil {
		return "", err
	}
	return s.current(connector), nil
}

// current reads the marker (caller must hold lock).
func (s *ProfileStore) current(connector string) string {
	data, err := os.ReadFile(filepath.Join(s.connectorDir(connector), currentFile))
	if err != nil {
		return domain.DefaultProfile
	}
	name := strings.TrimSpace(string(data))
	if !domain.ValidProfileName(name) {
		return domain.DefaultProfile
	}
	return name
}

// Exists reports whether the profile exists.
func (s *ProfileStore) Exists(connector, name string) (bool, error) {
	if err := checkName(name); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.prepare(connector); err != nil {
		return false, err
	}
	_, err := os.Stat(s.Dir(connector, name))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

// LoadConfig returns the profile's config.
func (s *ProfileStore) LoadConfig(connector, name string) (domain.ProfileConfig, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.prepare(connector); err != nil {
		return nil, err
	}

	cfg := domain.ProfileConfig{}
	if err := readJSON(filepath.Join(s.Dir(connector, name), configFileName), &cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.ProfileConfig{}, nil
		}
		return nil, err
	}
	return cfg, nil
}

// SaveConfig replaces the profile's config.
func (s *ProfileStore) SaveConfig(connector, name string, cfg domain.ProfileConfig) error {
	if err := checkName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.prepare(connector); err != nil {
		return err
	}

	dir := s.Dir(connector, name)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return err
	}
	if cfg == nil {
		cfg = domain.ProfileConfig{}
	}
	return writeJSON(filepath.Join(dir, configFileName), cfg)
}

// LoadTokens returns the profile's tokens, or nil.
func (s *ProfileStore) LoadTokens(connector, name string) (*domain.Tokens, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.prepare(connector); err != nil {
		return nil, err
	}

	var tokens domain.Tokens
	if err := readJSON(filepath.Join(s.Dir(connector, name), tokensFileName), &tokens); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return &tokens, nil
}

// SaveTokens replaces the profile's tokens.
func (s *ProfileStore) SaveTokens(connector, name string, tokens *domain.Tokens) error {
	if err := checkName(name); err != nil {
		return err
	}
	if tokens == nil {
		return fmt.Errorf("save tokens: %w", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.prepare(connector); err != nil {
		return err
	}

	dir := s.Dir(connector, name)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return err
	}
	saved := *tokens
	saved.UpdatedAt = time.Now().UTC()
	return writeJSON(filepath.Join(dir, tokensFileName), &saved)
}

// DeleteTokens removes the profile's tokens.
func (s *ProfileStore) DeleteTokens(connector, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.prepare(connector); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.Dir(connector, name), tokensFileName))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(path, append(data, '\n'))
}

// writeFileAtomic writes data to a temp file in the same directory and
// renames it over path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(filePermissions); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
