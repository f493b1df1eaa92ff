package params

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

var profilePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// Store persists one Snapshot per profile as a JSON file in Dir.
type Store struct {
	Dir string
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

func (s *Store) path(profile string) (string, error) {
	if !profilePattern.MatchString(profile) {
		return "", fmt.Errorf("invalid profile name %q", profile)
	}
	return filepath.Join(s.Dir, profile+".json"), nil
}

// Load reads a profile. A missing file yields Default() and found=false.
func (s *Store) Load(profile string) (Snapshot, bool, error) {
	path, err := s.path(profile)
	if err != nil {
		return Snapshot{}, false, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), false, nil
		}
		return Snapshot{}, false, fmt.Errorf("failed to read parameters: %w", err)
	}

	snap := Default()
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("failed to decode parameters %s: %w", path, err)
	}
	if err := snap.Validate(); err != nil {
		return Snapshot{}, false, fmt.Errorf("stored parameters %s are invalid: %w", path, err)
	}

	log.Debug().Str("profile", profile).Msg("Loaded parameters")
	return snap.Clone(), true, nil
}

// Save rewrites a profile atomically.
func (s *Store) Save(profile string, snap Snapshot) error {
	path, err := s.path(profile)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create parameter directory: %w", err)
	}

	data, err := json.MarshalIndent(snap.Clone(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode parameters: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp parameter file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename parameter file: %w", err)
	}

	log.Debug().Str("profile", profile).Msg("Parameters saved")
	return nil
}

// Profiles lists the stored profile names in lexical order.
func (s *Store) Profiles() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list parameter directory: %w", err)
	}

	profiles := []string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		profile := strings.TrimSuffix(name, ".json")
		if profilePattern.MatchString(profile) {
			profiles = append(profiles, profile)
		}
	}
	sort.Strings(profiles)
	return profiles, nil
}
