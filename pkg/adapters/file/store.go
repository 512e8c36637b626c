package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/aretw0/simgym/pkg/domain"
)

// DefaultDir is where experiences are saved when no directory is configured.
var DefaultDir = filepath.Join("results", "dmms_experience")

// Store implements ports.ExperienceStore using the local filesystem.
// Each episode is one JSON array in <BasePath>/episode_<N>.json.
type Store struct {
	BasePath string
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to DefaultDir.
func New(basePath string) *Store {
	if basePath == "" {
		basePath = DefaultDir
	}
	return &Store{BasePath: basePath}
}

// Path returns the file an episode is saved to.
func (s *Store) Path(episode int) string {
	return filepath.Join(s.BasePath, domain.EpisodeName(episode)+".json")
}

// Save writes the records atomically: temp file, fsync, then rename over the destination.
func (s *Store) Save(ctx context.Context, episode int, records []domain.Experience) error {
	if err := os.MkdirAll(s.BasePath, 0o755); err != nil {
		return fmt.Errorf("failed to ensure experience directory: %w", err)
	}

	if records == nil {
		records = []domain.Experience{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal experiences: %w", err)
	}

	// Same directory as the destination so the rename stays on one filesystem.
	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+domain.EpisodeName(episode)+"-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath) // no-op once renamed
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	destPath := s.Path(episode)
	if _, err := os.Stat(destPath); err == nil {
		// os.Rename does not replace an existing file on Windows.
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing episode file for overwrite: %w", err)
		}
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file to episode file: %w", err)
	}
	return nil
}

// Load reads the records saved for an episode.
func (s *Store) Load(ctx context.Context, episode int) ([]domain.Experience, error) {
	data, err := os.ReadFile(s.Path(episode))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrEpisodeNotFound
		}
		return nil, fmt.Errorf("failed to read episode file: %w", err)
	}

	records := []domain.Experience{}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal episode %d: %w", episode, err)
	}
	return records, nil
}

// List returns the episodes that have a saved file, ascending.
func (s *Store) List(ctx context.Context) ([]int, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []int{}, nil
		}
		return nil, fmt.Errorf("failed to list episodes: %w", err)
	}

	episodes := []int{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, domain.EpisodePrefix) || filepath.Ext(name) != ".json" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, domain.EpisodePrefix), ".json"))
		if err != nil {
			continue
		}
		episodes = append(episodes, n)
	}
	slices.Sort(episodes)
	return episodes, nil
}
