package ports

import (
	"context"

	"github.com/aretw0/simgym/pkg/domain"
)

// ExperienceStore persists the experiences collected during an episode.
type ExperienceStore interface {
	// Save writes the records for the given episode, replacing any previous save.
	Save(ctx context.Context, episode int, records []domain.Experience) error

	// Load retrieves the records saved for an episode.
	// Returns domain.ErrEpisodeNotFound if nothing was saved.
	Load(ctx context.Context, episode int) ([]domain.Experience, error)

	// List returns the saved episode numbers in ascending order.
	List(ctx context.Context) ([]int, error)
}
