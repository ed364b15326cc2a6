package memory

import (
	"fmt"
	"os"
	"time"

	"github.com/Shani815/vctalenthub-sub000/domain/actor"

	"gopkg.in/yaml.v3"
)

// Seed is the development fixture format loaded into an empty store
type Seed struct {
	Actors []struct {
		ID           string    `yaml:"id"`
		DisplayName  string    `yaml:"displayName"`
		Headline     string    `yaml:"headline"`
		Email        string    `yaml:"email"`
		Role         string    `yaml:"role"`
		Tier         string    `yaml:"tier"`
		CreatedAt    time.Time `yaml:"createdAt"`
		Applications int       `yaml:"applications"`
	} `yaml:"actors"`
}

// LoadSeed reads a YAML fixture file into the store
func (s *Store) LoadSeed(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return 0, fmt.Errorf("failed to parse seed file: %w", err)
	}

	for _, a := range seed.Actors {
		role := actor.Role(a.Role)
		if !role.Valid() {
			return 0, fmt.Errorf("actor %s: unknown role %q", a.ID, a.Role)
		}
		tier := actor.Tier(a.Tier)
		if tier == "" {
			tier = actor.TierFree
		}
		created := a.CreatedAt
		if created.IsZero() {
			created = time.Now().UTC()
		}
		s.PutActor(&actor.Actor{
			ID:          a.ID,
			DisplayName: a.DisplayName,
			Headline:    a.Headline,
			Email:       a.Email,
			Role:        role,
			Tier:        tier,
			Status:      actor.StatusActive,
			CreatedAt:   created,
		})
		if a.Applications > 0 {
			s.SetApplicationCount(a.ID, a.Applications)
		}
	}
	return len(seed.Actors), nil
}
