package memory

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/jwalitptl/conference-api/internal/model"
)

// Seed is the fixture format accepted by LoadSeed.
type Seed struct {
	Papers []struct {
		ID       string `mapstructure:"id"`
		Title    string `mapstructure:"title"`
		Abstract string `mapstructure:"abstract"`
	} `mapstructure:"papers"`
	Reviewers []struct {
		ID          string `mapstructure:"id"`
		Name        string `mapstructure:"name"`
		Email       string `mapstructure:"email"`
		Eligible    bool   `mapstructure:"eligible"`
		Assignments int    `mapstructure:"assignments"`
	} `mapstructure:"reviewers"`
	Conflicts []struct {
		PaperID    string `mapstructure:"paper_id"`
		ReviewerID string `mapstructure:"reviewer_id"`
	} `mapstructure:"conflicts"`
}

// LoadSeed fills the store from a YAML or JSON fixture file.
func (s *Store) LoadSeed(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed Seed
	if err := v.Unmarshal(&seed); err != nil {
		return fmt.Errorf("failed to decode seed file: %w", err)
	}

	for _, p := range seed.Papers {
		if p.ID == "" {
			return fmt.Errorf("seed paper without id")
		}
		s.AddPaper(&model.Paper{ID: p.ID, Title: p.Title, Abstract: p.Abstract})
	}
	for _, r := range seed.Reviewers {
		if r.ID == "" {
			return fmt.Errorf("seed reviewer without id")
		}
		s.AddReviewer(&model.Reviewer{
			ID:                     r.ID,
			Name:                   r.Name,
			Email:                  r.Email,
			Eligible:               r.Eligible,
			CurrentAssignmentCount: r.Assignments,
		})
	}
	for _, c := range seed.Conflicts {
		s.AddConflict(c.PaperID, c.ReviewerID)
	}
	return nil
}
