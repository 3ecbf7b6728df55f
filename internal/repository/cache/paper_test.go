package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/conference-api/internal/model"
	"github.com/jwalitptl/conference-api/internal/repository"
	"github.com/jwalitptl/conference-api/internal/repository/memory"
)

func newCachedStore(t *testing.T) (*memory.Store, *PaperRepository, *AssignmentRepository) {
	t.Helper()
	store := memory.NewStore()
	store.AddPaper(&model.Paper{ID: "P1", Title: "Streaming Joins", Status: model.PaperStatusSubmitted})
	for _, id := range []string{"R1", "R2", "R3"} {
		store.AddReviewer(&model.Reviewer{ID: id, Email: id + "@example.org", Eligible: true})
	}
	repos := store.Repositories()
	papers := NewPaperRepository(repos.Papers, time.Hour, time.Hour)
	return store, papers, NewAssignmentRepository(repos.Assignments, papers)
}

func TestPaperRepository_ServesFromCache(t *testing.T) {
	store, papers, _ := newCachedStore(t)
	ctx := context.Background()

	first, err := papers.GetByID(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, "Streaming Joins", first.Title)

	store.AddPaper(&model.Paper{ID: "P1", Title: "Renamed", Status: model.PaperStatusSubmitted})
	cached, err := papers.GetByID(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, "Streaming Joins", cached.Title)

	papers.Invalidate("P1")
	fresh, err := papers.GetByID(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", fresh.Title)
}

func TestPaperRepository_MissesAreNotCached(t *testing.T) {
	store, papers, _ := newCachedStore(t)

	_, err := papers.GetByID(context.Background(), "P2")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	store.AddPaper(&model.Paper{ID: "P2", Title: "Late Paper"})
	paper, err := papers.GetByID(context.Background(), "P2")
	require.NoError(t, err)
	assert.Equal(t, "Late Paper", paper.Title)
}

func TestAssignmentRepository_CommitInvalidatesPaper(t *testing.T) {
	_, papers, assignments := newCachedStore(t)
	ctx := context.Background()

	before, err := papers.GetByID(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, model.PaperStatusSubmitted, before.Status)

	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	created, err := assignments.CreateAssignments(ctx, "P1", []string{"R1", "R2", "R3"}, at)
	require.NoError(t, err)
	require.Len(t, created, 3)
	assert.Equal(t, at, created[0].CreatedAt)

	after, err := papers.GetByID(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, model.PaperStatusAssigned, after.Status)
}

func TestAssignmentRepository_FailedCommitKeepsCache(t *testing.T) {
	_, papers, assignments := newCachedStore(t)
	ctx := context.Background()

	_, err := papers.GetByID(ctx, "P1")
	require.NoError(t, err)

	_, err = assignments.CreateAssignments(ctx, "P1", []string{"R1", "R2", "R9"}, time.Now())
	var constraint *repository.ReviewerConstraintError
	require.ErrorAs(t, err, &constraint)
	assert.Equal(t, "R9", constraint.ReviewerID)

	assert.Equal(t, 1, papers.cache.ItemCount())
}
