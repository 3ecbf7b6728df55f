package expiry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/conference-api/internal/model"
	"github.com/jwalitptl/conference-api/internal/repository"
	"github.com/jwalitptl/conference-api/internal/repository/memory"
	"github.com/jwalitptl/conference-api/pkg/clock"
	"github.com/jwalitptl/conference-api/pkg/logger"
	"github.com/jwalitptl/conference-api/pkg/metrics"
)

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T, invs ...*model.ReviewInvitation) (*Sweeper, *clock.Fixed, repository.InvitationRepository) {
	t.Helper()
	repos := memory.NewStore().Repositories()
	for _, inv := range invs {
		require.NoError(t, repos.Invitations.Create(context.Background(), inv))
	}
	clk := clock.NewFixed(base)
	return NewSweeper(repos.Invitations, clk, metrics.NewNop(), logger.Nop()), clk, repos.Invitations
}

func invitation(id string, status model.InvitationStatus, due *time.Time) *model.ReviewInvitation {
	return &model.ReviewInvitation{
		ID:            id,
		ReviewerID:    "R1",
		PaperID:       "P1",
		Status:        status,
		CreatedAt:     base.Add(-20 * 24 * time.Hour),
		ResponseDueAt: due,
	}
}

func TestSweeper_DeclinesOnlyOverduePending(t *testing.T) {
	invs := []*model.ReviewInvitation{
		invitation("past", model.InvitationStatusPending, model.TimePtr(base.Add(-time.Hour))),
		invitation("future", model.InvitationStatusPending, model.TimePtr(base.Add(time.Hour))),
		invitation("exact", model.InvitationStatusPending, model.TimePtr(base)),
		invitation("accepted", model.InvitationStatusAccepted, model.TimePtr(base.Add(-time.Hour))),
		invitation("no-due", model.InvitationStatusPending, nil),
		invitation("zero-due", model.InvitationStatusPending, &time.Time{}),
	}
	sweeper, _, repo := setup(t, invs...)

	list := append([]*model.ReviewInvitation{nil}, invs...)
	res, err := sweeper.RefreshStatuses(context.Background(), list)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Changed)

	assert.Equal(t, model.InvitationStatusDeclined, list[1].Status)
	require.NotNil(t, list[1].RespondedAt)
	assert.Equal(t, base, *list[1].RespondedAt)

	stored, err := repo.GetByID(context.Background(), "past")
	require.NoError(t, err)
	assert.Equal(t, model.InvitationStatusDeclined, stored.Status)

	for _, id := range []string{"future", "exact", "no-due", "zero-due"} {
		stored, err := repo.GetByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, model.InvitationStatusPending, stored.Status, id)
	}
}

func TestSweeper_Idempotent(t *testing.T) {
	inv := invitation("past", model.InvitationStatusPending, model.TimePtr(base.Add(-time.Minute)))
	sweeper, _, repo := setup(t, inv)

	first, err := sweeper.RefreshStatuses(context.Background(), []*model.ReviewInvitation{inv})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Changed)

	reloaded, err := repo.ListByReviewer(context.Background(), "R1")
	require.NoError(t, err)
	second, err := sweeper.RefreshStatuses(context.Background(), reloaded)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Changed)
}

func TestSweeper_StaleCopyAlreadyResolved(t *testing.T) {
	inv := invitation("raced", model.InvitationStatusPending, model.TimePtr(base.Add(-time.Minute)))
	sweeper, _, repo := setup(t, inv)

	_, err := repo.UpdateStatus(context.Background(), "raced", model.InvitationStatusUpdate{
		Status: model.InvitationStatusAccepted, RespondedAt: base.Add(-30 * time.Second),
	})
	require.NoError(t, err)

	list := []*model.ReviewInvitation{inv}
	res, err := sweeper.RefreshStatuses(context.Background(), list)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Changed)
	assert.Equal(t, model.InvitationStatusAccepted, list[0].Status)
}

func TestSweeper_ClockAdvance(t *testing.T) {
	inv := invitation("soon", model.InvitationStatusPending, model.TimePtr(base.Add(time.Hour)))
	sweeper, clk, _ := setup(t, inv)

	res, err := sweeper.RefreshStatuses(context.Background(), []*model.ReviewInvitation{inv})
	require.NoError(t, err)
	assert.Zero(t, res.Changed)

	clk.Advance(2 * time.Hour)
	res, err = sweeper.RefreshStatuses(context.Background(), []*model.ReviewInvitation{inv})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Changed)
}
