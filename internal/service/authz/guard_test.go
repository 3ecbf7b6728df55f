package authz

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/conference-api/internal/model"
	"github.com/jwalitptl/conference-api/internal/repository"
	"github.com/jwalitptl/conference-api/internal/repository/memory"
	"github.com/jwalitptl/conference-api/internal/service/audit"
	"github.com/jwalitptl/conference-api/pkg/clock"
	"github.com/jwalitptl/conference-api/pkg/logger"
)

type fixture struct {
	guard *Guard
	audit *audit.AuditLogger
	repos *repository.Repositories
	store *memory.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	repos := store.Repositories()
	clk := clock.NewFixed(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	al := audit.NewAuditLogger(audit.NewService(repos.Audit, clk), logger.Nop())
	return &fixture{
		guard: NewGuard(repos.Assignments, al, clk, logger.Nop()),
		audit: al,
		repos: repos,
		store: store,
	}
}

func (f *fixture) deniedEntries(t *testing.T) []*model.AuditLog {
	t.Helper()
	f.audit.Wait()
	logs, err := f.repos.Audit.List(context.Background(), map[string]interface{}{"action": model.AuditActionAccessDenied})
	require.NoError(t, err)
	return logs
}

func TestGuard_CanAccessInvitation(t *testing.T) {
	inv := &model.ReviewInvitation{ID: "I1", ReviewerID: "R1", PaperID: "P1", Status: model.InvitationStatusPending}

	tests := []struct {
		name      string
		userID    string
		inv       *model.ReviewInvitation
		want      bool
		wantAudit int
	}{
		{name: "owner", userID: "R1", inv: inv, want: true},
		{name: "other reviewer", userID: "R2", inv: inv, wantAudit: 1},
		{name: "anonymous", userID: "", inv: inv, wantAudit: 1},
		{name: "missing invitation", userID: "R1", inv: nil, wantAudit: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			assert.Equal(t, tt.want, f.guard.CanAccessInvitation(context.Background(), tt.userID, tt.inv))
			assert.Len(t, f.deniedEntries(t), tt.wantAudit)
		})
	}
}

func TestGuard_DenialAuditEntry(t *testing.T) {
	f := newFixture(t)
	inv := &model.ReviewInvitation{ID: "I1", ReviewerID: "R1"}

	require.False(t, f.guard.CanAccessInvitation(context.Background(), "R2", inv))

	logs := f.deniedEntries(t)
	require.Len(t, logs, 1)
	assert.Equal(t, "R2", logs[0].UserID)
	assert.Equal(t, "I1", logs[0].EntityID)
	assert.Equal(t, model.AuditEntityInvitation, logs[0].EntityType)
	assert.JSONEq(t, `{"userId":"R2","invitationId":"I1","timestamp":"2025-03-01T00:00:00Z"}`, string(logs[0].Metadata))
}

func TestGuard_CanAccessAssignedPaper(t *testing.T) {
	f := newFixture(t)
	f.store.AddPaper(&model.Paper{ID: "P1", Title: "Graph Sampling"})
	for _, id := range []string{"R1", "R2", "R3"} {
		f.store.AddReviewer(&model.Reviewer{ID: id, Email: id + "@example.org", Eligible: true})
	}
	_, err := f.repos.Assignments.CreateAssignments(context.Background(), "P1", []string{"R1", "R2", "R3"}, time.Now())
	require.NoError(t, err)

	assert.True(t, f.guard.CanAccessAssignedPaper(context.Background(), "R2", "P1"))
	assert.Empty(t, f.deniedEntries(t))

	assert.False(t, f.guard.CanAccessAssignedPaper(context.Background(), "R9", "P1"))
	assert.False(t, f.guard.CanAccessAssignedPaper(context.Background(), "R1", "P2"))

	logs := f.deniedEntries(t)
	require.Len(t, logs, 2)
	assert.Equal(t, model.AuditEntityAssignedPaper, logs[0].EntityType)
}
