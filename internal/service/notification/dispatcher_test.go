package notification

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/conference-api/internal/email"
	"github.com/jwalitptl/conference-api/internal/model"
	"github.com/jwalitptl/conference-api/internal/repository"
	"github.com/jwalitptl/conference-api/internal/repository/memory"
	"github.com/jwalitptl/conference-api/pkg/clock"
	"github.com/jwalitptl/conference-api/pkg/logger"
	"github.com/jwalitptl/conference-api/pkg/metrics"
)

type sentMail struct {
	address string
	subject string
	body    string
}

// senderMock fails or panics for configured addresses and records the rest.
type senderMock struct {
	mu     sync.Mutex
	fail   map[string]error
	panics map[string]bool
	sent   []sentMail
}

func (s *senderMock) Send(_ context.Context, address, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.panics[address] {
		panic("smtp client exploded")
	}
	if err := s.fail[address]; err != nil {
		return err
	}
	s.sent = append(s.sent, sentMail{address: address, subject: subject, body: body})
	return nil
}

type fixture struct {
	store      *memory.Store
	repos      *repository.Repositories
	sender     *senderMock
	dispatcher *Dispatcher
	now        time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	repos := store.Repositories()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	sender := &senderMock{fail: map[string]error{}, panics: map[string]bool{}}
	tmpl := email.NewInvitationTemplate(filepath.Join(t.TempDir(), "absent.tmpl"), logger.Nop())

	return &fixture{
		store:  store,
		repos:  repos,
		sender: sender,
		dispatcher: NewDispatcher(repos, sender, tmpl, clock.NewFixed(now), metrics.NewNop(), logger.Nop(),
			Config{MaxAttempts: 3, PortalURL: "https://review.example.org/"}),
		now: now,
	}
}

// seed creates P1 with three reviewers and one pending invitation each.
func (f *fixture) seed(t *testing.T) (*model.Paper, []*model.Reviewer, []*model.ReviewInvitation) {
	t.Helper()
	ctx := context.Background()
	paper := &model.Paper{ID: "P1", Title: "Streaming Joins", Abstract: "..."}
	f.store.AddPaper(paper)

	var reviewers []*model.Reviewer
	var invitations []*model.ReviewInvitation
	for _, id := range []string{"R1", "R2", "R3"} {
		r := &model.Reviewer{ID: id, Name: "Reviewer " + id, Email: id + "@example.org", Eligible: true}
		f.store.AddReviewer(r)
		reviewers = append(reviewers, r)

		inv := model.NewReviewInvitation("I-"+id, &model.Assignment{ID: "A-" + id, PaperID: "P1", ReviewerID: id}, f.now)
		require.NoError(t, f.repos.Invitations.Create(ctx, inv))
		invitations = append(invitations, inv)
	}
	return paper, reviewers, invitations
}

func TestDispatcher_SendReviewerInvitations_AllSent(t *testing.T) {
	f := newFixture(t)
	paper, reviewers, invitations := f.seed(t)

	result := f.dispatcher.SendReviewerInvitations(context.Background(), paper, reviewers, invitations)

	assert.Equal(t, BatchStatusSent, result.Status)
	assert.Empty(t, result.Failures)
	require.Len(t, f.sender.sent, 3)
	for _, m := range f.sender.sent {
		assert.Equal(t, "Review invitation: Streaming Joins", m.subject)
		assert.Contains(t, m.body, "Streaming Joins")
		assert.Contains(t, m.body, "respond")
		assert.Contains(t, m.body, "2025-03-15")
	}

	records, err := f.repos.Notifications.List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3)
	for _, rec := range records {
		assert.Equal(t, model.NotificationStatusSent, rec.DeliveryStatus)
		assert.Equal(t, 1, rec.Attempt)
		require.NotNil(t, rec.SentAt)
		assert.Equal(t, f.now, *rec.SentAt)
	}
}

func TestDispatcher_SendReviewerInvitations_OneFailureIsIsolated(t *testing.T) {
	f := newFixture(t)
	paper, reviewers, invitations := f.seed(t)
	f.sender.fail["R2@example.org"] = errors.New("550 mailbox unavailable")

	result := f.dispatcher.SendReviewerInvitations(context.Background(), paper, reviewers, invitations)

	assert.Equal(t, BatchStatusPartialFailure, result.Status)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, Failure{ReviewerID: "R2", InvitationID: "I-R2", Reason: ReasonDeliveryFailed}, result.Failures[0])
	assert.Len(t, f.sender.sent, 2)

	records, err := f.repos.Notifications.ListByInvitation(context.Background(), "I-R2")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, model.NotificationStatusFailed, records[0].DeliveryStatus)
	assert.Equal(t, "550 mailbox unavailable", records[0].FailureReason)
	assert.Nil(t, records[0].SentAt)

	// Every invitation stays visible regardless of delivery.
	for _, id := range []string{"R1", "R2", "R3"} {
		list, err := f.repos.Invitations.ListByReviewer(context.Background(), id)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	}
}

func TestDispatcher_SenderPanicAndMalformedRecipient(t *testing.T) {
	f := newFixture(t)
	paper, reviewers, invitations := f.seed(t)
	f.sender.panics["R1@example.org"] = true
	reviewers[2].Email = "not-an-address"

	result := f.dispatcher.SendReviewerInvitations(context.Background(), paper, reviewers, invitations)

	assert.Equal(t, BatchStatusPartialFailure, result.Status)
	require.Len(t, result.Failures, 2)
	assert.Equal(t, ReasonSenderPanic, result.Failures[0].Reason)
	assert.Equal(t, ReasonInvalidRecipient, result.Failures[1].Reason)
	assert.Len(t, f.sender.sent, 1)

	records, err := f.repos.Notifications.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestDispatcher_MissingReviewerAndPaper(t *testing.T) {
	f := newFixture(t)
	_, reviewers, invitations := f.seed(t)

	outcome := f.dispatcher.SendInvitationNotification(context.Background(), invitations[0], nil, nil)
	assert.Equal(t, OutcomeFailed, outcome.Status)
	assert.Equal(t, ReasonReviewerNotFound, outcome.Reason)

	outcome = f.dispatcher.SendInvitationNotification(context.Background(), invitations[1], reviewers[1], nil)
	assert.Equal(t, OutcomeSent, outcome.Status)
	require.Len(t, f.sender.sent, 1)
	assert.Contains(t, f.sender.sent[0].body, model.UnknownPaperTitle)
	assert.Contains(t, f.sender.sent[0].body, "https://review.example.org/invitations/I-R2")
}

func TestDispatcher_RetryFailed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	paper, reviewers, invitations := f.seed(t)
	f.sender.fail["R2@example.org"] = errors.New("timeout")
	f.sender.fail["R3@example.org"] = errors.New("timeout")
	f.dispatcher.SendReviewerInvitations(ctx, paper, reviewers, invitations)

	// R3 answered meanwhile, so it is not retried.
	_, err := f.repos.Invitations.UpdateStatus(ctx, "I-R3", model.InvitationStatusUpdate{Status: model.InvitationStatusRejected, RespondedAt: f.now})
	require.NoError(t, err)

	delete(f.sender.fail, "R2@example.org")
	result, err := f.dispatcher.RetryFailed(ctx)
	require.NoError(t, err)
	assert.Equal(t, RetryResult{Attempted: 1, Sent: 1}, result)

	records, err := f.repos.Notifications.ListByInvitation(ctx, "I-R2")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 2, records[1].Attempt)
	assert.Equal(t, model.NotificationStatusSent, records[1].DeliveryStatus)

	result, err = f.dispatcher.RetryFailed(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.Attempted)
}

func TestDispatcher_RetryFailedStopsAtMaxAttempts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	paper, reviewers, invitations := f.seed(t)
	f.sender.fail["R1@example.org"] = errors.New("refused")
	f.dispatcher.SendReviewerInvitations(ctx, paper, reviewers[:1], invitations[:1])

	for i := 0; i < 5; i++ {
		_, err := f.dispatcher.RetryFailed(ctx)
		require.NoError(t, err)
	}

	records, err := f.repos.Notifications.ListByInvitation(ctx, "I-R1")
	require.NoError(t, err)
	assert.Len(t, records, 3)
}
