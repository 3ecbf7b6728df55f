package notification

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/conference-api/internal/email"
	"github.com/jwalitptl/conference-api/internal/model"
	"github.com/jwalitptl/conference-api/internal/repository"
	"github.com/jwalitptl/conference-api/pkg/clock"
	"github.com/jwalitptl/conference-api/pkg/logger"
	"github.com/jwalitptl/conference-api/pkg/metrics"
	"github.com/jwalitptl/conference-api/pkg/validator"
)

type BatchStatus string

const (
	BatchStatusSent           BatchStatus = "sent"
	BatchStatusPartialFailure BatchStatus = "partial_failure"
)

type OutcomeStatus string

const (
	OutcomeSent   OutcomeStatus = "sent"
	OutcomeFailed OutcomeStatus = "failed"
)

// Failure reasons returned to callers. The detailed cause is kept on the
// notification record.
const (
	ReasonReviewerNotFound = "reviewer_not_found"
	ReasonInvalidRecipient = "invalid_recipient"
	ReasonTemplateError    = "template_error"
	ReasonDeliveryFailed   = "delivery_failed"
	ReasonSenderPanic      = "sender_panic"
)

type Failure struct {
	ReviewerID   string `json:"reviewerId"`
	InvitationID string `json:"invitationId,omitempty"`
	Reason       string `json:"reason"`
}

type BatchResult struct {
	Status   BatchStatus
	Failures []Failure
}

type Outcome struct {
	Status   OutcomeStatus
	Reason   string
	RecordID string
}

type RetryResult struct {
	Attempted int
	Sent      int
	Failed    int
}

type Config struct {
	// MaxAttempts bounds RetryFailed, counting the first attempt.
	MaxAttempts int
	PortalURL   string
	Signature   string
}

// Dispatcher attempts invitation emails and records every attempt. It never
// returns a delivery problem as an error.
type Dispatcher struct {
	notifications repository.NotificationRepository
	invitations   repository.InvitationRepository
	reviewers     repository.ReviewerRepository
	papers        repository.PaperRepository
	sender        email.Sender
	template      *email.InvitationTemplate
	validate      validator.Validator
	clock         clock.Clock
	metrics       *metrics.Metrics
	log           *logger.Logger
	cfg           Config
}

func NewDispatcher(
	repos *repository.Repositories,
	sender email.Sender,
	template *email.InvitationTemplate,
	clk clock.Clock,
	m *metrics.Metrics,
	log *logger.Logger,
	cfg Config,
) *Dispatcher {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	return &Dispatcher{
		notifications: repos.Notifications,
		invitations:   repos.Invitations,
		reviewers:     repos.Reviewers,
		papers:        repos.Papers,
		sender:        sender,
		template:      template,
		validate:      validator.New(),
		clock:         clk,
		metrics:       m,
		log:           log,
		cfg:           cfg,
	}
}

// SendReviewerInvitations attempts one notification per invitation. A failed
// attempt does not stop the others.
func (d *Dispatcher) SendReviewerInvitations(ctx context.Context, paper *model.Paper, reviewers []*model.Reviewer, invitations []*model.ReviewInvitation) BatchResult {
	byID := make(map[string]*model.Reviewer, len(reviewers))
	for _, r := range reviewers {
		if r != nil {
			byID[r.ID] = r
		}
	}

	result := BatchResult{Status: BatchStatusSent}
	for _, inv := range invitations {
		if inv == nil {
			continue
		}
		outcome := d.SendInvitationNotification(ctx, inv, byID[inv.ReviewerID], paper)
		if outcome.Status == OutcomeFailed {
			result.Failures = append(result.Failures, Failure{
				ReviewerID:   inv.ReviewerID,
				InvitationID: inv.ID,
				Reason:       outcome.Reason,
			})
		}
	}
	if len(result.Failures) > 0 {
		result.Status = BatchStatusPartialFailure
	}
	return result
}

// SendInvitationNotification makes the first delivery attempt for inv.
func (d *Dispatcher) SendInvitationNotification(ctx context.Context, inv *model.ReviewInvitation, reviewer *model.Reviewer, paper *model.Paper) Outcome {
	return d.deliver(ctx, inv, reviewer, paper, 1)
}

// RetryFailed re-attempts every invitation whose latest attempt failed, while
// the invitation is still pending and attempts remain.
func (d *Dispatcher) RetryFailed(ctx context.Context) (RetryResult, error) {
	var result RetryResult

	records, err := d.notifications.List(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list notification records: %w", err)
	}

	latest := make(map[string]*model.NotificationRecord)
	for _, rec := range records {
		if cur, ok := latest[rec.InvitationID]; !ok || rec.Attempt > cur.Attempt {
			latest[rec.InvitationID] = rec
		}
	}

	ids := make([]string, 0, len(latest))
	for id, rec := range latest {
		if rec.DeliveryStatus == model.NotificationStatusFailed && rec.Attempt < d.cfg.MaxAttempts {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		inv, err := d.invitations.GetByID(ctx, id)
		if err != nil {
			d.log.Error(err, "failed to load invitation for retry", "invitation_id", id)
			continue
		}
		if inv.Status != model.InvitationStatusPending {
			continue
		}
		reviewer, err := d.reviewers.GetByID(ctx, inv.ReviewerID)
		if err != nil {
			reviewer = nil
		}
		paper, err := d.papers.GetByID(ctx, inv.PaperID)
		if err != nil {
			paper = nil
		}

		result.Attempted++
		if d.deliver(ctx, inv, reviewer, paper, latest[id].Attempt+1).Status == OutcomeSent {
			result.Sent++
		} else {
			result.Failed++
		}
	}
	return result, nil
}

func (d *Dispatcher) deliver(ctx context.Context, inv *model.ReviewInvitation, reviewer *model.Reviewer, paper *model.Paper, attempt int) Outcome {
	start := time.Now()
	now := d.clock.Now()
	record := &model.NotificationRecord{
		ID:           uuid.NewString(),
		InvitationID: inv.ID,
		ReviewerID:   inv.ReviewerID,
		Channel:      model.NotificationChannelEmail,
		Attempt:      attempt,
		CreatedAt:    now,
	}

	reason, detail := d.attempt(ctx, inv, reviewer, paper, record)
	outcome := Outcome{Status: OutcomeSent, RecordID: record.ID}
	if reason == "" {
		record.DeliveryStatus = model.NotificationStatusSent
		record.SentAt = model.TimePtr(now)
	} else {
		record.DeliveryStatus = model.NotificationStatusFailed
		record.FailureReason = detail
		outcome.Status = OutcomeFailed
		outcome.Reason = reason
		d.log.Warn("invitation notification failed",
			"invitation_id", inv.ID,
			"reviewer_id", inv.ReviewerID,
			"attempt", attempt,
			"reason", reason,
			"detail", detail,
		)
	}

	if err := d.notifications.Create(ctx, record); err != nil {
		d.log.Error(err, "failed to record notification attempt",
			"invitation_id", inv.ID,
			"reviewer_id", inv.ReviewerID,
			"status", record.DeliveryStatus,
		)
	}

	d.metrics.Notifications.WithLabelValues(string(record.DeliveryStatus)).Inc()
	d.metrics.NotificationLatency.Observe(time.Since(start).Seconds())
	return outcome
}

// attempt returns an empty reason on success.
func (d *Dispatcher) attempt(ctx context.Context, inv *model.ReviewInvitation, reviewer *model.Reviewer, paper *model.Paper, record *model.NotificationRecord) (reason, detail string) {
	defer func() {
		if r := recover(); r != nil {
			reason, detail = ReasonSenderPanic, fmt.Sprintf("panic: %v", r)
		}
	}()

	if reviewer == nil {
		return ReasonReviewerNotFound, "reviewer not found"
	}
	record.Recipient = reviewer.Email
	if err := d.validate.ValidateField("recipient", reviewer.Email, "required", "email"); err != nil {
		return ReasonInvalidRecipient, err.Error()
	}

	msg := d.message(inv, reviewer, paper)
	body, err := d.template.Render(msg)
	if err != nil {
		return ReasonTemplateError, err.Error()
	}
	if err := d.sender.Send(ctx, reviewer.Email, d.template.Subject(msg), body); err != nil {
		return ReasonDeliveryFailed, err.Error()
	}
	return "", ""
}

func (d *Dispatcher) message(inv *model.ReviewInvitation, reviewer *model.Reviewer, paper *model.Paper) email.InvitationMessage {
	msg := email.InvitationMessage{
		ReviewerName: reviewer.Name,
		PaperTitle:   model.UnknownPaperTitle,
		Signature:    d.cfg.Signature,
	}
	if msg.ReviewerName == "" {
		msg.ReviewerName = "reviewer"
	}
	if paper != nil && paper.Title != "" {
		msg.PaperTitle = paper.Title
	}
	if inv.ResponseDueAt != nil {
		msg.DueDate = inv.ResponseDueAt.Format("2006-01-02")
	}
	if d.cfg.PortalURL != "" {
		msg.RespondURL = strings.TrimRight(d.cfg.PortalURL, "/") + "/invitations/" + inv.ID
	}
	return msg
}
