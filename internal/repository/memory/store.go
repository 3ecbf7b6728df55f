// Package memory is a process-local gateway. It backs local development
// (database.driver: memory) and the service tests, and enforces the same
// atomicity rules as the Postgres gateway by holding one lock per operation.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/jwalitptl/conference-api/internal/model"
	"github.com/jwalitptl/conference-api/internal/repository"
)

type Store struct {
	mu            sync.Mutex
	papers        map[string]*model.Paper
	reviewers     map[string]*model.Reviewer
	conflicts     map[string]map[string]bool
	assignments   []*model.Assignment
	invitations   map[string]*model.ReviewInvitation
	invOrder      []string
	notifications []*model.NotificationRecord
	audit         []*model.AuditLog
	outbox        []*model.OutboxEvent
	now           func() time.Time
}

func NewStore() *Store {
	return &Store{
		papers:      make(map[string]*model.Paper),
		reviewers:   make(map[string]*model.Reviewer),
		conflicts:   make(map[string]map[string]bool),
		invitations: make(map[string]*model.ReviewInvitation),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Repositories exposes the store through every gateway contract.
func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		Papers:        paperRepo{s},
		Reviewers:     reviewerRepo{s},
		Assignments:   assignmentRepo{s},
		Invitations:   invitationRepo{s},
		Notifications: notificationRepo{s},
		Audit:         auditRepo{s},
		Outbox:        outboxRepo{s},
	}
}

func (s *Store) AddPaper(p *model.Paper) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	if cp.Status == "" {
		cp.Status = model.PaperStatusSubmitted
	}
	s.papers[p.ID] = &cp
}

func (s *Store) AddReviewer(r *model.Reviewer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.reviewers[r.ID] = &cp
}

// AddConflict marks a reviewer as conflicted for a paper.
func (s *Store) AddConflict(paperID, reviewerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conflicts[paperID] == nil {
		s.conflicts[paperID] = make(map[string]bool)
	}
	s.conflicts[paperID][reviewerID] = true
}

// Reviewer returns a snapshot of a reviewer, for assertions.
func (s *Store) Reviewer(id string) (model.Reviewer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reviewers[id]
	if !ok {
		return model.Reviewer{}, false
	}
	return *r, true
}

// Paper returns a snapshot of a paper, for assertions.
func (s *Store) Paper(id string) (model.Paper, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.papers[id]
	if !ok {
		return model.Paper{}, false
	}
	return *p, true
}

// AssignmentCount returns how many assignments exist across all papers.
func (s *Store) AssignmentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.assignments)
}

// InvitationCount returns how many invitations exist.
func (s *Store) InvitationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.invitations)
}

// OutboxEvents returns a snapshot of recorded events.
func (s *Store) OutboxEvents() []model.OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.OutboxEvent, 0, len(s.outbox))
	for _, e := range s.outbox {
		out = append(out, *e)
	}
	return out
}

func (s *Store) eligibleLocked(paperID string, r *model.Reviewer) bool {
	return r.Eligible && !s.conflicts[paperID][r.ID]
}

func (s *Store) appendEventLocked(eventType, aggregateID string, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		return
	}
	s.outbox = append(s.outbox, &model.OutboxEvent{
		ID:          ulid.Make().String(),
		EventType:   eventType,
		AggregateID: aggregateID,
		Payload:     body,
		Status:      model.OutboxStatusPending,
		CreatedAt:   s.now(),
	})
}

type paperRepo struct{ s *Store }

func (r paperRepo) GetByID(_ context.Context, id string) (*model.Paper, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.papers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

type reviewerRepo struct{ s *Store }

func (r reviewerRepo) GetByID(_ context.Context, id string) (*model.Reviewer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rv, ok := r.s.reviewers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *rv
	return &cp, nil
}

func (r reviewerRepo) ListEligible(_ context.Context, paperID string) ([]*model.Reviewer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Reviewer
	for _, rv := range r.s.reviewers {
		if r.s.eligibleLocked(paperID, rv) {
			cp := *rv
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type assignmentRepo struct{ s *Store }

func (r assignmentRepo) ListByPaper(_ context.Context, paperID string) ([]*model.Assignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Assignment
	for _, a := range r.s.assignments {
		if a.PaperID == paperID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r assignmentRepo) ListByReviewer(_ context.Context, reviewerID string) ([]*model.Assignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Assignment
	for i := len(r.s.assignments) - 1; i >= 0; i-- {
		if a := r.s.assignments[i]; a.ReviewerID == reviewerID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r assignmentRepo) CreateAssignments(_ context.Context, paperID string, reviewerIDs []string, now time.Time) ([]*model.Assignment, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	paper, ok := s.papers[paperID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if paper.Status == model.PaperStatusAssigned {
		return nil, repository.ErrAlreadyAssigned
	}
	for _, a := range s.assignments {
		if a.PaperID == paperID {
			return nil, repository.ErrAlreadyAssigned
		}
	}

	seen := make(map[string]bool, len(reviewerIDs))
	for _, id := range reviewerIDs {
		rv, ok := s.reviewers[id]
		switch {
		case !ok:
			return nil, &repository.ReviewerConstraintError{ReviewerID: id, Constraint: repository.ConstraintMissing}
		case !s.eligibleLocked(paperID, rv):
			return nil, &repository.ReviewerConstraintError{ReviewerID: id, Constraint: repository.ConstraintIneligible}
		case !rv.HasCapacity():
			return nil, &repository.ReviewerConstraintError{ReviewerID: id, Constraint: repository.ConstraintWorkload}
		case seen[id]:
			return nil, repository.ErrAlreadyAssigned
		}
		seen[id] = true
	}

	created := make([]*model.Assignment, 0, len(reviewerIDs))
	for _, id := range reviewerIDs {
		a := &model.Assignment{ID: uuid.NewString(), PaperID: paperID, ReviewerID: id, CreatedAt: now}
		s.assignments = append(s.assignments, a)
		s.reviewers[id].CurrentAssignmentCount++
		cp := *a
		created = append(created, &cp)
	}
	paper.Status = model.PaperStatusAssigned
	s.appendEventLocked(model.EventAssignmentCreated, paperID, map[string]interface{}{
		"paper_id":     paperID,
		"reviewer_ids": reviewerIDs,
		"created_at":   now,
	})
	return created, nil
}

type invitationRepo struct{ s *Store }

func (r invitationRepo) Create(_ context.Context, inv *model.ReviewInvitation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := cloneInvitation(inv)
	r.s.invitations[inv.ID] = cp
	r.s.invOrder = append(r.s.invOrder, inv.ID)
	return nil
}

func (r invitationRepo) GetByID(_ context.Context, id string) (*model.ReviewInvitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.invitations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneInvitation(inv), nil
}

// ListByReviewer returns invitations in insertion order.
func (r invitationRepo) ListByReviewer(_ context.Context, reviewerID string) ([]*model.ReviewInvitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.ReviewInvitation
	for _, id := range r.s.invOrder {
		if inv := r.s.invitations[id]; inv.ReviewerID == reviewerID {
			out = append(out, cloneInvitation(inv))
		}
	}
	return out, nil
}

func (r invitationRepo) UpdateStatus(_ context.Context, id string, update model.InvitationStatusUpdate) (*model.ReviewInvitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.invitations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if inv.Status != model.InvitationStatusPending {
		return nil, repository.ErrInvitationNotPending
	}
	inv.Status = update.Status
	inv.RespondedAt = model.TimePtr(update.RespondedAt)
	r.s.appendEventLocked(model.EventInvitationStatusChanged, id, map[string]interface{}{
		"invitation_id": id,
		"reviewer_id":   inv.ReviewerID,
		"paper_id":      inv.PaperID,
		"status":        inv.Status,
		"responded_at":  inv.RespondedAt,
	})
	return cloneInvitation(inv), nil
}

func cloneInvitation(inv *model.ReviewInvitation) *model.ReviewInvitation {
	cp := *inv
	if inv.ResponseDueAt != nil {
		cp.ResponseDueAt = model.TimePtr(*inv.ResponseDueAt)
	}
	if inv.RespondedAt != nil {
		cp.RespondedAt = model.TimePtr(*inv.RespondedAt)
	}
	return &cp
}

type notificationRepo struct{ s *Store }

func (r notificationRepo) Create(_ context.Context, record *model.NotificationRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *record
	r.s.notifications = append(r.s.notifications, &cp)
	return nil
}

func (r notificationRepo) List(_ context.Context) ([]*model.NotificationRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*model.NotificationRecord, 0, len(r.s.notifications))
	for _, n := range r.s.notifications {
		cp := *n
		out = append(out, &cp)
	}
	return out, nil
}

func (r notificationRepo) ListByInvitation(_ context.Context, invitationID string) ([]*model.NotificationRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.NotificationRecord
	for _, n := range r.s.notifications {
		if n.InvitationID == invitationID {
			cp := *n
			out = append(out, &cp)
		}
	}
	return out, nil
}

type auditRepo struct{ s *Store }

func (r auditRepo) Create(_ context.Context, log *model.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *log
	r.s.audit = append(r.s.audit, &cp)
	return nil
}

func (r auditRepo) List(_ context.Context, filters map[string]interface{}) ([]*model.AuditLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.AuditLog
	for i := len(r.s.audit) - 1; i >= 0; i-- {
		l := r.s.audit[i]
		if v, ok := filters["user_id"]; ok && v != l.UserID {
			continue
		}
		if v, ok := filters["action"]; ok && v != l.Action {
			continue
		}
		if v, ok := filters["entity_id"]; ok && v != l.EntityID {
			continue
		}
		cp := *l
		out = append(out, &cp)
	}
	return out, nil
}

type outboxRepo struct{ s *Store }

func (r outboxRepo) Create(_ context.Context, event *model.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	event.ID = ulid.Make().String()
	event.CreatedAt = r.s.now()
	event.Status = model.OutboxStatusPending
	cp := *event
	r.s.outbox = append(r.s.outbox, &cp)
	return nil
}

func (r outboxRepo) GetPendingEvents(_ context.Context, limit int) ([]*model.OutboxEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.OutboxEvent
	for _, e := range r.s.outbox {
		if len(out) >= limit {
			break
		}
		if e.Status == model.OutboxStatusPending {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r outboxRepo) MarkProcessed(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.outbox {
		if e.ID == id {
			e.Status = model.OutboxStatusProcessed
			e.Attempts++
			e.LastError = nil
			e.ProcessedAt = model.TimePtr(r.s.now())
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r outboxRepo) MarkFailed(_ context.Context, id string, reason string, terminal bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.outbox {
		if e.ID == id {
			e.Attempts++
			e.LastError = &reason
			if terminal {
				e.Status = model.OutboxStatusFailed
			}
			return nil
		}
	}
	return repository.ErrNotFound
}
