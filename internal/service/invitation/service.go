package invitation

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/jwalitptl/conference-api/internal/model"
	"github.com/jwalitptl/conference-api/internal/repository"
	"github.com/jwalitptl/conference-api/internal/service/authz"
	"github.com/jwalitptl/conference-api/internal/service/expiry"
	apperrors "github.com/jwalitptl/conference-api/pkg/errors"
	"github.com/jwalitptl/conference-api/pkg/logger"
)

// StatusAny disables status filtering in ListQuery.
const StatusAny = "all"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type ListQuery struct {
	ReviewerID string
	// Status defaults to pending when empty.
	Status   string
	Page     int
	PageSize int
}

type Config struct {
	DefaultPageSize int
	MaxPageSize     int
}

// Service is the read path over a reviewer's invitations. Every read sweeps
// overdue invitations first.
type Service struct {
	invitations repository.InvitationRepository
	papers      repository.PaperRepository
	guard       *authz.Guard
	sweeper     *expiry.Sweeper
	log         *logger.Logger
	cfg         Config
}

func NewService(
	invitations repository.InvitationRepository,
	papers repository.PaperRepository,
	guard *authz.Guard,
	sweeper *expiry.Sweeper,
	log *logger.Logger,
	cfg Config,
) *Service {
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = DefaultPageSize
	}
	if cfg.MaxPageSize < cfg.DefaultPageSize {
		cfg.MaxPageSize = MaxPageSize
	}
	return &Service{
		invitations: invitations,
		papers:      papers,
		guard:       guard,
		sweeper:     sweeper,
		log:         log,
		cfg:         cfg,
	}
}

func (s *Service) ListForReviewer(ctx context.Context, q ListQuery) (*model.InvitationPage, error) {
	filter, err := parseStatusFilter(q.Status)
	if err != nil {
		return nil, err
	}
	p := s.pagination(q.Page, q.PageSize)

	invitations, err := s.invitations.ListByReviewer(ctx, q.ReviewerID)
	if err != nil {
		s.log.Error(err, "failed to list invitations", "reviewer_id", q.ReviewerID)
		return nil, listUnavailable(err)
	}
	if _, err := s.sweeper.RefreshStatuses(ctx, invitations); err != nil {
		s.log.Error(err, "failed to refresh invitation statuses", "reviewer_id", q.ReviewerID)
		return nil, listUnavailable(err)
	}

	matched := make([]*model.ReviewInvitation, 0, len(invitations))
	for _, inv := range invitations {
		if inv != nil && (filter == "" || inv.Status == filter) {
			matched = append(matched, inv)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	page := &model.InvitationPage{
		Items:      []*model.InvitationSummary{},
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalItems: len(matched),
		TotalPages: p.TotalPages(len(matched)),
	}

	start := p.Offset()
	if start >= len(matched) {
		return page, nil
	}
	end := start + p.PageSize
	if end > len(matched) {
		end = len(matched)
	}

	titles := make(map[string]string)
	for _, inv := range matched[start:end] {
		title, ok := titles[inv.PaperID]
		if !ok {
			title = s.paperTitle(ctx, inv.PaperID)
			titles[inv.PaperID] = title
		}
		page.Items = append(page.Items, summarize(inv, title))
	}
	return page, nil
}

// GetByID checks existence, then ownership, then sweeps. The abstract is only
// disclosed once the invitation is accepted.
func (s *Service) GetByID(ctx context.Context, reviewerID, invitationID string) (*model.InvitationDetail, error) {
	inv, err := s.invitations.GetByID(ctx, invitationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		s.log.Error(err, "failed to load invitation", "invitation_id", invitationID)
		return nil, unavailable(err)
	}
	if !s.guard.CanAccessInvitation(ctx, reviewerID, inv) {
		return nil, ErrForbidden
	}

	swept := []*model.ReviewInvitation{inv}
	if _, err := s.sweeper.RefreshStatuses(ctx, swept); err != nil {
		s.log.Error(err, "failed to refresh invitation status", "invitation_id", invitationID)
		return nil, unavailable(err)
	}
	inv = swept[0]

	detail := &model.InvitationDetail{InvitationSummary: *summarize(inv, model.UnknownPaperTitle)}
	paper, err := s.papers.GetByID(ctx, inv.PaperID)
	switch {
	case err == nil:
		if paper.Title != "" {
			detail.PaperTitle = paper.Title
		}
		if inv.Status == model.InvitationStatusAccepted {
			detail.Abstract = paper.Abstract
		}
	case !errors.Is(err, repository.ErrNotFound):
		s.log.Warn("paper lookup failed", "paper_id", inv.PaperID, "error", err.Error())
	}
	return detail, nil
}

func (s *Service) pagination(page, size int) model.Pagination {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = s.cfg.DefaultPageSize
	}
	if size > s.cfg.MaxPageSize {
		size = s.cfg.MaxPageSize
	}
	return model.Pagination{Page: page, PageSize: size}
}

func (s *Service) paperTitle(ctx context.Context, paperID string) string {
	paper, err := s.papers.GetByID(ctx, paperID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.Warn("paper lookup failed", "paper_id", paperID, "error", err.Error())
		}
		return model.UnknownPaperTitle
	}
	if paper.Title == "" {
		return model.UnknownPaperTitle
	}
	return paper.Title
}

// parseStatusFilter returns "" for no filtering.
func parseStatusFilter(raw string) (model.InvitationStatus, error) {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return model.InvitationStatusPending, nil
	case strings.EqualFold(raw, StatusAny):
		return "", nil
	}
	status, err := model.ParseInvitationStatus(raw)
	if err != nil {
		return "", apperrors.BadRequest(CodeInvalidStatus, "Unknown invitation status.").WithDetail("status", raw)
	}
	return status, nil
}

func summarize(inv *model.ReviewInvitation, title string) *model.InvitationSummary {
	return &model.InvitationSummary{
		ID:            inv.ID,
		PaperID:       inv.PaperID,
		PaperTitle:    title,
		Status:        inv.Status,
		CreatedAt:     inv.CreatedAt,
		ResponseDueAt: inv.ResponseDueAt,
		RespondedAt:   inv.RespondedAt,
	}
}
