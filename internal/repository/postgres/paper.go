package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jwalitptl/conference-api/internal/model"
	"github.com/jwalitptl/conference-api/internal/repository"
)

type paperRepository struct {
	BaseRepository
}

func NewPaperRepository(base BaseRepository) repository.PaperRepository {
	return &paperRepository{base}
}

func (r *paperRepository) GetByID(ctx context.Context, id string) (*model.Paper, error) {
	var paper model.Paper
	err := r.GetDB().GetContext(ctx, &paper, `SELECT id, title, abstract, status FROM papers WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get paper: %w", err)
	}
	return &paper, nil
}
