package services

import (
	"context"

	"github.com/qaforge/checkout-agent/internal/models"
	"github.com/qaforge/checkout-agent/internal/store"
)

// RunFilter narrows a run history query.
type RunFilter struct {
	Kinds     []models.RunKind
	Countries []string
	Success   *bool
	Limit     uint64
	Offset    uint64
}

// RunService exposes the persisted run history.
type RunService struct {
	store *store.Store
}

func NewRunService(st *store.Store) *RunService {
	return &RunService{store: st}
}

func (s *RunService) Get(ctx context.Context, id string) (*models.Run, error) {
	return s.store.Runs().Get(ctx, id)
}

func (s *RunService) List(ctx context.Context, filter RunFilter) ([]models.Run, int, error) {
	filterOpts := []store.ListOption{
		store.ByKind(filter.Kinds...),
		store.ByCountry(filter.Countries...),
	}
	if filter.Success != nil {
		filterOpts = append(filterOpts, store.BySuccess(*filter.Success))
	}

	total, err := s.store.Runs().Count(ctx, filterOpts...)
	if err != nil {
		return nil, 0, err
	}

	listOpts := filterOpts
	if filter.Limit > 0 {
		listOpts = append(listOpts, store.WithLimit(filter.Limit))
	}
	if filter.Offset > 0 {
		listOpts = append(listOpts, store.WithOffset(filter.Offset))
	}

	runs, err := s.store.Runs().List(ctx, listOpts...)
	if err != nil {
		return nil, 0, err
	}
	return runs, total, nil
}
