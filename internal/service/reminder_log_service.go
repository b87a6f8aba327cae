package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-presensi-api/internal/models"
	appErrors "github.com/noah-isme/sma-presensi-api/pkg/errors"
)

type reminderLister interface {
	List(ctx context.Context, filter models.ReminderFilter) ([]models.ReminderRecord, int, error)
}

// ReminderLogService exposes the append-only reminder log to read clients.
type ReminderLogService struct {
	repo   reminderLister
	logger *zap.Logger
}

// NewReminderLogService constructs ReminderLogService.
func NewReminderLogService(repo reminderLister, logger *zap.Logger) *ReminderLogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReminderLogService{repo: repo, logger: logger}
}

// List returns reminder records with pagination metadata.
func (s *ReminderLogService) List(ctx context.Context, filter models.ReminderFilter) ([]models.ReminderRecord, *models.Pagination, error) {
	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reminders")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	return records, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}
