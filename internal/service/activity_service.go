package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// ActivityService writes and reads the append-only activity log.
type ActivityService struct {
	repo   repository.ActivityRepository
	logger *zap.Logger
}

// NewActivityService builds the service.
func NewActivityService(repo repository.ActivityRepository, logger *zap.Logger) *ActivityService {
	return &ActivityService{repo: repo, logger: logger}
}

// Record appends an entry. Failures are logged and swallowed so they never fail a chat turn.
func (s *ActivityService) Record(ctx context.Context, userID, action string) {
	if s == nil || s.repo == nil {
		return
	}
	entry := &domain.ActivityEntry{UserID: userID, Action: action}
	if err := s.repo.Append(ctx, entry); err != nil {
		s.logger.Warn("activity log write failed", zap.String("user_id", userID), zap.Error(err))
	}
}

// Recent returns up to limit entries, newest first.
func (s *ActivityService) Recent(ctx context.Context, limit int) ([]domain.ActivityEntry, error) {
	return s.repo.Recent(ctx, limit)
}
