package service

import (
	"context"

	"github.com/d60-Lab/social-feed/internal/apperr"
	"github.com/d60-Lab/social-feed/internal/model"
	"github.com/d60-Lab/social-feed/internal/repository"
)

// NotificationService 收件箱读取与已读；同时满足 notify.Store
type NotificationService interface {
	ListRecent(ctx context.Context, recipientID string, limit int) ([]model.Notification, error)
	MarkRead(ctx context.Context, recipientID, id string) error
}

type notificationService struct {
	repo repository.NotificationRepository
}

func NewNotificationService(repo repository.NotificationRepository) NotificationService {
	return &notificationService{repo: repo}
}

func (s *notificationService) ListRecent(ctx context.Context, recipientID string, limit int) ([]model.Notification, error) {
	if recipientID == "" {
		return nil, apperr.ErrAuthRequired
	}
	list, err := s.repo.ListRecent(ctx, recipientID, limit)
	if err != nil {
		return nil, apperr.Persistence("list notifications", err)
	}
	if list == nil {
		list = []model.Notification{}
	}
	return list, nil
}

func (s *notificationService) MarkRead(ctx context.Context, recipientID, id string) error {
	if recipientID == "" {
		return apperr.ErrAuthRequired
	}
	return storeErr("mark notification read", "notification", id, s.repo.MarkRead(ctx, recipientID, id))
}
