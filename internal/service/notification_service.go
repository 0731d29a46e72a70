package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"tradeboard/internal/model"
)

type notificationStore interface {
	ListByUser(ctx context.Context, userID int64, limit int) ([]model.Notification, error)
	CountUnread(ctx context.Context, userID int64) (int, error)
	MarkRead(ctx context.Context, userID, notificationID int64) error
	MarkAllRead(ctx context.Context, userID int64) error
}

const unreadBadgeTTL = 5 * time.Minute

// NotificationService is the read side of the fan-out: the inbox listing
// and the unread badge, with the badge count cached in Redis.
type NotificationService struct {
	notifications notificationStore
	rdb           *redis.Client
	logger        *zap.Logger
}

func NewNotificationService(notifications notificationStore, rdb *redis.Client, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		rdb:           rdb,
		logger:        logger,
	}
}

func badgeKey(userID int64) string {
	return fmt.Sprintf("notify:unread:%d", userID)
}

func (s *NotificationService) List(ctx context.Context, userID int64, limit int) ([]model.Notification, error) {
	return s.notifications.ListByUser(ctx, userID, limit)
}

// UnreadCount serves the badge from Redis, falling back to the database
// on a miss. A Redis outage degrades to counting every time.
func (s *NotificationService) UnreadCount(ctx context.Context, userID int64) (int, error) {
	if cached, err := s.rdb.Get(ctx, badgeKey(userID)).Result(); err == nil {
		if n, err := strconv.Atoi(cached); err == nil {
			return n, nil
		}
	}

	n, err := s.notifications.CountUnread(ctx, userID)
	if err != nil {
		return 0, err
	}

	if err := s.rdb.Set(ctx, badgeKey(userID), n, unreadBadgeTTL).Err(); err != nil {
		s.logger.Warn("Failed to cache unread badge", zap.Int64("user_id", userID), zap.Error(err))
	}
	return n, nil
}

// InvalidateBadge drops the cached count; called whenever a notification
// row for the user changes.
func (s *NotificationService) InvalidateBadge(ctx context.Context, userID int64) {
	if err := s.rdb.Del(ctx, badgeKey(userID)).Err(); err != nil {
		s.logger.Warn("Failed to invalidate unread badge", zap.Int64("user_id", userID), zap.Error(err))
	}
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID int64) error {
	if err := s.notifications.MarkRead(ctx, userID, notificationID); err != nil {
		return err
	}
	s.InvalidateBadge(ctx, userID)
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID int64) error {
	if err := s.notifications.MarkAllRead(ctx, userID); err != nil {
		return err
	}
	s.InvalidateBadge(ctx, userID)
	return nil
}
