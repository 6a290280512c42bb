package service

import (
	"errors"
	"log"

	"github.com/andy2076/school-chat-system/internal/models"
	"github.com/andy2076/school-chat-system/internal/repository"
	"gorm.io/gorm"
)

// NotificationService stores Web Push subscriptions. Delivery is
// performed by an external push service; this side only keeps the
// endpoint material current.
type NotificationService struct {
	subRepo repository.PushSubscriptionRepositoryInterface
}

func NewNotificationService(subRepo repository.PushSubscriptionRepositoryInterface) *NotificationService {
	return &NotificationService{subRepo: subRepo}
}

// Subscribe replaces the user's push subscription wholesale.
func (s *NotificationService) Subscribe(userID uint, endpoint, keys string) (*models.PushSubscription, error) {
	if endpoint == "" || keys == "" {
		return nil, ErrValidation
	}
	sub := &models.PushSubscription{
		UserID:   userID,
		Endpoint: endpoint,
		Keys:     keys,
	}
	if err := s.subRepo.Upsert(sub); err != nil {
		log.Printf("subscribe: user %d: %v", userID, err)
		return nil, ErrUnavailable
	}
	return sub, nil
}

// GetSubscription returns the user's current push subscription.
func (s *NotificationService) GetSubscription(userID uint) (*models.PushSubscription, error) {
	sub, err := s.subRepo.FindByUser(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		log.Printf("get subscription: user %d: %v", userID, err)
		return nil, ErrUnavailable
	}
	return sub, nil
}

// Unsubscribe removes the user's subscription, if any.
func (s *NotificationService) Unsubscribe(userID uint) error {
	if err := s.subRepo.DeleteForUser(userID); err != nil {
		log.Printf("unsubscribe: user %d: %v", userID, err)
		return ErrUnavailable
	}
	return nil
}
