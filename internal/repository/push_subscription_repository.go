package repository

import (
	"github.com/andy2076/school-chat-system/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PushSubscriptionRepository struct {
	db *gorm.DB
}

func NewPushSubscriptionRepository(db *gorm.DB) *PushSubscriptionRepository {
	return &PushSubscriptionRepository{db: db}
}

// Upsert replaces the user's subscription wholesale on conflict.
func (r *PushSubscriptionRepository) Upsert(sub *models.PushSubscription) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"endpoint", "keys", "updated_at"}),
	}).Create(sub).Error
}

func (r *PushSubscriptionRepository) DeleteForUser(userID uint) error {
	return r.db.Where("user_id = ?", userID).Delete(&models.PushSubscription{}).Error
}

func (r *PushSubscriptionRepository) FindByUser(userID uint) (*models.PushSubscription, error) {
	var sub models.PushSubscription
	err := r.db.Where("user_id = ?", userID).First(&sub).Error
	return &sub, err
}
