package repository

import (
	"time"

	"github.com/andy2076/school-chat-system/internal/models"
	"gorm.io/gorm"
)

type EnrollmentCodeRepository struct {
	db *gorm.DB
}

func NewEnrollmentCodeRepository(db *gorm.DB) *EnrollmentCodeRepository {
	return &EnrollmentCodeRepository{db: db}
}

func (r *EnrollmentCodeRepository) Create(code *models.EnrollmentCode) error {
	return r.db.Create(code).Error
}

func (r *EnrollmentCodeRepository) FindByCode(code string) (*models.EnrollmentCode, error) {
	var ec models.EnrollmentCode
	err := r.db.Preload("Student").Where("code = ?", code).First(&ec).Error
	return &ec, err
}

// Consume flips the code to used and creates the enrolling user in one
// transaction. The update is guarded on used_at IS NULL so that under
// concurrent attempts with the same code exactly one caller succeeds.
func (r *EnrollmentCodeRepository) Consume(codeID uint, usedAt time.Time, user *models.User) (bool, error) {
	consumed := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.EnrollmentCode{}).
			Where("id = ? AND used_at IS NULL AND expires_at > ?", codeID, usedAt).
			Update("used_at", usedAt)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Lost the race, or the code expired between read and write.
			return nil
		}
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		consumed = true
		return nil
	})
	return consumed, err
}
