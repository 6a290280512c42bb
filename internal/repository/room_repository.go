package repository

import (
	"time"

	"github.com/andy2076/school-chat-system/internal/models"
	"gorm.io/gorm"
)

type RoomRepository struct {
	db *gorm.DB
}

func NewRoomRepository(db *gorm.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// Create persists the room, its memberships and the announcement system
// message in a single transaction so a room never exists without members.
func (r *RoomRepository) Create(room *models.Room, memberIDs []uint, announcement *models.Message) error {
	now := time.Now()
	if room.LastActivityAt.IsZero() {
		room.LastActivityAt = now
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(room).Error; err != nil {
			return err
		}
		members := make([]models.RoomMember, 0, len(memberIDs))
		for _, userID := range memberIDs {
			members = append(members, models.RoomMember{
				RoomID:   room.ID,
				UserID:   userID,
				JoinedAt: now,
			})
		}
		if err := tx.Create(&members).Error; err != nil {
			return err
		}
		if announcement != nil {
			announcement.RoomID = room.ID
			announcement.Seq = 1
			if err := tx.Create(announcement).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *RoomRepository) FindByID(id uint) (*models.Room, error) {
	var room models.Room
	err := r.db.Preload("Members.User").First(&room, id).Error
	return &room, err
}

// FindIndividualByPair returns the existing 2-party room between the two
// users, if any. Used by the optional dedup policy.
func (r *RoomRepository) FindIndividualByPair(userID1, userID2 uint) (*models.Room, error) {
	var room models.Room
	err := r.db.Preload("Members.User").
		Where("type = ?", models.IndividualRoom).
		Where(`id IN (
			SELECT a.room_id FROM room_members a
			JOIN room_members b ON a.room_id = b.room_id
			WHERE a.user_id = ? AND b.user_id = ?
		)`, userID1, userID2).
		First(&room).Error
	return &room, err
}

func (r *RoomRepository) ListForUser(userID uint) ([]models.Room, error) {
	var rooms []models.Room
	err := r.db.
		Joins("JOIN room_members rm ON rm.room_id = rooms.id").
		Where("rm.user_id = ?", userID).
		Order("rooms.last_activity_at DESC").
		Find(&rooms).Error
	return rooms, err
}

func (r *RoomRepository) IsMember(roomID, userID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.RoomMember{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *RoomRepository) MemberCount(roomID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.RoomMember{}).
		Where("room_id = ?", roomID).
		Count(&count).Error
	return count, err
}

func (r *RoomRepository) AddMembers(roomID uint, userIDs []uint) error {
	now := time.Now()
	members := make([]models.RoomMember, 0, len(userIDs))
	for _, userID := range userIDs {
		members = append(members, models.RoomMember{
			RoomID:   roomID,
			UserID:   userID,
			JoinedAt: now,
		})
	}
	return r.db.Create(&members).Error
}

func (r *RoomRepository) RemoveMember(roomID, userID uint) error {
	return r.db.Where("room_id = ? AND user_id = ?", roomID, userID).
		Delete(&models.RoomMember{}).Error
}

// SoftDelete marks the room deleted and cascades the flag to its
// messages. Nothing is purged; history is retained.
func (r *RoomRepository) SoftDelete(roomID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Room{}, roomID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("room_id = ?", roomID).Delete(&models.Message{}).Error
	})
}
