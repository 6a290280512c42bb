package repository

import (
	"time"

	"github.com/andy2076/school-chat-system/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Append inserts the message with the next per-room sequence number and
// bumps the room's last activity. The room row is locked for the
// duration of the transaction so concurrent appends to the same room
// serialize while appends to different rooms proceed independently.
func (r *MessageRepository) Append(message *models.Message) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var room models.Room
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&room, message.RoomID).Error; err != nil {
			return err
		}

		var maxSeq uint64
		if err := tx.Model(&models.Message{}).Unscoped().
			Where("room_id = ?", message.RoomID).
			Select("COALESCE(MAX(seq), 0)").
			Scan(&maxSeq).Error; err != nil {
			return err
		}
		message.Seq = maxSeq + 1

		if err := tx.Create(message).Error; err != nil {
			return err
		}

		// last_activity_at is monotonically non-decreasing.
		return tx.Model(&models.Room{}).
			Where("id = ? AND last_activity_at < ?", message.RoomID, message.CreatedAt).
			Update("last_activity_at", message.CreatedAt).Error
	})
}

func (r *MessageRepository) FindByID(id uint) (*models.Message, error) {
	var message models.Message
	err := r.db.Preload("Sender").First(&message, id).Error
	return &message, err
}

func (r *MessageRepository) ListByRoom(roomID uint, offset, limit int) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.Preload("Sender").
		Where("room_id = ?", roomID).
		Order("created_at DESC, seq DESC").
		Offset(offset).
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

// LatestByRooms returns the newest message per room, for list previews.
func (r *MessageRepository) LatestByRooms(roomIDs []uint) (map[uint]*models.Message, error) {
	latest := make(map[uint]*models.Message, len(roomIDs))
	if len(roomIDs) == 0 {
		return latest, nil
	}
	var messages []models.Message
	err := r.db.Preload("Sender").
		Where(`id IN (
			SELECT DISTINCT ON (room_id) id FROM messages
			WHERE room_id IN ? AND deleted_at IS NULL
			ORDER BY room_id, created_at DESC, seq DESC
		)`, roomIDs).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	for i := range messages {
		latest[messages[i].RoomID] = &messages[i]
	}
	return latest, nil
}

// MarkRead upserts the (message, user) receipt. Re-marking refreshes
// read_at; a duplicate row is never created.
func (r *MessageRepository) MarkRead(messageID, userID uint, readAt time.Time) error {
	return r.db.Exec(`
		INSERT INTO read_receipts (message_id, user_id, read_at)
		VALUES (?, ?, ?)
		ON CONFLICT (message_id, user_id) DO UPDATE SET read_at = EXCLUDED.read_at
	`, messageID, userID, readAt).Error
}

func (r *MessageRepository) UnreadCount(userID, roomID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Message{}).
		Where("room_id = ? AND sender_id != ?", roomID, userID).
		Where(`NOT EXISTS (
			SELECT 1 FROM read_receipts rr
			WHERE rr.message_id = messages.id AND rr.user_id = ?
		)`, userID).
		Count(&count).Error
	return count, err
}

// UnreadCounts derives the per-room unread map for every room the user
// belongs to, including rooms where everything is read (explicit zero).
// Always computed from the log and receipt set; there is no stored
// counter to drift.
func (r *MessageRepository) UnreadCounts(userID uint) (map[uint]int64, error) {
	type row struct {
		RoomID uint
		Count  int64
	}
	var rows []row
	err := r.db.Raw(`
		SELECT rm.room_id AS room_id, COUNT(m.id) AS count
		FROM room_members rm
		JOIN rooms r ON r.id = rm.room_id AND r.deleted_at IS NULL
		LEFT JOIN messages m ON m.room_id = rm.room_id
		  AND m.deleted_at IS NULL
		  AND m.sender_id != ?
		  AND NOT EXISTS (
			SELECT 1 FROM read_receipts rr
			WHERE rr.message_id = m.id AND rr.user_id = ?
		  )
		WHERE rm.user_id = ?
		GROUP BY rm.room_id
	`, userID, userID, userID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[uint]int64, len(rows))
	for _, r := range rows {
		counts[r.RoomID] = r.Count
	}
	return counts, nil
}
