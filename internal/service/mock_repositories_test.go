package service

import (
	"sort"
	"sync"
	"time"

	"github.com/andy2076/school-chat-system/internal/models"
	"gorm.io/gorm"
)

// In-memory repository fakes shared by the service tests.

type MockUserRepository struct {
	mu     sync.Mutex
	users  map[uint]*models.User
	nextID uint
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{users: make(map[uint]*models.User), nextID: 1}
}

func (m *MockUserRepository) Create(user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.ID == 0 {
		user.ID = m.nextID
		m.nextID++
	} else if user.ID >= m.nextID {
		m.nextID = user.ID + 1
	}
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *MockUserRepository) FindByID(id uint) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *user
	return &copied, nil
}

func (m *MockUserRepository) FindByLineUserID(lineUserID string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.LineUserID == lineUserID {
			copied := *user
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockUserRepository) FindByEmail(email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Email != nil && *user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockUserRepository) Update(user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

type MockEnrollmentCodeRepository struct {
	mu     sync.Mutex
	codes  map[uint]*models.EnrollmentCode
	users  *MockUserRepository
	nextID uint
}

func NewMockEnrollmentCodeRepository(users *MockUserRepository) *MockEnrollmentCodeRepository {
	return &MockEnrollmentCodeRepository{
		codes:  make(map[uint]*models.EnrollmentCode),
		users:  users,
		nextID: 1,
	}
}

func (m *MockEnrollmentCodeRepository) Create(code *models.EnrollmentCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if code.ID == 0 {
		code.ID = m.nextID
		m.nextID++
	}
	copied := *code
	m.codes[code.ID] = &copied
	return nil
}

func (m *MockEnrollmentCodeRepository) FindByCode(code string) (*models.EnrollmentCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ec := range m.codes {
		if ec.Code == code {
			copied := *ec
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// Consume mirrors the guarded update: only the first caller for a given
// code id wins, everyone else gets (false, nil).
func (m *MockEnrollmentCodeRepository) Consume(codeID uint, usedAt time.Time, user *models.User) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ec, ok := m.codes[codeID]
	if !ok || ec.UsedAt != nil || !usedAt.Before(ec.ExpiresAt) {
		return false, nil
	}
	t := usedAt
	ec.UsedAt = &t
	if m.users != nil {
		if err := m.users.Create(user); err != nil {
			return false, err
		}
	}
	return true, nil
}

type memberKey struct {
	roomID uint
	userID uint
}

type MockRoomRepository struct {
	mu      sync.Mutex
	rooms   map[uint]*models.Room
	members map[memberKey]time.Time
	nextID  uint

	// messages receives announcement messages created inside Create.
	messages *MockMessageRepository
}

func NewMockRoomRepository(messages *MockMessageRepository) *MockRoomRepository {
	repo := &MockRoomRepository{
		rooms:    make(map[uint]*models.Room),
		members:  make(map[memberKey]time.Time),
		nextID:   1,
		messages: messages,
	}
	if messages != nil {
		messages.rooms = repo
	}
	return repo
}

func (m *MockRoomRepository) Create(room *models.Room, memberIDs []uint, announcement *models.Message) error {
	m.mu.Lock()
	if room.ID == 0 {
		room.ID = m.nextID
		m.nextID++
	}
	room.CreatedAt = time.Now()
	room.LastActivityAt = room.CreatedAt
	copied := *room
	m.rooms[room.ID] = &copied
	for _, userID := range memberIDs {
		m.members[memberKey{roomID: room.ID, userID: userID}] = time.Now()
	}
	m.mu.Unlock()

	if announcement != nil && m.messages != nil {
		announcement.RoomID = room.ID
		return m.messages.Append(announcement)
	}
	return nil
}

func (m *MockRoomRepository) FindByID(id uint) (*models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *room
	copied.Members = nil
	for key, joined := range m.members {
		if key.roomID == id {
			copied.Members = append(copied.Members, models.RoomMember{
				RoomID:   id,
				UserID:   key.userID,
				JoinedAt: joined,
			})
		}
	}
	sort.Slice(copied.Members, func(i, j int) bool {
		return copied.Members[i].UserID < copied.Members[j].UserID
	})
	return &copied, nil
}

func (m *MockRoomRepository) FindIndividualByPair(userID1, userID2 uint) (*models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, room := range m.rooms {
		if room.Type != models.IndividualRoom {
			continue
		}
		_, has1 := m.members[memberKey{roomID: id, userID: userID1}]
		_, has2 := m.members[memberKey{roomID: id, userID: userID2}]
		if has1 && has2 {
			copied := *room
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockRoomRepository) ListForUser(userID uint) ([]models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rooms := make([]models.Room, 0)
	for id, room := range m.rooms {
		if _, ok := m.members[memberKey{roomID: id, userID: userID}]; ok {
			rooms = append(rooms, *room)
		}
	}
	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].LastActivityAt.After(rooms[j].LastActivityAt)
	})
	return rooms, nil
}

func (m *MockRoomRepository) IsMember(roomID, userID uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.members[memberKey{roomID: roomID, userID: userID}]
	return ok, nil
}

func (m *MockRoomRepository) MemberCount(roomID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for key := range m.members {
		if key.roomID == roomID {
			count++
		}
	}
	return count, nil
}

func (m *MockRoomRepository) AddMembers(roomID uint, userIDs []uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, userID := range userIDs {
		m.members[memberKey{roomID: roomID, userID: userID}] = time.Now()
	}
	return nil
}

func (m *MockRoomRepository) RemoveMember(roomID, userID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.members, memberKey{roomID: roomID, userID: userID})
	return nil
}

func (m *MockRoomRepository) SoftDelete(roomID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[roomID]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.rooms, roomID)
	return nil
}

type receiptKey struct {
	messageID uint
	userID    uint
}

type MockMessageRepository struct {
	mu       sync.Mutex
	byID     map[uint]*models.Message
	byRoom   map[uint][]uint
	receipts map[receiptKey]time.Time
	seqs     map[uint]uint64
	nextID   uint

	rooms *MockRoomRepository
}

func NewMockMessageRepository() *MockMessageRepository {
	return &MockMessageRepository{
		byID:     make(map[uint]*models.Message),
		byRoom:   make(map[uint][]uint),
		receipts: make(map[receiptKey]time.Time),
		seqs:     make(map[uint]uint64),
		nextID:   1,
	}
}

func (m *MockMessageRepository) Append(message *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	message.ID = m.nextID
	m.nextID++
	m.seqs[message.RoomID]++
	message.Seq = m.seqs[message.RoomID]
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	copied := *message
	m.byID[message.ID] = &copied
	m.byRoom[message.RoomID] = append(m.byRoom[message.RoomID], message.ID)
	return nil
}

func (m *MockMessageRepository) FindByID(id uint) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	message, ok := m.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *message
	return &copied, nil
}

func (m *MockMessageRepository) ListByRoom(roomID uint, offset, limit int) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.byRoom[roomID]
	// Newest first.
	messages := make([]models.Message, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		messages = append(messages, *m.byID[ids[i]])
	}
	if offset >= len(messages) {
		return []models.Message{}, nil
	}
	messages = messages[offset:]
	if limit > 0 && len(messages) > limit {
		messages = messages[:limit]
	}
	return messages, nil
}

func (m *MockMessageRepository) LatestByRooms(roomIDs []uint) (map[uint]*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	latest := make(map[uint]*models.Message)
	for _, roomID := range roomIDs {
		ids := m.byRoom[roomID]
		if len(ids) == 0 {
			continue
		}
		copied := *m.byID[ids[len(ids)-1]]
		latest[roomID] = &copied
	}
	return latest, nil
}

func (m *MockMessageRepository) MarkRead(messageID, userID uint, readAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receipts[receiptKey{messageID: messageID, userID: userID}] = readAt
	return nil
}

func (m *MockMessageRepository) UnreadCount(userID, roomID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unreadLocked(userID, roomID), nil
}

// UnreadCounts covers every room the user belongs to, with an explicit
// zero for fully-read rooms.
func (m *MockMessageRepository) UnreadCounts(userID uint) (map[uint]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[uint]int64)
	if m.rooms != nil {
		rooms, _ := m.rooms.ListForUser(userID)
		for i := range rooms {
			counts[rooms[i].ID] = m.unreadLocked(userID, rooms[i].ID)
		}
		return counts, nil
	}
	for roomID := range m.byRoom {
		counts[roomID] = m.unreadLocked(userID, roomID)
	}
	return counts, nil
}

func (m *MockMessageRepository) unreadLocked(userID, roomID uint) int64 {
	var count int64
	for _, id := range m.byRoom[roomID] {
		message := m.byID[id]
		if message.SenderID == userID {
			continue
		}
		if _, read := m.receipts[receiptKey{messageID: id, userID: userID}]; !read {
			count++
		}
	}
	return count
}

func (m *MockMessageRepository) ReceiptAt(messageID, userID uint) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	readAt, ok := m.receipts[receiptKey{messageID: messageID, userID: userID}]
	return readAt, ok
}

type MockPushSubscriptionRepository struct {
	mu   sync.Mutex
	subs map[uint]*models.PushSubscription
}

func NewMockPushSubscriptionRepository() *MockPushSubscriptionRepository {
	return &MockPushSubscriptionRepository{subs: make(map[uint]*models.PushSubscription)}
}

func (m *MockPushSubscriptionRepository) Upsert(sub *models.PushSubscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *sub
	m.subs[sub.UserID] = &copied
	return nil
}

func (m *MockPushSubscriptionRepository) DeleteForUser(userID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subs, userID)
	return nil
}

func (m *MockPushSubscriptionRepository) FindByUser(userID uint) (*models.PushSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *sub
	return &copied, nil
}
