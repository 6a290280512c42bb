package service

import (
	"errors"
	"fmt"
	"log"

	"github.com/andy2076/school-chat-system/internal/models"
	"github.com/andy2076/school-chat-system/internal/repository"
	"github.com/andy2076/school-chat-system/internal/validation"
	"gorm.io/gorm"
)

// RoomPolicy holds behavior left open by the product: whether creating
// an individual room between a pair that already shares one returns the
// existing room instead of creating a duplicate.
type RoomPolicy struct {
	DeduplicateIndividual bool
}

type MemberAction string

const (
	AddMembers    MemberAction = "add"
	RemoveMembers MemberAction = "remove"
)

type RoomService struct {
	roomRepo    repository.RoomRepositoryInterface
	messageRepo repository.MessageRepositoryInterface
	userRepo    repository.UserRepositoryInterface
	policy      RoomPolicy
}

func NewRoomService(
	roomRepo repository.RoomRepositoryInterface,
	messageRepo repository.MessageRepositoryInterface,
	userRepo repository.UserRepositoryInterface,
	policy RoomPolicy,
) *RoomService {
	return &RoomService{
		roomRepo:    roomRepo,
		messageRepo: messageRepo,
		userRepo:    userRepo,
		policy:      policy,
	}
}

// ListRoomsForUser returns the caller's active rooms, newest activity
// first, each with a last-message preview and the caller's unread count.
func (s *RoomService) ListRoomsForUser(userID uint) ([]models.RoomSummary, error) {
	rooms, err := s.roomRepo.ListForUser(userID)
	if err != nil {
		log.Printf("list rooms: %v", err)
		return nil, ErrUnavailable
	}

	roomIDs := make([]uint, 0, len(rooms))
	for i := range rooms {
		roomIDs = append(roomIDs, rooms[i].ID)
	}

	latest, err := s.messageRepo.LatestByRooms(roomIDs)
	if err != nil {
		log.Printf("list rooms: previews: %v", err)
		return nil, ErrUnavailable
	}
	unread, err := s.messageRepo.UnreadCounts(userID)
	if err != nil {
		log.Printf("list rooms: unread: %v", err)
		return nil, ErrUnavailable
	}

	summaries := make([]models.RoomSummary, 0, len(rooms))
	for i := range rooms {
		room := &rooms[i]
		summary := models.RoomSummary{
			ID:             room.ID,
			Name:           room.Name,
			Type:           room.Type,
			LastActivityAt: room.LastActivityAt,
			UnreadCount:    unread[room.ID],
		}
		if m, ok := latest[room.ID]; ok {
			resp := m.ToResponse()
			summary.LastMessage = &resp
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// GetRoom returns room detail for a member, or for an admin regardless
// of membership.
func (s *RoomService) GetRoom(roomID, userID uint, role models.Role) (*models.RoomDetail, error) {
	room, err := s.roomRepo.FindByID(roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		log.Printf("get room %d: %v", roomID, err)
		return nil, ErrUnavailable
	}
	if role != models.RoleAdmin {
		member, err := s.roomRepo.IsMember(roomID, userID)
		if err != nil {
			log.Printf("get room %d: membership: %v", roomID, err)
			return nil, ErrUnavailable
		}
		if !member {
			return nil, ErrForbidden
		}
	}
	detail := room.ToDetail()
	return &detail, nil
}

// CreateRoom creates a room with the given members plus the creator,
// and announces it with a system message. Requires teacher or above.
// Individual rooms take exactly one member besides the creator.
func (s *RoomService) CreateRoom(name string, roomType models.RoomType, creator *SessionClaims, memberIDs []uint) (*models.Room, error) {
	if creator == nil || !creator.Role.AtLeast(models.RoleTeacher) {
		return nil, ErrForbidden
	}
	if !validation.ValidateRoomName(name) {
		return nil, ErrValidation
	}
	if roomType != models.IndividualRoom && roomType != models.GroupRoom {
		return nil, ErrValidation
	}

	members := uniqueMembers(creator.UserID, memberIDs)
	if roomType == models.IndividualRoom {
		// Exactly the creator plus one other member.
		if len(members) != 2 {
			return nil, ErrInvalidMembership
		}
		if s.policy.DeduplicateIndividual {
			if existing, err := s.roomRepo.FindIndividualByPair(members[0], members[1]); err == nil {
				return existing, nil
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				log.Printf("create room: dedup lookup: %v", err)
				return nil, ErrUnavailable
			}
		}
	} else if len(members) < 1 {
		return nil, ErrInvalidMembership
	}

	creatorName := s.displayName(creator.UserID)
	room := &models.Room{
		Name:      name,
		Type:      roomType,
		CreatedBy: creator.UserID,
	}
	announcement := &models.Message{
		SenderID: creator.UserID,
		Content:  fmt.Sprintf("%s created the room %q", creatorName, name),
		Type:     models.SystemMessage,
	}
	if err := s.roomRepo.Create(room, members, announcement); err != nil {
		log.Printf("create room: %v", err)
		return nil, ErrUnavailable
	}

	created, err := s.roomRepo.FindByID(room.ID)
	if err != nil {
		log.Printf("create room: reload: %v", err)
		return nil, ErrUnavailable
	}
	return created, nil
}

// UpdateMembers adds or removes members. Requires teacher or above.
// Removing the last remaining member is rejected; every change is
// announced with a system message.
func (s *RoomService) UpdateMembers(roomID uint, action MemberAction, memberIDs []uint, operator *SessionClaims) error {
	if operator == nil || !operator.Role.AtLeast(models.RoleTeacher) {
		return ErrForbidden
	}
	if len(memberIDs) == 0 {
		return ErrValidation
	}

	room, err := s.roomRepo.FindByID(roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		log.Printf("update members: room %d: %v", roomID, err)
		return ErrUnavailable
	}
	// Individual rooms keep their two members for life.
	if room.Type == models.IndividualRoom {
		return ErrInvalidMembership
	}

	switch action {
	case AddMembers:
		toAdd := make([]uint, 0, len(memberIDs))
		for _, userID := range memberIDs {
			member, err := s.roomRepo.IsMember(roomID, userID)
			if err != nil {
				log.Printf("update members: membership: %v", err)
				return ErrUnavailable
			}
			if !member {
				toAdd = append(toAdd, userID)
			}
		}
		if len(toAdd) == 0 {
			return nil
		}
		if err := s.roomRepo.AddMembers(roomID, toAdd); err != nil {
			log.Printf("update members: add: %v", err)
			return ErrUnavailable
		}
		for _, userID := range toAdd {
			s.announceMembershipChange(roomID, operator.UserID, userID, "joined")
		}
	case RemoveMembers:
		toRemove := make([]uint, 0, len(memberIDs))
		for _, userID := range memberIDs {
			member, err := s.roomRepo.IsMember(roomID, userID)
			if err != nil {
				log.Printf("update members: membership: %v", err)
				return ErrUnavailable
			}
			if member {
				toRemove = append(toRemove, userID)
			}
		}
		if len(toRemove) == 0 {
			return nil
		}
		count, err := s.roomRepo.MemberCount(roomID)
		if err != nil {
			log.Printf("update members: count: %v", err)
			return ErrUnavailable
		}
		if count-int64(len(toRemove)) < 1 {
			return ErrInvalidMembership
		}
		for _, userID := range toRemove {
			if err := s.roomRepo.RemoveMember(roomID, userID); err != nil {
				log.Printf("update members: remove %d: %v", userID, err)
				return ErrUnavailable
			}
			s.announceMembershipChange(roomID, operator.UserID, userID, "left")
		}
	default:
		return ErrValidation
	}
	return nil
}

// DeleteRoom soft-deletes a room and its messages. Admin only.
func (s *RoomService) DeleteRoom(roomID uint, operator *SessionClaims) error {
	if operator == nil || operator.Role != models.RoleAdmin {
		return ErrForbidden
	}
	if err := s.roomRepo.SoftDelete(roomID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		log.Printf("delete room %d: %v", roomID, err)
		return ErrUnavailable
	}
	return nil
}

// IsMember reports active membership; used by the message and realtime
// layers for access checks.
func (s *RoomService) IsMember(roomID, userID uint) (bool, error) {
	member, err := s.roomRepo.IsMember(roomID, userID)
	if err != nil {
		log.Printf("membership check room %d user %d: %v", roomID, userID, err)
		return false, ErrUnavailable
	}
	return member, nil
}

// MemberIDs returns the user ids of a room's current members.
func (s *RoomService) MemberIDs(roomID uint) ([]uint, error) {
	room, err := s.roomRepo.FindByID(roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, ErrUnavailable
	}
	ids := make([]uint, 0, len(room.Members))
	for i := range room.Members {
		ids = append(ids, room.Members[i].UserID)
	}
	return ids, nil
}

func (s *RoomService) announceMembershipChange(roomID, operatorID, subjectID uint, verb string) {
	msg := &models.Message{
		RoomID:   roomID,
		SenderID: operatorID,
		Content:  fmt.Sprintf("%s %s the room", s.displayName(subjectID), verb),
		Type:     models.SystemMessage,
	}
	// Announcements are best-effort; the membership change itself has
	// already been committed.
	if err := s.messageRepo.Append(msg); err != nil {
		log.Printf("announce membership change room %d: %v", roomID, err)
	}
}

func (s *RoomService) displayName(userID uint) string {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return fmt.Sprintf("user %d", userID)
	}
	return user.DisplayName
}

func uniqueMembers(creatorID uint, memberIDs []uint) []uint {
	seen := map[uint]struct{}{creatorID: {}}
	members := []uint{creatorID}
	for _, id := range memberIDs {
		if _, ok := seen[id]; ok || id == 0 {
			continue
		}
		seen[id] = struct{}{}
		members = append(members, id)
	}
	return members
}
