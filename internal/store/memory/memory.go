// Package memory is an in-memory store used by tests and local runs
// without a database file.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/codepair/collab/internal/domain"
	"github.com/codepair/collab/internal/store"
)

type Users struct {
	mu     sync.RWMutex
	users  map[domain.UserID]*domain.User
	emails map[string]domain.UserID
	hashes map[domain.UserID]string
}

func NewUsers() *Users {
	return &Users{
		users:  make(map[domain.UserID]*domain.User),
		emails: make(map[string]domain.UserID),
		hashes: make(map[domain.UserID]string),
	}
}

var _ store.Users = (*Users)(nil)

func (s *Users) Create(_ context.Context, u *domain.User, passwordHash string) error {
	email := strings.ToLower(u.Email)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.emails[email]; ok {
		return store.ErrEmailTaken
	}
	cp := *u
	s.users[u.ID] = &cp
	s.emails[email] = u.ID
	s.hashes[u.ID] = passwordHash
	return nil
}

func (s *Users) GetByID(_ context.Context, id domain.UserID) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Users) GetByEmail(_ context.Context, email string) (*domain.User, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[strings.ToLower(email)]
	if !ok {
		return nil, "", store.ErrUserNotFound
	}
	cp := *s.users[id]
	return &cp, s.hashes[id], nil
}

type roomRec struct {
	room  domain.Room
	parts map[domain.UserID]domain.Role
}

// Rooms keeps room records in memory. It reads user profiles from the
// Users store when composing participant lists.
type Rooms struct {
	users  *Users
	mu     sync.RWMutex
	rooms  map[domain.RoomCode]*roomRec
	nextID int64
}

func NewRooms(users *Users) *Rooms {
	return &Rooms{
		users: users,
		rooms: make(map[domain.RoomCode]*roomRec),
	}
}

var _ store.Rooms = (*Rooms)(nil)

func (s *Rooms) Create(_ context.Context, room *domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room.Code]; ok {
		return store.ErrCodeTaken
	}
	s.nextID++
	room.ID = s.nextID
	s.rooms[room.Code] = &roomRec{
		room:  *room,
		parts: make(map[domain.UserID]domain.Role),
	}
	return nil
}

func (s *Rooms) GetByCode(_ context.Context, code domain.RoomCode) (*domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.rooms[code]
	if !ok {
		return nil, store.ErrRoomNotFound
	}
	cp := rec.room
	return &cp, nil
}

func (s *Rooms) Participants(ctx context.Context, code domain.RoomCode) ([]domain.Participant, error) {
	s.mu.RLock()
	rec, ok := s.rooms[code]
	if !ok {
		s.mu.RUnlock()
		return nil, store.ErrRoomNotFound
	}
	type pair struct {
		id   domain.UserID
		role domain.Role
	}
	pairs := make([]pair, 0, len(rec.parts))
	for uid, role := range rec.parts {
		pairs = append(pairs, pair{uid, role})
	}
	s.mu.RUnlock()

	out := make([]domain.Participant, 0, len(pairs))
	for _, p := range pairs {
		u, err := s.users.GetByID(ctx, p.id)
		if err != nil {
			continue
		}
		out = append(out, domain.Participant{User: u, Role: p.role})
	}
	return out, nil
}

func (s *Rooms) ParticipantRole(_ context.Context, code domain.RoomCode, userID domain.UserID) (domain.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.rooms[code]
	if !ok {
		return "", store.ErrRoomNotFound
	}
	role, ok := rec.parts[userID]
	if !ok {
		return "", store.ErrNotParticipant
	}
	return role, nil
}

func (s *Rooms) AddParticipant(_ context.Context, code domain.RoomCode, userID domain.UserID, role domain.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.rooms[code]
	if !ok {
		return store.ErrRoomNotFound
	}
	rec.parts[userID] = role
	return nil
}

func (s *Rooms) RemoveParticipant(_ context.Context, code domain.RoomCode, userID domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.rooms[code]
	if !ok {
		return store.ErrRoomNotFound
	}
	delete(rec.parts, userID)
	return nil
}
