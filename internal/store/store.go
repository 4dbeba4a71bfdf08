// Package store defines the persistence boundary of the realtime core.
// The coordinator only ever sees these interfaces; SQLite backs them in
// production and the memory implementation backs tests.
package store

import (
	"context"
	"errors"

	"github.com/codepair/collab/internal/domain"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrEmailTaken     = errors.New("email already registered")
	ErrRoomNotFound   = errors.New("room not found")
	ErrCodeTaken      = errors.New("room code already in use")
	ErrNotParticipant = errors.New("not a participant")
)

type Users interface {
	Create(ctx context.Context, u *domain.User, passwordHash string) error
	GetByID(ctx context.Context, id domain.UserID) (*domain.User, error)
	// GetByEmail also returns the stored password hash for login checks.
	GetByEmail(ctx context.Context, email string) (*domain.User, string, error)
}

type Rooms interface {
	Create(ctx context.Context, room *domain.Room) error
	GetByCode(ctx context.Context, code domain.RoomCode) (*domain.Room, error)
	Participants(ctx context.Context, code domain.RoomCode) ([]domain.Participant, error)
	// ParticipantRole reports the role of userID in the room, or
	// ErrNotParticipant / ErrRoomNotFound.
	ParticipantRole(ctx context.Context, code domain.RoomCode, userID domain.UserID) (domain.Role, error)
	AddParticipant(ctx context.Context, code domain.RoomCode, userID domain.UserID, role domain.Role) error
	RemoveParticipant(ctx context.Context, code domain.RoomCode, userID domain.UserID) error
}
