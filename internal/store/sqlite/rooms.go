package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/codepair/collab/internal/domain"
	"github.com/codepair/collab/internal/store"
)

// Rooms implements store.Rooms on SQLite.
type Rooms struct {
	db *DB
}

func NewRooms(db *DB) *Rooms { return &Rooms{db: db} }

var _ store.Rooms = (*Rooms)(nil)

func (r *Rooms) Create(ctx context.Context, room *domain.Room) error {
	res, err := r.db.db.ExecContext(ctx,
		`INSERT INTO rooms (code, organiser_id, created_at) VALUES (?, ?, ?)`,
		string(room.Code), string(room.OrganiserID),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return store.ErrCodeTaken
		}
		return fmt.Errorf("insert room: %w", err)
	}
	room.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("room id: %w", err)
	}
	return nil
}

func (r *Rooms) GetByCode(ctx context.Context, code domain.RoomCode) (*domain.Room, error) {
	var room domain.Room
	err := r.db.db.QueryRowContext(ctx,
		`SELECT id, code, organiser_id FROM rooms WHERE code = ?`, string(code),
	).Scan(&room.ID, &room.Code, &room.OrganiserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select room: %w", err)
	}
	return &room, nil
}

func (r *Rooms) Participants(ctx context.Context, code domain.RoomCode) ([]domain.Participant, error) {
	if _, err := r.GetByCode(ctx, code); err != nil {
		return nil, err
	}
	rows, err := r.db.db.QueryContext(ctx, `
		SELECT u.id, u.email, u.name, p.role
		FROM room_participants p
		JOIN rooms r ON r.id = p.room_id
		JOIN users u ON u.id = p.user_id
		WHERE r.code = ?
		ORDER BY p.rowid`, string(code))
	if err != nil {
		return nil, fmt.Errorf("select participants: %w", err)
	}
	defer rows.Close()

	var out []domain.Participant
	for rows.Next() {
		var u domain.User
		var role domain.Role
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &role); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		out = append(out, domain.Participant{User: &u, Role: role})
	}
	return out, rows.Err()
}

func (r *Rooms) ParticipantRole(ctx context.Context, code domain.RoomCode, userID domain.UserID) (domain.Role, error) {
	if _, err := r.GetByCode(ctx, code); err != nil {
		return "", err
	}
	var role domain.Role
	err := r.db.db.QueryRowContext(ctx, `
		SELECT p.role FROM room_participants p
		JOIN rooms r ON r.id = p.room_id
		WHERE r.code = ? AND p.user_id = ?`,
		string(code), string(userID),
	).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.ErrNotParticipant
	}
	if err != nil {
		return "", fmt.Errorf("select role: %w", err)
	}
	return role, nil
}

func (r *Rooms) AddParticipant(ctx context.Context, code domain.RoomCode, userID domain.UserID, role domain.Role) error {
	room, err := r.GetByCode(ctx, code)
	if err != nil {
		return err
	}
	_, err = r.db.db.ExecContext(ctx, `
		INSERT INTO room_participants (room_id, user_id, role) VALUES (?, ?, ?)
		ON CONFLICT (room_id, user_id) DO NOTHING`,
		room.ID, string(userID), string(role))
	if err != nil {
		return fmt.Errorf("insert participant: %w", err)
	}
	return nil
}

func (r *Rooms) RemoveParticipant(ctx context.Context, code domain.RoomCode, userID domain.UserID) error {
	room, err := r.GetByCode(ctx, code)
	if err != nil {
		return err
	}
	_, err = r.db.db.ExecContext(ctx,
		`DELETE FROM room_participants WHERE room_id = ? AND user_id = ?`,
		room.ID, string(userID))
	if err != nil {
		return fmt.Errorf("delete participant: %w", err)
	}
	return nil
}
