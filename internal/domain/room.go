package domain

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// RoomCode is the short shareable identifier of a collaboration session.
// Codes are case-insensitive on the wire and stored uppercase.
type RoomCode string

const roomCodeLen = 6

const roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

type Room struct {
	ID          int64    `json:"id"`
	Code        RoomCode `json:"code"`
	OrganiserID UserID   `json:"organiserId"`
}

func NormalizeCode(raw string) RoomCode {
	return RoomCode(strings.ToUpper(strings.TrimSpace(raw)))
}

// GenerateRoomCode returns a random 6-character code. Uniqueness is the
// caller's problem (retry on collision against the store).
func GenerateRoomCode() RoomCode {
	b := make([]byte, roomCodeLen)
	for i := range b {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(roomCodeAlphabet))))
		b[i] = roomCodeAlphabet[n.Int64()]
	}
	return RoomCode(b)
}
