package domain

// Role is a user's standing within one room.
type Role string

const (
	RoleOrganiser   Role = "organiser"
	RoleParticipant Role = "participant"
)

// Participant represents a (user, room) pairing. No transport or
// lifecycle state here.
type Participant struct {
	User *User
	Role Role
}
