package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codepair/collab/internal/domain"
	"github.com/codepair/collab/internal/store"
	"github.com/codepair/collab/internal/store/memory"
)

type fakeSender struct {
	mu     sync.Mutex
	frames [][]byte
}

func (f *fakeSender) TrySend(b []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]byte, len(b))
	copy(cp, b)
	f.frames = append(f.frames, cp)
	return nil
}

func (f *fakeSender) Close() {}

func (f *fakeSender) events(t *testing.T) []map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, 0, len(f.frames))
	for _, b := range f.frames {
		var m map[string]any
		require.NoError(t, json.Unmarshal(b, &m))
		out = append(out, m)
	}
	return out
}

func (f *fakeSender) count(t *testing.T, event string) int {
	n := 0
	for _, e := range f.events(t) {
		if e["event"] == event {
			n++
		}
	}
	return n
}

func (f *fakeSender) last(t *testing.T, event string) map[string]any {
	t.Helper()
	var found map[string]any
	for _, e := range f.events(t) {
		if e["event"] == event {
			found = e
		}
	}
	require.NotNil(t, found, "expected a %q event", event)
	return found
}

type fixture struct {
	hub   *Hub
	users *memory.Users
	rooms *memory.Rooms
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := memory.NewUsers()
	rooms := memory.NewRooms(users)
	return &fixture{hub: NewHub(rooms, nil), users: users, rooms: rooms}
}

func (fx *fixture) addUser(t *testing.T, id, name string) *domain.User {
	t.Helper()
	u := testUser(id, name)
	require.NoError(t, fx.users.Create(context.Background(), u, "hash"))
	return u
}

func (fx *fixture) addRoom(t *testing.T, code string, organiser *domain.User, participants ...*domain.User) domain.RoomCode {
	t.Helper()
	ctx := context.Background()
	rc := domain.NormalizeCode(code)
	require.NoError(t, fx.rooms.Create(ctx, &domain.Room{Code: rc, OrganiserID: organiser.ID}))
	require.NoError(t, fx.rooms.AddParticipant(ctx, rc, organiser.ID, domain.RoleOrganiser))
	for _, p := range participants {
		require.NoError(t, fx.rooms.AddParticipant(ctx, rc, p.ID, domain.RoleParticipant))
	}
	return rc
}

func (fx *fixture) connect(t *testing.T, id string, u *domain.User) (*Connection, *fakeSender) {
	t.Helper()
	s := &fakeSender{}
	c := NewConnection(id, u, s)
	require.NoError(t, fx.hub.Connect(c))
	return c, s
}

func TestJoinRoomNotFound(t *testing.T) {
	fx := newFixture(t)
	u := fx.addUser(t, "u1", "alice")
	c, s := fx.connect(t, "c1", u)

	fx.hub.HandleJoinRoom(context.Background(), c, "NOPE99")

	require.Equal(t, "Room not found", s.last(t, "error")["message"])
	_, inRoom := c.Room()
	require.False(t, inRoom)
}

func TestJoinNotAParticipant(t *testing.T) {
	fx := newFixture(t)
	alice := fx.addUser(t, "u1", "alice")
	mallory := fx.addUser(t, "u2", "mallory")
	code := fx.addRoom(t, "ABCDEF", alice)
	c, s := fx.connect(t, "c1", mallory)

	fx.hub.HandleJoinRoom(context.Background(), c, string(code))

	require.Equal(t, ErrNotAParticipant.Error(), s.last(t, "error")["message"])
	require.Empty(t, fx.hub.Rooms().Connections(code))
}

func TestJoinRoomHappyPath(t *testing.T) {
	fx := newFixture(t)
	alice := fx.addUser(t, "u1", "alice")
	code := fx.addRoom(t, "abcdef", alice) // lowercase input is normalized

	c, s := fx.connect(t, "c1", alice)
	fx.hub.HandleJoinRoom(context.Background(), c, "abcdef")

	joined := s.last(t, "roomJoined")
	require.Equal(t, string(domain.RoleOrganiser), joined["userRole"])
	require.Len(t, joined["participants"], 1)

	got, inRoom := c.Room()
	require.True(t, inRoom)
	require.Equal(t, code, got)
	require.Equal(t, domain.RoleOrganiser, c.Role())
}

func TestJoinIdempotent(t *testing.T) {
	fx := newFixture(t)
	alice := fx.addUser(t, "u1", "alice")
	code := fx.addRoom(t, "ABCDEF", alice)
	c, s := fx.connect(t, "c1", alice)

	ctx := context.Background()
	fx.hub.HandleJoinRoom(ctx, c, "ABCDEF")
	fx.hub.HandleJoinRoom(ctx, c, "ABCDEF")

	require.Equal(t, 2, s.count(t, "roomJoined"), "state is resent")
	require.Len(t, fx.hub.Rooms().Connections(code), 1, "no duplicate entry")
	require.Len(t, fx.hub.ParticipantsOf(ctx, code), 1)
	require.Zero(t, s.count(t, "error"))
}

func TestJoinWhileInDifferentRoom(t *testing.T) {
	fx := newFixture(t)
	alice := fx.addUser(t, "u1", "alice")
	fx.addRoom(t, "AAAAAA", alice)
	fx.addRoom(t, "BBBBBB", alice)
	c, s := fx.connect(t, "c1", alice)

	ctx := context.Background()
	fx.hub.HandleJoinRoom(ctx, c, "AAAAAA")
	fx.hub.HandleJoinRoom(ctx, c, "BBBBBB")

	require.Equal(t, ErrAlreadyInOtherRoom.Error(), s.last(t, "error")["message"])
	got, _ := c.Room()
	require.Equal(t, domain.RoomCode("AAAAAA"), got)
}

func TestJoinAnnouncementAndSnapshotReplay(t *testing.T) {
	fx := newFixture(t)
	alice := fx.addUser(t, "u1", "alice")
	bob := fx.addUser(t, "u2", "bob")
	code := fx.addRoom(t, "ABCDEF", alice, bob)

	ctx := context.Background()
	ca, sa := fx.connect(t, "c1", alice)
	fx.hub.HandleJoinRoom(ctx, ca, "ABCDEF")
	fx.hub.HandleCodeChange(ca, "ABCDEF", "print(1)", 42)

	cb, sb := fx.connect(t, "c2", bob)
	fx.hub.HandleJoinRoom(ctx, cb, "ABCDEF")

	// Existing member is told, joiner is not broadcast to itself.
	joinedEv := sa.last(t, "userJoined")
	require.Equal(t, "bob", joinedEv["user"].(map[string]any)["name"])
	require.Len(t, joinedEv["participants"], 2)
	require.Zero(t, sb.count(t, "userJoined"))

	// Joiner gets the current snapshot replayed.
	replay := sb.last(t, "codeSync")
	require.Equal(t, "print(1)", replay["code"])
	require.Equal(t, "ABCDEF", replay["roomCode"])

	require.Len(t, fx.hub.ParticipantsOf(ctx, code), 2)
}

func TestCodeChangeFanout(t *testing.T) {
	fx := newFixture(t)
	alice := fx.addUser(t, "u1", "alice")
	bob := fx.addUser(t, "u2", "bob")
	code := fx.addRoom(t, "ABCDEF", alice, bob)

	ctx := context.Background()
	ca, sa := fx.connect(t, "c1", alice)
	cb, sb := fx.connect(t, "c2", bob)
	fx.hub.HandleJoinRoom(ctx, ca, "ABCDEF")
	fx.hub.HandleJoinRoom(ctx, cb, "ABCDEF")

	fx.hub.HandleCodeChange(ca, "ABCDEF", "print(1)", 7)

	ev := sb.last(t, "codeChange")
	require.Equal(t, "print(1)", ev["code"])
	require.Equal(t, "u1", ev["userId"])
	require.Zero(t, sa.count(t, "codeChange"), "sender is excluded")

	snap, ok := fx.hub.Editor().Get(code)
	require.True(t, ok)
	require.Equal(t, "print(1)", snap.Code)

	// A payload for a different room is ignored.
	fx.hub.HandleCodeChange(ca, "ZZZZZZ", "nope", 8)
	snap, _ = fx.hub.Editor().Get(code)
	require.Equal(t, "print(1)", snap.Code)
}

func TestThemeChangeFanout(t *testing.T) {
	fx := newFixture(t)
	alice := fx.addUser(t, "u1", "alice")
	bob := fx.addUser(t, "u2", "bob")
	code := fx.addRoom(t, "ABCDEF", alice, bob)

	ctx := context.Background()
	ca, sa := fx.connect(t, "c1", alice)
	cb, sb := fx.connect(t, "c2", bob)
	fx.hub.HandleJoinRoom(ctx, ca, "ABCDEF")
	fx.hub.HandleJoinRoom(ctx, cb, "ABCDEF")

	fx.hub.HandleThemeChange(ca, "ABCDEF", "light")

	ev := sb.last(t, "themeChange")
	require.Equal(t, "light", ev["theme"])
	require.Equal(t, "u1", ev["userId"])
	require.Zero(t, sa.count(t, "themeChange"), "sender is excluded")

	snap, ok := fx.hub.Editor().Get(code)
	require.True(t, ok)
	require.Equal(t, "light", snap.Theme)
	require.Equal(t, defaultLanguage, snap.Language, "other fields keep defaults")

	// A payload for a different room is ignored.
	fx.hub.HandleThemeChange(ca, "ZZZZZZ", "hc-black")
	snap, _ = fx.hub.Editor().Get(code)
	require.Equal(t, "light", snap.Theme)
}

// flakyRooms fails room lookups on demand, everything else passes
// through to the memory store.
type flakyRooms struct {
	store.Rooms
	fail bool
}

func (f *flakyRooms) GetByCode(ctx context.Context, code domain.RoomCode) (*domain.Room, error) {
	if f.fail {
		return nil, errors.New("database is locked")
	}
	return f.Rooms.GetByCode(ctx, code)
}

func TestRejoinResyncFailureKeepsMembership(t *testing.T) {
	users := memory.NewUsers()
	rooms := memory.NewRooms(users)
	ctx := context.Background()
	alice := testUser("u1", "alice")
	require.NoError(t, users.Create(ctx, alice, "hash"))
	require.NoError(t, rooms.Create(ctx, &domain.Room{Code: "ABCDEF", OrganiserID: alice.ID}))
	require.NoError(t, rooms.AddParticipant(ctx, "ABCDEF", alice.ID, domain.RoleOrganiser))

	flaky := &flakyRooms{Rooms: rooms}
	hub := NewHub(flaky, nil)
	s := &fakeSender{}
	c := NewConnection("c1", alice, s)
	require.NoError(t, hub.Connect(c))

	hub.HandleJoinRoom(ctx, c, "ABCDEF")
	require.Equal(t, 1, s.count(t, "roomJoined"))

	// The store going away during a rejoin must not evict the member.
	flaky.fail = true
	hub.HandleJoinRoom(ctx, c, "ABCDEF")

	require.Equal(t, "Failed to resync room state", s.last(t, "error")["message"])
	got, inRoom := c.Room()
	require.True(t, inRoom, "membership survives the failed resync")
	require.Equal(t, domain.RoomCode("ABCDEF"), got)
	require.Len(t, hub.Rooms().Connections("ABCDEF"), 1)
}

func TestChatBroadcast(t *testing.T) {
	fx := newFixture(t)
	alice := fx.addUser(t, "u1", "alice")
	bob := fx.addUser(t, "u2", "bob")
	fx.addRoom(t, "ABCDEF", alice, bob)

	ctx := context.Background()
	ca, sa := fx.connect(t, "c1", alice)
	cb, sb := fx.connect(t, "c2", bob)
	fx.hub.HandleJoinRoom(ctx, ca, "ABCDEF")
	fx.hub.HandleJoinRoom(ctx, cb, "ABCDEF")

	fx.hub.HandleChat(ca, "hello")

	ev := sb.last(t, "chatMessage")
	require.Equal(t, "hello", ev["message"])
	require.Equal(t, "alice", ev["user"].(map[string]any)["name"])
	require.NotEmpty(t, ev["timestamp"])
	require.Zero(t, sa.count(t, "chatMessage"))
}

func TestSnapshotPurgedWhenRoomEmpties(t *testing.T) {
	fx := newFixture(t)
	alice := fx.addUser(t, "u1", "alice")
	code := fx.addRoom(t, "ABCDEF", alice)

	ctx := context.Background()
	c, _ := fx.connect(t, "c1", alice)
	fx.hub.HandleJoinRoom(ctx, c, "ABCDEF")
	fx.hub.HandleCodeChange(c, "ABCDEF", "x", 1)

	fx.hub.HandleLeaveRoom(ctx, c)

	_, ok := fx.hub.Editor().Get(code)
	require.False(t, ok, "snapshot purged on empty")
	_, inRoom := c.Room()
	require.False(t, inRoom)
}

func TestMultiTabDisconnect(t *testing.T) {
	fx := newFixture(t)
	alice := fx.addUser(t, "u1", "alice")
	bob := fx.addUser(t, "u2", "bob")
	code := fx.addRoom(t, "ABCDEF", alice, bob)

	ctx := context.Background()
	tab1, _ := fx.connect(t, "c1", alice)
	tab2, _ := fx.connect(t, "c2", alice)
	cb, sb := fx.connect(t, "c3", bob)
	fx.hub.HandleJoinRoom(ctx, tab1, "ABCDEF")
	fx.hub.HandleJoinRoom(ctx, tab2, "ABCDEF")
	fx.hub.HandleJoinRoom(ctx, cb, "ABCDEF")

	// Closing one of two tabs is silent: no userLeft, membership kept.
	fx.hub.Disconnect(ctx, tab1)
	require.Zero(t, sb.count(t, "userLeft"))
	_, err := fx.rooms.ParticipantRole(ctx, code, alice.ID)
	require.NoError(t, err, "store participant record survives")

	// Closing the last tab is the real departure.
	fx.hub.Disconnect(ctx, tab2)
	left := sb.last(t, "userLeft")
	require.Equal(t, "u1", left["user"].(map[string]any)["id"])
	require.Len(t, left["participants"], 1)
	_, err = fx.rooms.ParticipantRole(ctx, code, alice.ID)
	require.Error(t, err)
}

func TestVoiceRequiresRoomMembership(t *testing.T) {
	fx := newFixture(t)
	alice := fx.addUser(t, "u1", "alice")
	c, s := fx.connect(t, "c1", alice)

	fx.hub.HandleVoiceJoin(c)

	require.Equal(t, ErrNotInRoom.Error(), s.last(t, "error")["message"])
	require.Empty(t, fx.hub.Voice().Roster("ABCDEF"))
}

func TestVoiceRosterThenInitiate(t *testing.T) {
	fx := newFixture(t)
	alice := fx.addUser(t, "u1", "alice")
	bob := fx.addUser(t, "u2", "bob")
	fx.addRoom(t, "ABCDEF", alice, bob)

	ctx := context.Background()
	ca, sa := fx.connect(t, "c1", alice)
	cb, sb := fx.connect(t, "c2", bob)
	fx.hub.HandleJoinRoom(ctx, ca, "ABCDEF")
	fx.hub.HandleJoinRoom(ctx, cb, "ABCDEF")

	fx.hub.HandleVoiceJoin(ca)
	require.Empty(t, sa.last(t, "voice:roster")["peers"])

	fx.hub.HandleVoiceJoin(cb)
	roster := sb.last(t, "voice:roster")
	peers := roster["peers"].([]any)
	require.Len(t, peers, 1)
	require.Equal(t, "c1", peers[0].(map[string]any)["connId"])
	require.Equal(t, false, peers[0].(map[string]any)["muted"], "joiners start unmuted")
	require.Equal(t, "c2", roster["you"])

	// The existing member only learns about the newcomer.
	require.Equal(t, "c2", sa.last(t, "voice:peer-joined")["connId"])
}

func TestVoiceCascadeOnRoomLeave(t *testing.T) {
	fx := newFixture(t)
	alice := fx.addUser(t, "u1", "alice")
	bob := fx.addUser(t, "u2", "bob")
	code := fx.addRoom(t, "ABCDEF", alice, bob)

	ctx := context.Background()
	ca, _ := fx.connect(t, "c1", alice)
	cb, sb := fx.connect(t, "c2", bob)
	fx.hub.HandleJoinRoom(ctx, ca, "ABCDEF")
	fx.hub.HandleJoinRoom(ctx, cb, "ABCDEF")
	fx.hub.HandleVoiceJoin(ca)
	fx.hub.HandleVoiceJoin(cb)

	fx.hub.HandleLeaveRoom(ctx, ca)

	require.False(t, fx.hub.Voice().Contains(code, "c1"), "voice entry cascades with room leave")
	require.Equal(t, "c1", sb.last(t, "voice:peer-left")["connId"])
}

func TestVoiceMuteBroadcast(t *testing.T) {
	fx := newFixture(t)
	alice := fx.addUser(t, "u1", "alice")
	bob := fx.addUser(t, "u2", "bob")
	fx.addRoom(t, "ABCDEF", alice, bob)

	ctx := context.Background()
	ca, _ := fx.connect(t, "c1", alice)
	cb, sb := fx.connect(t, "c2", bob)
	fx.hub.HandleJoinRoom(ctx, ca, "ABCDEF")
	fx.hub.HandleJoinRoom(ctx, cb, "ABCDEF")
	fx.hub.HandleVoiceJoin(ca)

	fx.hub.HandleVoiceMute(ca, true)

	ev := sb.last(t, "voice:mute")
	require.Equal(t, "c1", ev["connId"])
	require.Equal(t, true, ev["muted"])
	roster := ev["roster"].([]any)
	require.Len(t, roster, 1)
	require.Equal(t, true, roster[0].(map[string]any)["muted"])
}

const offerSignal = `{"description":{"type":"offer","sdp":"v=0\r\n"}}`

func TestSignalRelayDelivery(t *testing.T) {
	fx := newFixture(t)
	alice := fx.addUser(t, "u1", "alice")
	bob := fx.addUser(t, "u2", "bob")
	fx.addRoom(t, "ABCDEF", alice, bob)

	ctx := context.Background()
	ca, _ := fx.connect(t, "c1", alice)
	cb, sb := fx.connect(t, "c2", bob)
	fx.hub.HandleJoinRoom(ctx, ca, "ABCDEF")
	fx.hub.HandleJoinRoom(ctx, cb, "ABCDEF")

	fx.hub.HandleVoiceSignal(ca, "c2", json.RawMessage(offerSignal))

	ev := sb.last(t, "voice:signal")
	require.Equal(t, "c1", ev["fromId"])
	raw, err := json.Marshal(ev["signal"])
	require.NoError(t, err)
	require.JSONEq(t, offerSignal, string(raw), "payload forwarded unmodified")
}

func TestSignalRelaySilentDrop(t *testing.T) {
	fx := newFixture(t)
	alice := fx.addUser(t, "u1", "alice")
	fx.addRoom(t, "ABCDEF", alice)

	ctx := context.Background()
	ca, sa := fx.connect(t, "c1", alice)
	fx.hub.HandleJoinRoom(ctx, ca, "ABCDEF")

	// Target already disconnected: no error, no delivery.
	fx.hub.HandleVoiceSignal(ca, "gone", json.RawMessage(offerSignal))
	require.Zero(t, sa.count(t, "error"))

	// Malformed payloads are ignored.
	fx.hub.HandleVoiceSignal(ca, "c1", json.RawMessage(`{"bogus":1}`))
	require.Zero(t, sa.count(t, "voice:signal"))
}

func TestSignalRelayRequiresRoom(t *testing.T) {
	fx := newFixture(t)
	alice := fx.addUser(t, "u1", "alice")
	bob := fx.addUser(t, "u2", "bob")
	fx.addRoom(t, "ABCDEF", alice, bob)

	ctx := context.Background()
	ca, _ := fx.connect(t, "c1", alice)
	cb, sb := fx.connect(t, "c2", bob)
	fx.hub.HandleJoinRoom(ctx, cb, "ABCDEF")
	_ = ca // alice never joined a room

	fx.hub.HandleVoiceSignal(ca, "c2", json.RawMessage(offerSignal))
	require.Zero(t, sb.count(t, "voice:signal"))
}

func TestDisconnectWithoutRoom(t *testing.T) {
	fx := newFixture(t)
	alice := fx.addUser(t, "u1", "alice")
	c, _ := fx.connect(t, "c1", alice)

	fx.hub.Disconnect(context.Background(), c)

	_, ok := fx.hub.Registry().Get("c1")
	require.False(t, ok)
}
