package room

import (
	"testing"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/l1jgo/simcore/internal/engine"
)

func newTestRoom(t *testing.T, max int) *Room {
	t.Helper()
	eng := engine.New(engine.Config{}, nil)
	return newRoom("TEST-0001", CreateOptions{MaxMembers: max}, eng, DefaultHooks{}, zap.NewNop())
}

func TestRoomJoinSeatsAtLowestFreeIndex(t *testing.T) {
	r := newTestRoom(t, 2)

	seat1, created1, err := r.join("alice", "", nil)
	if err != nil || !created1 || seat1.Index != 0 {
		t.Fatalf("join alice: seat=%+v created=%v err=%v", seat1, created1, err)
	}
	seat2, created2, err := r.join("bob", "", nil)
	if err != nil || !created2 || seat2.Index != 1 {
		t.Fatalf("join bob: seat=%+v created=%v err=%v", seat2, created2, err)
	}
	if r.State() != Ready {
		t.Fatalf("room state = %v, want Ready once full", r.State())
	}
}

func TestRoomJoinRejectsWhenFull(t *testing.T) {
	r := newTestRoom(t, 1)
	if _, _, err := r.join("alice", "", nil); err != nil {
		t.Fatalf("join alice: %v", err)
	}
	if _, _, err := r.join("bob", "", nil); err != errRoomFull {
		t.Fatalf("err = %v, want errRoomFull", err)
	}
}

func TestRoomJoinRejectsWrongPassword(t *testing.T) {
	r := newTestRoom(t, 2)
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	r.PasswordHash = string(hash)

	if _, _, err := r.join("alice", "wrong", nil); err != errRoomPassword {
		t.Fatalf("err = %v, want errRoomPassword", err)
	}
	if _, _, err := r.join("alice", "secret", nil); err != nil {
		t.Fatalf("join with correct password failed: %v", err)
	}
}

func TestRoomJoinResumesExistingSeatOnReconnect(t *testing.T) {
	r := newTestRoom(t, 2)
	first, _, _ := r.join("alice", "", nil)
	r.disconnect("alice")

	resumed, created, err := r.join("alice", "", nil)
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if created {
		t.Fatalf("rejoin should resume the existing seat, not create a new one")
	}
	if resumed.Index != first.Index {
		t.Fatalf("resumed seat index = %d, want %d", resumed.Index, first.Index)
	}
	if !resumed.Connected {
		t.Fatalf("resumed seat not marked connected")
	}
}

func TestRoomLeaveReportsEmptyWhenLastSeatReleased(t *testing.T) {
	r := newTestRoom(t, 2)
	r.join("alice", "", nil)

	if empty := r.leave("alice"); !empty {
		t.Fatalf("expected room to report empty after its only seat leaves")
	}
}

func TestRoomSetReadyRequiresEverySeat(t *testing.T) {
	r := newTestRoom(t, 2)
	r.join("alice", "", nil)
	r.join("bob", "", nil)

	if r.setReady("alice") {
		t.Fatalf("setReady should not report all-ready with bob still unready")
	}
	if !r.setReady("bob") {
		t.Fatalf("setReady should report all-ready once every connected seat is ready")
	}
}

func TestRoomSummaryReflectsMembership(t *testing.T) {
	r := newTestRoom(t, 4)
	r.join("alice", "", nil)

	sum := r.summary()
	if sum.RoomCode != "TEST-0001" || sum.Members != 1 || sum.Max != 4 {
		t.Fatalf("summary = %+v, unexpected", sum)
	}
}
