package presence

import (
	"math/rand"
	"testing"

	"callrelay/internal/app/user"
)

func alice() user.Identity { return user.Identity{UserID: "1", DisplayName: "alice"} }
func bob() user.Identity { return user.Identity{UserID: "2", DisplayName: "bob"} }

func TestJoinResolveLeave(t *testing.T) {
	r := NewRegistry()
	r.Join("c1", alice())
	r.Join("c2", bob())

	if conn, ok := r.Resolve("2"); !ok || conn != "c2" {
		t.Fatalf("Resolve(2): got %q,%v, want c2,true", conn, ok)
	}

	if _, ok := r.Leave("c2"); !ok {
		t.Fatalf("Leave(c2) should report removal")
	}
	if _, ok := r.Leave("c2"); ok {
		t.Fatalf("second Leave(c2) should be a no-op")
	}
	if _, ok := r.Resolve("2"); ok {
		t.Fatalf("bob should be offline")
	}
	if r.Len() != 1 {
		t.Fatalf("Len: got %d, want 1", r.Len())
	}
}

func TestJoinIsIdempotent(t *testing.T) {
	r := NewRegistry()
	r.Join("c1", alice())
	r.Join("c1", alice())

	if r.Len() != 1 {
		t.Fatalf("Len: got %d, want 1", r.Len())
	}
	if got := len(r.Snapshot()); got != 1 {
		t.Fatalf("Snapshot: got %d entries, want 1", got)
	}
}

func TestLatestJoinWins(t *testing.T) {
	r := NewRegistry()
	r.Join("old", alice())
	r.Join("new", alice())

	if conn, _ := r.Resolve("1"); conn != "new" {
		t.Fatalf("Resolve: got %q, want new", conn)
	}

	// The orphaned connection leaving must not take the user offline.
	r.Leave("old")
	if conn, _ := r.Resolve("1"); conn != "new" {
		t.Fatalf("Resolve after orphan left: got %q, want new", conn)
	}
}

func TestCurrentLeaveFallsBackToOrphan(t *testing.T) {
	r := NewRegistry()
	r.Join("old", alice())
	r.Join("new", alice())

	r.Leave("new")
	if conn, ok := r.Resolve("1"); !ok || conn != "old" {
		t.Fatalf("Resolve: got %q,%v, want old,true", conn, ok)
	}
}

func TestRejoinAsDifferentUserDropsOldIndex(t *testing.T) {
	r := NewRegistry()
	r.Join("c1", alice())
	r.Join("c1", bob())

	if _, ok := r.Resolve("1"); ok {
		t.Fatalf("alice should no longer resolve")
	}
	if conn, _ := r.Resolve("2"); conn != "c1" {
		t.Fatalf("Resolve(2): got %q, want c1", conn)
	}
}

func TestSnapshotMatchesJoinLeaveSequence(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	r := NewRegistry()
	want := map[string]bool{}
	conns := []string{"a", "b", "c", "d", "e"}

	for i := 0; i < 500; i++ {
		conn := conns[rng.Intn(len(conns))]
		if rng.Intn(2) == 0 {
			r.Join(conn, user.Identity{UserID: user.ID(conn), DisplayName: conn})
			want[conn] = true
		} else {
			r.Leave(conn)
			delete(want, conn)
		}

		snap := r.Snapshot()
		if len(snap) != len(want) || r.Len() != len(want) {
			t.Fatalf("step %d: snapshot has %d entries (Len %d), want %d", i, len(snap), r.Len(), len(want))
		}
		for conn := range want {
			entry, ok := snap[user.ID(conn)]
			if !ok || entry.ConnectionID != conn {
				t.Fatalf("step %d: snapshot entry for %q: got %+v, %v", i, conn, entry, ok)
			}
		}
	}
}
