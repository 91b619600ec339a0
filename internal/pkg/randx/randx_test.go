package randx

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestConnectionID_IsUniqueUUID(t *testing.T) {
	a, b := ConnectionID(), ConnectionID()
	if a == b {
		t.Fatalf("ConnectionID returned duplicate %q", a)
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Fatalf("uuid.Parse(%q): %v", a, err)
	}
}

func TestIsValidChannel(t *testing.T) {
	valid := []string{"r1", "call_42", "team-sync:daily", strings.Repeat("a", MaxChannelLength)}
	for _, name := range valid {
		if !IsValidChannel(name) {
			t.Fatalf("IsValidChannel(%q) = false, want true", name)
		}
	}

	invalid := []string{"", strings.Repeat("a", MaxChannelLength+1), "room/1", "naïve", "a\"b"}
	for _, name := range invalid {
		if IsValidChannel(name) {
			t.Fatalf("IsValidChannel(%q) = true, want false", name)
		}
	}
}
