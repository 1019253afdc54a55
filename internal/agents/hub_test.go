package agents

import (
	"reflect"
	"testing"
)

func TestRegisterRefresh(t *testing.T) {
	h := NewHub()

	a := h.Register("7", "Bob", "telegram", "900")
	if a.ID != "7" || a.Name != "Bob" {
		t.Fatalf("agent = %+v", a)
	}

	// Re-registering from a new chat updates the address, keeps identity.
	b := h.Register("7", "Bobby", "telegram", "901")
	if b.Address != "901" || b.Name != "Bobby" {
		t.Errorf("refresh did not apply: %+v", b)
	}
	if !b.Registered.Equal(a.Registered) {
		t.Error("refresh reset the registration time")
	}

	if len(h.All()) != 1 {
		t.Errorf("agents = %d, want 1", len(h.All()))
	}
}

func TestAssignOrder(t *testing.T) {
	h := NewHub()
	h.Register("7", "Bob", "telegram", "900")

	h.Assign("7", "web:a")
	h.Assign("7", "web:b")
	h.Assign("7", "web:c")

	if got := h.Current("7"); got != "web:c" {
		t.Errorf("current = %q, want web:c", got)
	}

	// Re-taking an older chat makes it the most recent again.
	h.Assign("7", "web:a")
	if got := h.Current("7"); got != "web:a" {
		t.Errorf("current after re-take = %q, want web:a", got)
	}
	want := []string{"web:b", "web:c", "web:a"}
	if got := h.Owned("7"); !reflect.DeepEqual(got, want) {
		t.Errorf("owned = %v, want %v", got, want)
	}
}

func TestUnassign(t *testing.T) {
	h := NewHub()
	h.Register("7", "Bob", "telegram", "900")
	h.Register("8", "Carol", "telegram", "901")
	h.Assign("7", "web:a")
	h.Assign("8", "web:b")

	// Unassign finds the owner without being told who it is.
	h.Unassign("web:b")

	if got := h.Current("8"); got != "" {
		t.Errorf("carol still owns %q", got)
	}
	if got := h.Current("7"); got != "web:a" {
		t.Errorf("bob lost his chat: %q", got)
	}

	// Unassigning an unowned key is a no-op.
	h.Unassign("web:nope")
}

func TestCurrentEmpty(t *testing.T) {
	h := NewHub()
	if got := h.Current("7"); got != "" {
		t.Errorf("current = %q, want empty", got)
	}
	if h.IsRegistered("7") {
		t.Error("unregistered agent reported as registered")
	}
}
