package types

import "testing"

func TestIsValidSessionTransitionCoversEveryLegalEdge(t *testing.T) {
	legal := map[[2]string]bool{
		{SessionAbsent, SessionActive}:   true,
		{SessionActive, SessionActive}:   true,
		{SessionActive, SessionCleared}:  true,
		{SessionActive, SessionAbsent}:   true,
		{SessionCleared, SessionActive}:  true,
		{SessionAbsent, SessionCleared}:  false,
		{SessionCleared, SessionCleared}: false,
		{SessionCleared, SessionAbsent}:  false,
	}
	for edge, want := range legal {
		got := IsValidSessionTransition(edge[0], edge[1])
		if got != want {
			t.Errorf("IsValidSessionTransition(%q, %q) = %v, want %v", edge[0], edge[1], got, want)
		}
	}
}

func TestIsValidSessionTransitionRejectsUnknownState(t *testing.T) {
	if IsValidSessionTransition("ghost", SessionActive) {
		t.Error("expected false for an unrecognized current state")
	}
}

func TestIsValidMemoryTransitionCoversEveryLegalEdge(t *testing.T) {
	legal := map[[2]string]bool{
		{MemoryLive, MemorySuperseded}:       true,
		{MemoryLive, MemorySoftDeleted}:      true,
		{MemoryLive, MemoryHardDeleted}:      true,
		{MemorySuperseded, MemorySoftDeleted}: true,
		{MemorySuperseded, MemoryHardDeleted}: true,
		{MemorySoftDeleted, MemoryLive}:       true,
		{MemorySoftDeleted, MemoryHardDeleted}: true,
		{MemoryHardDeleted, MemoryLive}:       false,
		{MemoryLive, MemoryLive}:              false,
	}
	for edge, want := range legal {
		got := IsValidMemoryTransition(edge[0], edge[1])
		if got != want {
			t.Errorf("IsValidMemoryTransition(%q, %q) = %v, want %v", edge[0], edge[1], got, want)
		}
	}
}

func TestIsValidMemoryTransitionHardDeletedIsTerminal(t *testing.T) {
	for _, next := range []string{MemoryLive, MemorySuperseded, MemorySoftDeleted, MemoryHardDeleted} {
		if IsValidMemoryTransition(MemoryHardDeleted, next) {
			t.Errorf("hard-deleted should be terminal, got true transitioning to %q", next)
		}
	}
}
