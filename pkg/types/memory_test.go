package types

import (
	"testing"
	"time"
)

func TestMemoryIsDeletedReflectsDeletedAt(t *testing.T) {
	m := &Memory{}
	if m.IsDeleted() {
		t.Error("a fresh memory should not be deleted")
	}
	now := time.Now()
	m.DeletedAt = &now
	if !m.IsDeleted() {
		t.Error("expected IsDeleted to be true once DeletedAt is set")
	}
}

func TestMemoryAgeDaysMeasuresFromCreatedAt(t *testing.T) {
	now := time.Now()
	m := &Memory{CreatedAt: now.Add(-48 * time.Hour)}
	got := m.AgeDays(now)
	if got < 1.99 || got > 2.01 {
		t.Errorf("got %v days, want approximately 2", got)
	}
}

func TestWorkingMemoryItemAgeSecondsMeasuresFromCreatedAt(t *testing.T) {
	now := time.Now()
	item := &WorkingMemoryItem{CreatedAt: now.Add(-90 * time.Second)}
	got := item.AgeSeconds(now)
	if got < 89.9 || got > 90.1 {
		t.Errorf("got %v seconds, want approximately 90", got)
	}
}

func TestSessionExpiredReportsFalseWhenNoExpiryIsSet(t *testing.T) {
	s := &Session{}
	if s.Expired(time.Now()) {
		t.Error("a session with no ExpiresAt should never be considered expired")
	}
}

func TestSessionExpiredAtTheExactBoundary(t *testing.T) {
	now := time.Now()
	s := &Session{ExpiresAt: &now}
	if !s.Expired(now) {
		t.Error("a session is expired at the exact moment ExpiresAt is reached")
	}
	past := now.Add(-time.Second)
	s2 := &Session{ExpiresAt: &past}
	if !s2.Expired(now) {
		t.Error("a session past its ExpiresAt should be expired")
	}
	future := now.Add(time.Second)
	s3 := &Session{ExpiresAt: &future}
	if s3.Expired(now) {
		t.Error("a session with a future ExpiresAt should not yet be expired")
	}
}
