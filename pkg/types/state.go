package types

// Session lifecycle states. A session starts absent (no record exists),
// becomes active on first reference, and stays active across further
// working-memory operations until it is explicitly cleared or its expiry
// is reached.
const (
	SessionAbsent  = "absent"
	SessionActive  = "active"
	SessionCleared = "cleared"
)

// IsValidSessionTransition validates transitions in the session state
// machine: absent -> active -> active (updated) -> cleared, with expiry
// causing a transition from active back to absent when reached.
func IsValidSessionTransition(currentState, newState string) bool {
	switch currentState {
	case SessionAbsent:
		return newState == SessionActive
	case SessionActive:
		return newState == SessionActive || newState == SessionCleared || newState == SessionAbsent
	case SessionCleared:
		return newState == SessionActive
	default:
		return false
	}
}

// Long-term memory lifecycle states.
const (
	MemoryLive        = "live"
	MemorySuperseded  = "superseded"
	MemorySoftDeleted = "soft-deleted"
	MemoryHardDeleted = "hard-deleted"
)

// IsValidMemoryTransition validates transitions in the long-term memory
// state machine: live -> superseded -> soft-deleted -> hard-deleted, with
// soft-deleted restorable back to live (by clearing deleted_at) until
// hard-delete runs. Supersede sets both supersession and soft-delete in
// the same write, so superseded -> soft-deleted is a same-moment
// transition rather than a separate administrative step.
func IsValidMemoryTransition(currentState, newState string) bool {
	switch currentState {
	case MemoryLive:
		return newState == MemorySuperseded || newState == MemorySoftDeleted || newState == MemoryHardDeleted
	case MemorySuperseded:
		return newState == MemorySoftDeleted || newState == MemoryHardDeleted
	case MemorySoftDeleted:
		return newState == MemoryLive || newState == MemoryHardDeleted
	case MemoryHardDeleted:
		return false // terminal, the row no longer exists
	default:
		return false
	}
}
