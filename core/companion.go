package core

// CompanionProfile is the read-only persona metadata for one companion.
// The orchestration layer never mutates it; Seed is the canonical opening
// material used to initialize a fresh conversation.
type CompanionProfile struct {
	ID           string
	Name         string
	Instructions string
	Seed         string
	Category     string
}
