package core

import "fmt"

// IdentityKey identifies one conversation namespace: a single user talking
// to a single companion through a single model. Keys are value types;
// equal tuples always resolve to the same storage partition.
type IdentityKey struct {
	CompanionID string
	ModelName   string
	UserID      string
}

// Namespace returns the storage partition string for this conversation.
// Both the transcript store and the vector store key on it. The separator
// keeps distinct tuples from colliding on plain concatenation.
func (k IdentityKey) Namespace() string {
	return fmt.Sprintf("%s::%s::%s", k.CompanionID, k.ModelName, k.UserID)
}

// RateKey returns the opaque identity used for admission checks.
// Rate budgets are shared across models, so the model name is excluded.
func (k IdentityKey) RateKey() string {
	return k.UserID + "-" + k.CompanionID
}
