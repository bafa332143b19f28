// Package memory orchestrates conversational context for companion chat.
//
// Per turn it combines two stores keyed by the same conversation
// namespace:
//   - a short-term transcript buffer (package history)
//   - a long-term vector memory of past companion replies
//
// Architecture:
//   - Store: vector storage backend (chromem-go embedded for local use,
//     swappable for a hosted index in production)
//   - Embedder: text-to-vector conversion (mock for tests, OpenAI hosted)
//   - Orchestrator: admission check, one-shot seeding, transcript append,
//     and retrieval-augmented context assembly
//
// Retrieval is an enhancement, not a correctness requirement: when the
// embedding or vector backend is unavailable, a turn proceeds with recent
// transcript only.
package memory
