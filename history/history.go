// Package history defines the short-term transcript buffer for
// conversation namespaces. Entries are append-only and totally ordered
// per namespace; seeding writes the companion's canonical opening run
// exactly once.
//
// Backends:
//   - memstore: in-process store for local development and tests
//   - redis: durable store shared across processes
package history

import (
	"context"
	"strings"

	"github.com/adorahq/companion-go-sdk/core"
)

// Store is the transcript buffer contract.
//
// Seed and Append for the same namespace are serialized by the
// implementation so sequence numbers stay strictly increasing and the
// seed run is written at most once. Reads return a consistent snapshot
// of completed writes.
type Store interface {
	// Seed splits seedText on delimiter and writes the resulting turns
	// as the namespace's initial companion-voice run. Returns
	// core.ErrAlreadySeeded if the namespace already holds its seed.
	Seed(ctx context.Context, namespace, seedText, delimiter string) error

	// Append adds one entry with the next sequence number and returns it.
	Append(ctx context.Context, namespace string, speaker core.Role, text string) (core.HistoryEntry, error)

	// ReadRecent returns the most recent limit entries in ascending
	// sequence order. limit <= 0 returns the full transcript.
	ReadRecent(ctx context.Context, namespace string, limit int) ([]core.HistoryEntry, error)

	// Seeded reports whether the namespace's seed run has been written.
	Seeded(ctx context.Context, namespace string) (bool, error)
}

// SplitSeed splits canonical seed material into its turns. Blank turns
// are dropped so trailing delimiters in authored seed text are harmless.
func SplitSeed(seedText, delimiter string) []string {
	raw := strings.Split(seedText, delimiter)
	turns := make([]string, 0, len(raw))
	for _, turn := range raw {
		turn = strings.TrimSpace(turn)
		if turn == "" {
			continue
		}
		turns = append(turns, turn)
	}
	return turns
}
