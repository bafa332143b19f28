// Package completion defines the model collaborator. The orchestration
// layer emits a finished prompt string and consumes a single completion
// back; the model's wire protocol stays behind this interface.
package completion

import "context"

// Completer produces a text completion for a prompt.
type Completer interface {
	// Complete returns the full completion in one call.
	Complete(ctx context.Context, prompt string) (string, error)

	// Stream delivers completion chunks to onChunk as they arrive and
	// returns the accumulated reply once the stream ends.
	Stream(ctx context.Context, prompt string, onChunk func(chunk string)) (string, error)
}
