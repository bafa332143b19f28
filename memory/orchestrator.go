package memory

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/adorahq/companion-go-sdk/companions"
	"github.com/adorahq/companion-go-sdk/core"
	"github.com/adorahq/companion-go-sdk/history"
	"github.com/adorahq/companion-go-sdk/ratelimit"
)

// Orchestrator coordinates one conversation turn: admission, one-shot
// namespace seeding, transcript append, and retrieval-augmented context
// assembly. It holds no per-conversation state of its own; everything
// lives in the injected stores, so a single instance is shared by all
// request handlers.
type Orchestrator struct {
	limiter     ratelimit.Limiter
	profiles    companions.Provider
	transcripts history.Store
	vectors     Store
	embedder    Embedder
	config      *Config
}

// NewOrchestrator wires the orchestrator's collaborators. config may be
// nil for defaults.
func NewOrchestrator(
	limiter ratelimit.Limiter,
	profiles companions.Provider,
	transcripts history.Store,
	vectors Store,
	embedder Embedder,
	config *Config,
) *Orchestrator {
	return &Orchestrator{
		limiter:     limiter,
		profiles:    profiles,
		transcripts: transcripts,
		vectors:     vectors,
		embedder:    embedder,
		config:      config.withDefaults(),
	}
}

// PrepareTurn runs the inbound half of a turn and returns the assembled
// context for prompt construction.
//
// Outcomes: a ConversationContext; core.ErrThrottled (no state touched);
// core.ErrCompanionNotFound (namespace needed seeding and no profile
// exists); any other error is an internal store failure and the turn must
// not proceed.
func (o *Orchestrator) PrepareTurn(ctx context.Context, key core.IdentityKey, utterance string) (*core.ConversationContext, error) {
	allowed, err := o.limiter.Allow(ctx, key.RateKey())
	if err != nil {
		// The limiter already applied its fail-open/closed policy; the
		// error is informational.
		log.Printf("[ORCH] admission check degraded for %s: %v", key.RateKey(), err)
	}
	if !allowed {
		return nil, core.ErrThrottled
	}

	ns := key.Namespace()

	seeded, err := o.transcripts.Seeded(ctx, ns)
	if err != nil {
		return nil, fmt.Errorf("check seed state: %w", err)
	}
	if !seeded {
		profile, err := o.profiles.Get(ctx, key.CompanionID)
		if err != nil {
			return nil, err
		}
		err = o.transcripts.Seed(ctx, ns, profile.Seed, o.config.SeedDelimiter)
		switch {
		case err == nil:
			log.Printf("[ORCH] seeded namespace %s", ns)
		case errors.Is(err, core.ErrAlreadySeeded):
			// Lost the seed race to a concurrent turn. The namespace is
			// seeded either way; proceed as a normal append.
		default:
			return nil, fmt.Errorf("seed namespace: %w", err)
		}
	}

	if _, err := o.transcripts.Append(ctx, ns, core.RoleUser, utterance); err != nil {
		return nil, fmt.Errorf("append utterance: %w", err)
	}

	recent, err := o.transcripts.ReadRecent(ctx, ns, o.config.HistoryWindow)
	if err != nil {
		return nil, fmt.Errorf("read recent history: %w", err)
	}

	// Retrieval runs against the snapshot read above; the stores' write
	// locks are long released by the time the embedding round trip starts.
	convCtx := &core.ConversationContext{RecentHistory: recent}
	convCtx.RetrievedPassages = o.retrieve(ctx, ns, convCtx.Transcript())
	return convCtx, nil
}

// CommitReply runs the outbound half of a turn: append the companion's
// reply to the transcript and fold it into long-term memory. Replies
// shorter than MinReplyLength are discarded entirely.
func (o *Orchestrator) CommitReply(ctx context.Context, key core.IdentityKey, reply string) error {
	reply = strings.TrimSpace(reply)
	if len(reply) < o.config.MinReplyLength {
		log.Printf("[ORCH] discarding degenerate reply (%d chars) for %s", len(reply), key.Namespace())
		return nil
	}

	ns := key.Namespace()
	if _, err := o.transcripts.Append(ctx, ns, core.RoleCompanion, reply); err != nil {
		return fmt.Errorf("append reply: %w", err)
	}

	embedding, err := o.embedder.Embed(ctx, reply)
	if err != nil {
		log.Printf("[ORCH] embed reply failed, reply kept out of long-term memory: %v", err)
		return nil
	}
	if err := o.vectors.Upsert(ctx, ns, reply, embedding); err != nil {
		log.Printf("[ORCH] upsert reply failed, reply kept out of long-term memory: %v", err)
	}
	return nil
}

// retrieve is the best-effort long-term memory lookup. Any backend
// failure degrades to an empty result; the turn proceeds regardless.
func (o *Orchestrator) retrieve(ctx context.Context, ns, query string) []string {
	if query == "" {
		return nil
	}

	embedding, err := o.embedder.Embed(ctx, query)
	if err != nil {
		log.Printf("[ORCH] embed query failed, continuing without long-term memory: %v", err)
		return nil
	}

	passages, err := o.vectors.Search(ctx, ns, embedding, o.config.RetrievalTopK)
	if err != nil {
		log.Printf("[ORCH] vector search failed, continuing without long-term memory: %v", err)
		return nil
	}

	log.Printf("[ORCH] retrieved %d passages for %s", len(passages), ns)
	return passages
}
