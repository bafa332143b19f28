// Package redis provides the durable history store. Transcripts survive
// process restarts; an optional TTL reclaims idle namespaces.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	goredis "github.com/redis/go-redis/v9"

	"github.com/adorahq/companion-go-sdk/core"
	"github.com/adorahq/companion-go-sdk/history"
)

// Config holds the store's keying and retention settings.
type Config struct {
	// KeyPrefix namespaces this store's keys inside the Redis instance.
	// Default: "chat".
	KeyPrefix string

	// TTL, when positive, expires an idle namespace. Every write
	// refreshes it, so active conversations never lose entries.
	// Default: 0 (retain indefinitely).
	TTL time.Duration
}

// Store keeps each namespace's transcript in a sorted set scored by
// sequence number. Sequence assignment rides on INCR, so concurrent
// appenders from any process get unique, strictly increasing numbers.
type Store struct {
	client goredis.UniversalClient
	seed   *goredis.Script
	cfg    Config
}

// New creates a Redis-backed history store.
func New(client goredis.UniversalClient, cfg Config) *Store {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "chat"
	}
	return &Store{
		client: client,
		seed:   goredis.NewScript(seedScript),
		cfg:    cfg,
	}
}

// key builds a namespace-scoped key. The hash tag keeps one namespace's
// keys on a single cluster node.
func (s *Store) key(ns, suffix string) string {
	return fmt.Sprintf("%s:{%s}:%s", s.cfg.KeyPrefix, ns, suffix)
}

// seedScript claims the seeded marker and writes the whole seed run in
// one atomic step. Marker, sequence reservation, and ZADDs land together,
// so a concurrent appender that observes the marker also observes the
// full seed run ahead of it -- there is no window where the namespace
// reads as seeded but the run is missing.
//
// Sequences are assigned inside the script: each entry arrives marshaled
// with a zero sequence, and the script rewrites it before the ZADD.
//
// KEYS[1] = seeded marker, KEYS[2] = sequence counter, KEYS[3] = log
// ARGV[1] = ttl millis (0 = retain), ARGV[2..] = marshaled seed entries
//
// Returns 1 when this caller seeded, 0 when the marker already existed.
const seedScript = `
if redis.call('EXISTS', KEYS[1]) == 1 then
    return 0
end

local base = tonumber(redis.call('GET', KEYS[2]) or '0')
local n = #ARGV - 1
for i = 1, n do
    local entry = cjson.decode(ARGV[i + 1])
    entry['sequence'] = base + i
    redis.call('ZADD', KEYS[3], base + i, cjson.encode(entry))
end
if n > 0 then
    redis.call('INCRBY', KEYS[2], n)
end
redis.call('SET', KEYS[1], '1')

local ttl = tonumber(ARGV[1])
if ttl > 0 then
    for _, key in ipairs(KEYS) do
        redis.call('PEXPIRE', key, ttl)
    end
end
return 1
`

// Seed writes the seed run, or reports core.ErrAlreadySeeded. The marker
// claim and the run itself commit atomically, so exactly one racing
// seeder wins and no append can interleave inside the run.
func (s *Store) Seed(ctx context.Context, ns, seedText, delimiter string) error {
	turns := history.SplitSeed(seedText, delimiter)

	args := make([]interface{}, 0, len(turns)+1)
	args = append(args, s.cfg.TTL.Milliseconds())
	for _, turn := range turns {
		data, err := json.Marshal(core.HistoryEntry{
			Speaker: core.RoleCompanion,
			Text:    turn,
		})
		if err != nil {
			return fmt.Errorf("marshal seed entry: %w", err)
		}
		args = append(args, string(data))
	}

	keys := []string{s.key(ns, "seeded"), s.key(ns, "seq"), s.key(ns, "log")}
	claimed, err := s.seed.Run(ctx, s.client, keys, args...).Int()
	if err != nil {
		return fmt.Errorf("run seed script: %w", err)
	}
	if claimed == 0 {
		return core.ErrAlreadySeeded
	}
	return nil
}

// Append adds one entry with the next sequence number.
func (s *Store) Append(ctx context.Context, ns string, speaker core.Role, text string) (core.HistoryEntry, error) {
	seq, err := s.client.Incr(ctx, s.key(ns, "seq")).Result()
	if err != nil {
		return core.HistoryEntry{}, fmt.Errorf("next sequence: %w", err)
	}

	entry := core.HistoryEntry{Speaker: speaker, Text: text, Sequence: seq}
	data, err := json.Marshal(entry)
	if err != nil {
		return core.HistoryEntry{}, fmt.Errorf("marshal entry: %w", err)
	}

	err = s.client.ZAdd(ctx, s.key(ns, "log"), goredis.Z{
		Score:  float64(seq),
		Member: string(data),
	}).Err()
	if err != nil {
		return core.HistoryEntry{}, fmt.Errorf("append entry: %w", err)
	}

	s.refreshTTL(ctx, ns)
	return entry, nil
}

// ReadRecent returns the most recent limit entries, oldest first.
func (s *Store) ReadRecent(ctx context.Context, ns string, limit int) ([]core.HistoryEntry, error) {
	start := int64(0)
	if limit > 0 {
		start = -int64(limit)
	}

	raw, err := s.client.ZRange(ctx, s.key(ns, "log"), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}

	entries := make([]core.HistoryEntry, 0, len(raw))
	for _, member := range raw {
		var entry core.HistoryEntry
		if err := json.Unmarshal([]byte(member), &entry); err != nil {
			return nil, fmt.Errorf("unmarshal entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Seeded reports whether the namespace's seed marker exists.
func (s *Store) Seeded(ctx context.Context, ns string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(ns, "seeded")).Result()
	if err != nil {
		return false, fmt.Errorf("check seed marker: %w", err)
	}
	return n > 0, nil
}

// refreshTTL pushes the namespace's expiry forward after a write.
func (s *Store) refreshTTL(ctx context.Context, ns string) {
	if s.cfg.TTL <= 0 {
		return
	}
	for _, suffix := range []string{"log", "seq", "seeded"} {
		s.client.Expire(ctx, s.key(ns, suffix), s.cfg.TTL)
	}
}
