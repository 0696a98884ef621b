package store

import (
	"context"
	"sync"
	"time"

	id "personfinder/pkg/domain"
	dErrors "personfinder/pkg/domain-errors"
)

// numShards spreads per-person locks so unrelated persons rarely contend.
const numShards = 128

// defaultTxTimeout is the maximum duration for one per-person transaction.
const defaultTxTimeout = 5 * time.Second

// ShardedTx serialises work on the same person with a hashed mutex. It gives
// the in-memory store the same per-person atomicity the Postgres runner gets
// from row locks. There is no rollback: units of work load and validate
// before their first write, and the in-memory writes that follow cannot fail
// while the person's shard is held, so readers going through the runner see
// the whole unit or none of it.
type ShardedTx struct {
	shards  [numShards]sync.Mutex
	store   Store
	timeout time.Duration
}

func NewShardedTx(store Store) *ShardedTx {
	return &ShardedTx{store: store, timeout: defaultTxTimeout}
}

func (t *ShardedTx) RunInTx(ctx context.Context, key id.RecordID, fn func(ctx context.Context, s Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	shard := &t.shards[hashKey(string(key))%numShards]
	shard.Lock()
	defer shard.Unlock()

	// Check again after acquiring lock
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(ctx, t.store)
}

// hashKey is FNV-1a.
func hashKey(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}
