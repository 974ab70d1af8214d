package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"solairdrop/storage"
)

// KeyPrefix namespaces claim keys.
const KeyPrefix = "airdrop:claim:"

// completeScript rewrites a claim only if it exists.
var completeScript = goredis.NewScript(`
local v = redis.call('GET', KEYS[1])
if not v then return 0 end
local c = cjson.decode(v)
c.status = ARGV[1]
c.signature = ARGV[2]
c.updatedAt = ARGV[3]
redis.call('SET', KEYS[1], cjson.encode(c))
return 1
`)

// releaseScript deletes a claim only while it is pending.
var releaseScript = goredis.NewScript(`
local v = redis.call('GET', KEYS[1])
if not v then return 0 end
if cjson.decode(v).status == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// ClaimStore is a Redis implementation of storage.ClaimStore. SETNX gives
// Reserve its atomicity.
type ClaimStore struct {
	rdb *goredis.Client
}

var _ storage.ClaimStore = (*ClaimStore)(nil)

// Open connects to addr and verifies the connection.
func Open(ctx context.Context, addr string) (*ClaimStore, error) {
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return NewClaimStore(rdb), nil
}

// NewClaimStore wraps an existing client.
func NewClaimStore(rdb *goredis.Client) *ClaimStore {
	return &ClaimStore{rdb: rdb}
}

// Close closes the client.
func (s *ClaimStore) Close() error {
	return s.rdb.Close()
}

func key(wallet string) string {
	return KeyPrefix + wallet
}

// Get retrieves a claim by wallet. Returns ErrNotFound if not exists.
func (s *ClaimStore) Get(ctx context.Context, wallet string) (*storage.Claim, error) {
	raw, err := s.rdb.Get(ctx, key(wallet)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get claim: %w", err)
	}
	var c storage.Claim
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode claim: %w", err)
	}
	return &c, nil
}

// IsClaimed reports whether wallet has any claim record.
func (s *ClaimStore) IsClaimed(ctx context.Context, wallet string) (bool, error) {
	n, err := s.rdb.Exists(ctx, key(wallet)).Result()
	if err != nil {
		return false, fmt.Errorf("check claim: %w", err)
	}
	return n > 0, nil
}

// Reserve stores a pending claim unless one exists.
func (s *ClaimStore) Reserve(ctx context.Context, wallet string) error {
	if err := storage.ValidateWallet(wallet); err != nil {
		return err
	}

	now := time.Now().UTC()
	raw, err := json.Marshal(storage.Claim{
		Wallet:    wallet,
		Status:    storage.ClaimPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return err
	}

	ok, err := s.rdb.SetNX(ctx, key(wallet), raw, 0).Result()
	if err != nil {
		return fmt.Errorf("reserve claim: %w", err)
	}
	if !ok {
		return storage.ErrAlreadyClaimed
	}
	return nil
}

// Complete marks wallet's claim as confirmed.
func (s *ClaimStore) Complete(ctx context.Context, wallet, signature string) error {
	updated, err := completeScript.Run(ctx, s.rdb, []string{key(wallet)},
		string(storage.ClaimCompleted),
		signature,
		time.Now().UTC().Format(time.RFC3339Nano),
	).Int()
	if err != nil {
		return fmt.Errorf("complete claim: %w", err)
	}
	if updated == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Release deletes a pending claim.
func (s *ClaimStore) Release(ctx context.Context, wallet string) error {
	if err := releaseScript.Run(ctx, s.rdb, []string{key(wallet)}, string(storage.ClaimPending)).Err(); err != nil {
		return fmt.Errorf("release claim: %w", err)
	}
	return nil
}
