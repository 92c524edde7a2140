package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

// unlockScript deletes the key only when this instance still holds it.
const unlockScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`

// RedisLocker implements Locker on Redis SETNX with per-lock tokens, so an
// expired lock taken over by another instance is never released by the old
// holder.
type RedisLocker struct {
	client *goredis.Client
	prefix string

	mu     sync.Mutex
	tokens map[string]string
}

// NewRedisLocker creates a distributed locker. prefix namespaces the keys,
// e.g. "session:lock:".
func NewRedisLocker(client *goredis.Client, prefix string) *RedisLocker {
	return &RedisLocker{
		client: client,
		prefix: prefix,
		tokens: make(map[string]string),
	}
}

func (r *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	token := newToken()
	ok, err := r.client.SetNX(ctx, r.prefix+key, token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("lock setnx: %w", err)
	}
	if ok {
		r.mu.Lock()
		r.tokens[key] = token
		r.mu.Unlock()
	}
	return ok, nil
}

func (r *RedisLocker) Unlock(ctx context.Context, key string) error {
	r.mu.Lock()
	token, held := r.tokens[key]
	delete(r.tokens, key)
	r.mu.Unlock()
	if !held {
		return fmt.Errorf("lock not held: %s", key)
	}

	res, err := r.client.Eval(ctx, unlockScript, []string{r.prefix + key}, token).Result()
	if err != nil {
		return fmt.Errorf("lock release: %w", err)
	}
	if n, _ := res.(int64); n == 0 {
		return fmt.Errorf("lock expired before release: %s", key)
	}
	return nil
}

func newToken() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}
