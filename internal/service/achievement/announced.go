package achievement

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// AnnouncedSet suppresses duplicate unlock notifications within a running
// session. It is deliberately separate from the persisted unlocked set and
// is not required to survive restart.
type AnnouncedSet interface {
	// AcquireOnce returns true the first time an (user, achievement) pair is
	// announced in this session, false for every repeat.
	AcquireOnce(ctx context.Context, userID, achievementID string) bool
}

// MemoryAnnouncedSet is the single-process implementation.
type MemoryAnnouncedSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryAnnouncedSet() *MemoryAnnouncedSet {
	return &MemoryAnnouncedSet{seen: make(map[string]struct{})}
}

func (s *MemoryAnnouncedSet) AcquireOnce(ctx context.Context, userID, achievementID string) bool {
	key := userID + ":" + achievementID
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = struct{}{}
	return true
}

// Reset clears all announcements. Tests call this between cases.
func (s *MemoryAnnouncedSet) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = make(map[string]struct{})
}

// RedisAnnouncedSet shares the announced state across replicas via SetNX.
// The TTL bounds the suppression window; expiry only risks a repeated toast.
type RedisAnnouncedSet struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisAnnouncedSet(rdb *redis.Client, ttl time.Duration) *RedisAnnouncedSet {
	return &RedisAnnouncedSet{rdb: rdb, ttl: ttl}
}

func (s *RedisAnnouncedSet) AcquireOnce(ctx context.Context, userID, achievementID string) bool {
	key := fmt.Sprintf("announced:%s:%s", userID, achievementID)

	ok, err := s.rdb.SetNX(ctx, key, 1, s.ttl).Result()
	if err != nil {
		// Redis down: announcing twice beats never announcing.
		return true
	}
	return ok
}
