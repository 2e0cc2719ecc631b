package quote

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/hxuan190/snipe-engine/internal/domain"
	"github.com/hxuan190/snipe-engine/internal/metrics"
)

const (
	// DefaultTTL bounds how long a resolved route stays reusable.
	DefaultTTL = 10 * time.Second

	cacheMaxSize = 1024 // Power of 2 for efficient modulo
	cacheShards  = 16   // Number of shards for reduced lock contention
)

// FNV-1a constants for zero-allocation hashing
const (
	fnvOffset64 = 14695981039346656037
	fnvPrime64  = 1099511628211
)

// cacheEntry represents a cached quote in contiguous memory
type cacheEntry struct {
	key    uint64
	id     cacheID
	quote  *domain.Quote
	expiry int64  // Unix nano for faster comparison
	used   uint32 // Clock bit for slot reuse
}

// cacheID is the full request tuple in comparable form. Entries match on key
// AND id, so a hash collision can never serve another request's quote.
type cacheID struct {
	inputMint        solana.PublicKey
	outputMint       solana.PublicKey
	amount           string
	slippageBps      uint16
	onlyDirectRoutes bool
}

func cacheIdentity(req *domain.QuoteRequest) cacheID {
	id := cacheID{
		inputMint:        req.InputMint,
		outputMint:       req.OutputMint,
		slippageBps:      req.SlippageBps,
		onlyDirectRoutes: req.OnlyDirectRoutes,
	}
	if req.Amount != nil {
		id.amount = req.Amount.String()
	}
	return id
}

// cacheShard is a single shard of the cache
type cacheShard struct {
	mu      sync.RWMutex
	entries []cacheEntry
	size    int
	hand    int // Clock hand for slot reuse
}

// Cache memoizes route lookups keyed by the full request tuple. Staleness is
// checked at read time only; there is no sweeper goroutine. A hit never
// returns an entry whose expiry has passed.
type Cache struct {
	shards [cacheShards]cacheShard

	hits   atomic.Int64
	misses atomic.Int64
}

func NewCache() *Cache {
	c := &Cache{}
	entriesPerShard := cacheMaxSize / cacheShards
	for i := 0; i < cacheShards; i++ {
		c.shards[i].entries = make([]cacheEntry, entriesPerShard)
	}
	return c
}

// cacheKey derives the key as a pure function of the request tuple using
// inline FNV-1a. Any change to input, output, amount, slippage or the
// direct-routes flag produces a different key.
func cacheKey(req *domain.QuoteRequest) uint64 {
	h := uint64(fnvOffset64)

	for _, b := range req.InputMint {
		h ^= uint64(b)
		h *= fnvPrime64
	}
	for _, b := range req.OutputMint {
		h ^= uint64(b)
		h *= fnvPrime64
	}

	if req.Amount != nil && req.Amount.IsUint64() {
		amountU64 := req.Amount.Uint64()
		for i := 0; i < 8; i++ {
			h ^= (amountU64 >> (i * 8)) & 0xFF
			h *= fnvPrime64
		}
	} else if req.Amount != nil {
		for _, b := range req.Amount.Bytes() {
			h ^= uint64(b)
			h *= fnvPrime64
		}
	}

	h ^= uint64(req.SlippageBps)
	h *= fnvPrime64

	if req.OnlyDirectRoutes {
		h ^= 1
	}
	h *= fnvPrime64

	return h
}

func (c *Cache) getShard(key uint64) *cacheShard {
	return &c.shards[key%cacheShards]
}

// Get returns the cached quote for req, or nil. An expired entry counts as a
// miss and its slot is released for reuse.
func (c *Cache) Get(req *domain.QuoteRequest) *domain.Quote {
	key := cacheKey(req)
	id := cacheIdentity(req)
	now := time.Now().UnixNano()

	shard := c.getShard(key)
	shard.mu.RLock()

	for i := 0; i < shard.size; i++ {
		entry := &shard.entries[i]
		if entry.key != key || entry.id != id {
			continue
		}
		if now > entry.expiry {
			// Lazy eviction: clear the used bit so Put reclaims the slot.
			atomic.StoreUint32(&entry.used, 0)
			break
		}
		atomic.StoreUint32(&entry.used, 1)
		q := entry.quote
		shard.mu.RUnlock()

		c.hits.Add(1)
		metrics.QuoteCacheHits.Inc()
		return q
	}

	shard.mu.RUnlock()
	c.misses.Add(1)
	metrics.QuoteCacheMisses.Inc()
	return nil
}

// Put stores q for req with the given TTL (DefaultTTL when ttl <= 0).
func (c *Cache) Put(req *domain.QuoteRequest, q *domain.Quote, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	key := cacheKey(req)
	id := cacheIdentity(req)
	expiry := time.Now().Add(ttl).UnixNano()

	shard := c.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	// Update in place if the tuple is already present.
	for i := 0; i < shard.size; i++ {
		entry := &shard.entries[i]
		if entry.key == key && entry.id == id {
			entry.quote = q
			entry.expiry = expiry
			atomic.StoreUint32(&entry.used, 1)
			return
		}
	}

	entriesPerShard := len(shard.entries)

	if shard.size < entriesPerShard {
		entry := &shard.entries[shard.size]
		entry.key = key
		entry.id = id
		entry.quote = q
		entry.expiry = expiry
		entry.used = 1
		shard.size++
		metrics.QuoteCacheSize.Set(float64(c.Size()))
		return
	}

	// Clock reuse: prefer slots that are unused or already expired.
	now := time.Now().UnixNano()
	for attempts := 0; attempts < entriesPerShard*2; attempts++ {
		entry := &shard.entries[shard.hand]
		shard.hand = (shard.hand + 1) % entriesPerShard

		if atomic.LoadUint32(&entry.used) == 0 || now > entry.expiry {
			entry.key = key
			entry.id = id
			entry.quote = q
			entry.expiry = expiry
			entry.used = 1
			return
		}

		// Second chance
		atomic.StoreUint32(&entry.used, 0)
	}

	entry := &shard.entries[shard.hand]
	entry.key = key
	entry.id = id
	entry.quote = q
	entry.expiry = expiry
	entry.used = 1
	shard.hand = (shard.hand + 1) % entriesPerShard
}

// Size returns current cache size across all shards
func (c *Cache) Size() int {
	total := 0
	for i := 0; i < cacheShards; i++ {
		shard := &c.shards[i]
		shard.mu.RLock()
		total += shard.size
		shard.mu.RUnlock()
	}
	return total
}

// Stats returns lifetime hit/miss counts.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
