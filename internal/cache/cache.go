// Package cache is the guard's response cache: an LRU with a TTL in front,
// keyed on the engine pair, the style/glossary signature, and a hash of the
// frozen source text, so a cache hit only ever returns a translation
// computed under the exact same settings. Only successful
// (checks.ok == true) translations are ever stored.
//
// Grounded on the reference guard's cache.py (LRUCache, style_signature,
// glossary_signature, build_key) in full, and on the teacher anonymizer's
// container/list + map + mutex eviction structure (s3fifo_cache.go) for the
// Go shape of the in-memory layer — the S3-FIFO algorithm itself is not
// reused: the reference semantics are plain LRU+TTL, so only the teacher's
// Go idiom for building a list-backed eviction cache is carried over, not
// its eviction policy.
package cache

import (
	"container/list"
	"crypto/sha1" //nolint:gosec // cache key fingerprint, not a security boundary
	"encoding/hex"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"
)

// Value is a cached translation result. Only the fields needed to
// reconstruct a response are kept; Checks' full detail is the pipeline's
// concern, not the cache's.
type Value struct {
	Text          string
	Degraded      bool
	DegradeReason string
}

type entry struct {
	key     string
	value   Value
	storedAt time.Time
	elem    *list.Element
}

// Stats mirrors cache.py's stats() dict.
type Stats struct {
	Size      int
	Hits      int
	Misses    int
	Evictions int
}

// Cache is a thread-safe LRU with a TTL, matching cache.py's LRUCache.
type Cache struct {
	mu sync.Mutex

	maxSize int
	ttl     time.Duration

	index map[string]*entry
	order *list.List // front = most recently used, back = least recently used

	hits, misses, evictions int

	backing backing // optional durable write-through store; nil = in-memory only
}

// New returns a Cache holding at most maxSize entries, each valid for ttl
// before it's treated as a miss and evicted lazily on next access.
func New(maxSize int, ttl time.Duration) *Cache {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Cache{
		maxSize: maxSize,
		ttl:     ttl,
		index:   make(map[string]*entry),
		order:   list.New(),
	}
}

// Get returns the cached value for key, or (_, false) on a miss — either
// because the key was never stored, or its entry has aged past the TTL (in
// which case it's evicted on the way out, mirroring cache.py's get()).
func (c *Cache) Get(key string) (Value, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.index[key]
	if !ok {
		if c.backing != nil {
			if v, storedAt, found := c.backing.get(key); found {
				if c.ttl == 0 || time.Since(storedAt) <= c.ttl {
					c.insertLocked(key, v, storedAt)
					c.hits++
					return v, true
				}
			}
		}
		c.misses++
		return Value{}, false
	}
	if c.ttl > 0 && time.Since(e.storedAt) > c.ttl {
		c.removeLocked(e)
		c.misses++
		return Value{}, false
	}
	c.order.MoveToFront(e.elem)
	c.hits++
	return e.value, true
}

// Set stores value under key, evicting the least-recently-used entry if
// the cache is now over capacity.
func (c *Cache) Set(key string, value Value) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	c.insertLocked(key, value, now)
	if c.backing != nil {
		c.backing.set(key, value, now)
	}
}

// insertLocked adds or refreshes key in the in-memory LRU only — it never
// touches the durable backing store, so cold-storage re-warms (from Get)
// don't re-trigger a redundant disk write.
func (c *Cache) insertLocked(key string, value Value, storedAt time.Time) {
	if e, ok := c.index[key]; ok {
		e.value = value
		e.storedAt = storedAt
		c.order.MoveToFront(e.elem)
		return
	}

	e := &entry{key: key, value: value, storedAt: storedAt}
	e.elem = c.order.PushFront(e)
	c.index[key] = e

	if len(c.index) > c.maxSize {
		oldest := c.order.Back()
		if oldest != nil {
			c.removeLocked(oldest.Value.(*entry))
			c.evictions++
		}
	}
}

func (c *Cache) removeLocked(e *entry) {
	c.order.Remove(e.elem)
	delete(c.index, e.key)
}

// StatsSnapshot returns the current hit/miss/eviction counters and size.
func (c *Cache) StatsSnapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Size:      len(c.index),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

// StyleSignature builds the style portion of a cache key from the
// effective address and gender settings, mirroring cache.py's
// style_signature (defaulting empty address to "auto" and empty gender to
// "none", same as the style filters themselves do).
func StyleSignature(address, gender string) string {
	a := strings.ToLower(address)
	if a == "" {
		a = "auto"
	}
	g := strings.ToLower(gender)
	if g == "" {
		g = "none"
	}
	return "a=" + a + ";g=" + g
}

// GlossaryTerm is the minimal shape glossary.py passes into
// glossary_signature: a canonical replacement and/or the raw term.
type GlossaryTerm struct {
	Term      string
	Canonical string
}

// GlossarySignature builds the glossary portion of a cache key from the
// sorted, deduplicated set of canonical terms in effect, so two requests
// against different glossary configurations never collide, mirroring
// cache.py's glossary_signature.
func GlossarySignature(terms []GlossaryTerm) string {
	if len(terms) == 0 {
		return "gl=none"
	}
	names := make([]string, 0, len(terms))
	for _, t := range terms {
		name := strings.TrimSpace(t.Canonical)
		if name == "" {
			name = strings.TrimSpace(t.Term)
		}
		names = append(names, name)
	}
	sort.Strings(names)
	names = slices.Compact(names)
	sum := sha1.Sum([]byte(strings.Join(names, "|"))) //nolint:gosec // fingerprint only
	return "gl=" + hex.EncodeToString(sum[:])[:8]
}

// BuildKey builds the full cache key: engine pair, style+glossary
// signature, and a truncated SHA-1 of the frozen source text, mirroring
// cache.py's build_key.
func BuildKey(srcEngine, tgtEngine, freezeTextStd, signature string) string {
	sum := sha1.Sum([]byte(freezeTextStd)) //nolint:gosec // fingerprint only
	h := hex.EncodeToString(sum[:])[:16]
	return srcEngine + "->" + tgtEngine + "|" + signature + "|" + h
}
