package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Partition keys. Views that depend on a partition refetch when it is
// invalidated.
const (
	PartitionSummaryWeek       = "summary-week"
	PartitionSummaryMonth      = "summary-month"
	PartitionPendingGoals      = "pending-goals"
	PartitionPendingGoalsMonth = "pending-goals-month"
	PartitionCategories        = "categories"
)

// CompletionPartitions are invalidated whenever a completion is created or undone.
var CompletionPartitions = []string{
	PartitionPendingGoalsMonth,
	PartitionSummaryWeek,
	PartitionPendingGoals,
	PartitionSummaryMonth,
}

// QueryCache holds fetched query results grouped by partition. Each
// partition is an LRU with TTL; a partition is invalidated as a whole.
type QueryCache struct {
	mu         sync.Mutex
	maxEntries int
	ttl        time.Duration
	partitions map[string]*LRUCache[any]
	gens       map[string]uint64
	group      singleflight.Group
	logger     *slog.Logger

	hits, misses, loads uint64
}

type QueryStats struct {
	Partitions int
	Entries    int
	Hits       uint64
	Misses     uint64
	Loads      uint64
}

// NewQueryCache builds a cache holding at most maxEntries results per partition.
func NewQueryCache(maxEntries int, ttl time.Duration, logger *slog.Logger) *QueryCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryCache{
		maxEntries: maxEntries,
		ttl:        ttl,
		partitions: make(map[string]*LRUCache[any]),
		gens:       make(map[string]uint64),
		logger:     logger,
	}
}

func (q *QueryCache) partition(name string) (*LRUCache[any], uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	p, ok := q.partitions[name]
	if !ok {
		p = NewLRUCache[any](q.maxEntries, q.ttl)
		q.partitions[name] = p
	}
	return p, q.gens[name]
}

// storeIfCurrent caches v unless the partition was invalidated after gen.
func (q *QueryCache) storeIfCurrent(p *LRUCache[any], name string, gen uint64, key string, v any) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.gens[name] == gen {
		p.Set(key, v)
	}
}

// Invalidate drops every entry of the named partitions. Loads that started
// before the call do not repopulate the partition.
func (q *QueryCache) Invalidate(_ context.Context, partitions ...string) {
	removed := make(map[string]int, len(partitions))
	q.mu.Lock()
	for _, name := range partitions {
		q.gens[name]++
		if p, ok := q.partitions[name]; ok {
			removed[name] = p.Purge()
		} else {
			removed[name] = 0
		}
	}
	q.mu.Unlock()

	q.logger.Debug("Cache partitions invalidated", "component", "cache", "removed", removed)
}

// CleanExpired implements Cleaner across all partitions.
func (q *QueryCache) CleanExpired() int {
	q.mu.Lock()
	parts := make([]*LRUCache[any], 0, len(q.partitions))
	for _, p := range q.partitions {
		parts = append(parts, p)
	}
	q.mu.Unlock()

	total := 0
	for _, p := range parts {
		total += p.CleanExpired()
	}
	return total
}

// Size returns the number of cached results in a partition.
func (q *QueryCache) Size(partition string) int {
	q.mu.Lock()
	p, ok := q.partitions[partition]
	q.mu.Unlock()
	if !ok {
		return 0
	}
	return p.Size()
}

// Partitions lists the partitions that have been touched, sorted.
func (q *QueryCache) Partitions() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	names := make([]string, 0, len(q.partitions))
	for name := range q.partitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (q *QueryCache) Stats() QueryStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	s := QueryStats{Partitions: len(q.partitions), Hits: q.hits, Misses: q.misses, Loads: q.loads}
	for _, p := range q.partitions {
		s.Entries += p.Size()
	}
	return s
}

func (q *QueryCache) count(hit bool) {
	q.mu.Lock()
	if hit {
		q.hits++
	} else {
		q.misses++
	}
	q.mu.Unlock()
}

// GetOrLoad returns the cached result for key in partition, or runs load
// once for all concurrent callers and caches its result. Errors are not cached.
// A caller whose ctx ends stops waiting; the load carries on for the others.
func GetOrLoad[T any](ctx context.Context, q *QueryCache, partition, key string, load func(context.Context) (T, error)) (T, error) {
	var zero T
	p, gen := q.partition(partition)
	if v, ok := p.Get(key); ok {
		if t, ok := v.(T); ok {
			q.count(true)
			return t, nil
		}
	}
	q.count(false)

	// The load is shared, so it must outlive any single caller.
	loadCtx := context.WithoutCancel(ctx)
	flightKey := fmt.Sprintf("%s|%d|%s", partition, gen, key)
	ch := q.group.DoChan(flightKey, func() (any, error) {
		q.mu.Lock()
		q.loads++
		q.mu.Unlock()

		res, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		q.storeIfCurrent(p, partition, gen, key, res)
		return res, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return zero, r.Err
		}
		return r.Val.(T), nil
	}
}
