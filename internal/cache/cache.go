// Package cache is the keyed store of fetched entity collections. Reads go
// through subscriptions that serve cached data when fresh and coalesce
// concurrent fetches for the same key; writes go through mutations whose
// declared tags mark the affected entries stale and trigger refetches.
//
// A Store is explicitly constructed and passed to its consumers; it holds no
// package-level state, so tests get full isolation.
package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"expensetracker/internal/log"
)

// Status is the lifecycle state of one cache entry.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Snapshot is an immutable view of one entry handed to observers. Data keeps
// the last successful payload even while a refetch is in flight.
type Snapshot struct {
	Key       Key
	Status    Status
	Data      any
	Err       error
	Stale     bool
	FetchedAt time.Time
}

type subscriber struct {
	id     int
	active atomic.Bool
	notify func(Snapshot)
}

type entry struct {
	key       Key
	status    Status
	data      any
	err       error
	stale     bool
	fetchedAt time.Time
	subs      map[int]*subscriber
	// refetch restarts the fetch for this key using the query it was last
	// subscribed with. Must be called with the store mutex held.
	refetch func()
}

func (e *entry) snapshot() Snapshot {
	return Snapshot{
		Key:       e.key,
		Status:    e.status,
		Data:      e.data,
		Err:       e.err,
		Stale:     e.stale,
		FetchedAt: e.fetchedAt,
	}
}

// Store owns every cache entry and the tag index over them. Entries live for
// the session; Dispose ends it.
type Store struct {
	mu      sync.Mutex
	entries map[Key]*entry
	tags    *tagIndex
	nextSub int

	// ctx outlives individual subscribers: a fetch keeps running after its
	// initiator unsubscribes and still populates the entry for others.
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	disposed bool

	log *log.Logger
}

// New creates an empty Store.
func New(logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Store{
		entries: make(map[Key]*entry),
		tags:    newTagIndex(),
		ctx:     ctx,
		cancel:  cancel,
		log:     logger.WithComponent(log.ComponentCache),
	}
}

// Dispose cancels in-flight fetches, drops all entries, and deactivates all
// subscriptions. The Store must not be used afterwards.
func (s *Store) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	s.cancel()
	for _, e := range s.entries {
		for _, sub := range e.subs {
			sub.active.Store(false)
		}
	}
	s.entries = make(map[Key]*entry)
	s.tags = newTagIndex()
	s.mu.Unlock()
	s.wg.Wait()
}

// Reset drops every entry and deactivates every subscription, keeping the
// Store usable. Called on logout so no data leaks into the next session.
func (s *Store) Reset() {
	s.mu.Lock()
	for _, e := range s.entries {
		for _, sub := range e.subs {
			sub.active.Store(false)
		}
	}
	s.entries = make(map[Key]*entry)
	s.tags = newTagIndex()
	s.mu.Unlock()
	s.log.Info("Cache reset")
}

// Query describes a cacheable read endpoint. Tags derives the invalidation
// tags from a successful result; a nil result must still yield the
// collection-level tag so list invalidations reach entries that errored
// before.
type Query[T any] struct {
	Endpoint string
	Fetch    func(ctx context.Context, arg string) (T, error)
	Tags     func(arg string, result T) []Tag
}

// Result is the typed view of a Snapshot.
type Result[T any] struct {
	Status    Status
	Data      T
	Err       error
	Stale     bool
	FetchedAt time.Time
}

func toResult[T any](snap Snapshot) Result[T] {
	res := Result[T]{
		Status:    snap.Status,
		Err:       snap.Err,
		Stale:     snap.Stale,
		FetchedAt: snap.FetchedAt,
	}
	if snap.Data != nil {
		if data, ok := snap.Data.(T); ok {
			res.Data = data
		}
	}
	return res
}

// Subscription is one observer's handle on a cache entry.
type Subscription[T any] struct {
	store *Store
	key   Key
	sub   *subscriber
}

// Current returns the entry's present state.
func (s *Subscription[T]) Current() Result[T] {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	e := s.store.entries[s.key]
	if e == nil {
		return Result[T]{Status: StatusIdle}
	}
	return toResult[T](e.snapshot())
}

// Unsubscribe stops deliveries to this observer. It does not cancel an
// in-flight fetch: the result still lands in the cache for other
// subscribers. A delivery already executing when Unsubscribe is called may
// complete.
func (s *Subscription[T]) Unsubscribe() {
	s.sub.active.Store(false)
	s.store.mu.Lock()
	if e := s.store.entries[s.key]; e != nil {
		delete(e.subs, s.sub.id)
	}
	s.store.mu.Unlock()
}

// Subscribe registers an observer for (q.Endpoint, arg). The observer
// immediately receives the entry's current state and then every state
// change. Subscribing to an idle, errored, or stale entry starts a fetch;
// subscribing while a fetch is in flight joins it instead of issuing
// another network call.
func Subscribe[T any](s *Store, q Query[T], arg string, onChange func(Result[T])) *Subscription[T] {
	key := Key{Endpoint: q.Endpoint, Arg: arg}

	sub := &subscriber{}
	sub.active.Store(true)
	if onChange != nil {
		sub.notify = func(snap Snapshot) { onChange(toResult[T](snap)) }
	}

	s.mu.Lock()
	if s.disposed {
		sub.active.Store(false)
		s.mu.Unlock()
		return &Subscription[T]{store: s, key: key, sub: sub}
	}

	e := s.entries[key]
	if e == nil {
		e = &entry{key: key, status: StatusIdle, subs: make(map[int]*subscriber)}
		s.entries[key] = e
	}
	sub.id = s.nextSub
	s.nextSub++
	e.subs[sub.id] = sub

	fetch := func(ctx context.Context, a string) (any, error) { return q.Fetch(ctx, a) }
	derive := func(a string, data any) []Tag {
		if q.Tags == nil {
			return nil
		}
		var result T
		if data != nil {
			result, _ = data.(T)
		}
		return q.Tags(a, result)
	}
	e.refetch = func() { s.startFetchLocked(e, fetch, derive) }

	// A stale or errored entry must never reach a new subscriber without a
	// refetch at least in flight. Errors are not cached verdicts; each new
	// subscriber gets a fresh attempt.
	if e.status == StatusIdle || e.status == StatusError || e.stale {
		e.refetch()
	}

	snap := e.snapshot()
	s.mu.Unlock()

	s.deliver(snap, sub)
	return &Subscription[T]{store: s, key: key, sub: sub}
}

// startFetchLocked moves the entry to loading and launches the fetch. The
// loading status is what coalesces concurrent reads: a second subscriber
// arriving while the entry is loading joins it instead of fetching again.
// Requires the store mutex; notifies subscribers of the transition.
func (s *Store) startFetchLocked(e *entry, fetch func(context.Context, string) (any, error), derive func(string, any) []Tag) {
	if e.status == StatusLoading {
		return
	}
	e.status = StatusLoading
	key := e.key

	s.log.Debug("Fetch started",
		log.FieldOperation, log.OpFetch,
		log.FieldCacheKey, key.String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		data, err := fetch(s.ctx, key.Arg)

		s.mu.Lock()
		cur := s.entries[key]
		if s.disposed || cur == nil {
			s.mu.Unlock()
			return
		}
		if err != nil {
			cur.status = StatusError
			cur.err = err
			// Even a failed fetch binds the collection-level tags, so a
			// later mutation's invalidation still reaches this entry.
			s.tags.rebind(key, derive(key.Arg, nil))
			s.log.Debug("Fetch failed",
				log.FieldOperation, log.OpFetch,
				log.FieldCacheKey, key.String(),
				log.FieldError, err.Error())
		} else {
			cur.status = StatusSuccess
			cur.err = nil
			cur.data = data
			cur.stale = false
			cur.fetchedAt = time.Now()
			s.tags.rebind(key, derive(key.Arg, data))
			s.log.Debug("Fetch completed",
				log.FieldOperation, log.OpFetch,
				log.FieldCacheKey, key.String())
		}
		snap := cur.snapshot()
		subs := collectSubs(cur)
		s.mu.Unlock()

		s.deliver(snap, subs...)
	}()
}

// Mutation describes a write endpoint: the call itself, the tags it
// invalidates, and an optional success hook. The hook is the one place a
// mutation touches state outside the cache (login populating the credential
// store).
type Mutation[A, R any] struct {
	Endpoint    string
	Do          func(ctx context.Context, arg A) (R, error)
	Invalidates func(arg A) []Tag
	OnSuccess   func(ctx context.Context, arg A, result R) error
}

// Mutate runs the mutation. On failure the cache is untouched and the error
// goes back to the caller. On success the declared tags are invalidated,
// even when the success hook fails, because the server state has already
// changed.
func Mutate[A, R any](ctx context.Context, s *Store, m Mutation[A, R], arg A) (R, error) {
	result, err := m.Do(ctx, arg)
	if err != nil {
		return result, err
	}

	var hookErr error
	if m.OnSuccess != nil {
		hookErr = m.OnSuccess(ctx, arg, result)
		if hookErr != nil {
			s.log.Error("Mutation side effect failed",
				log.FieldOperation, log.OpMutate,
				log.FieldEndpoint, m.Endpoint,
				log.FieldError, hookErr.Error())
		}
	}

	if m.Invalidates != nil {
		s.Invalidate(m.Invalidates(arg))
	}
	return result, hookErr
}

// Invalidate marks every entry whose tags intersect the given set as stale.
// Entries with live subscribers refetch immediately; the rest refetch lazily
// on their next subscribe. Entries are never evicted here.
func (s *Store) Invalidate(tags []Tag) {
	if len(tags) == 0 {
		return
	}

	type delivery struct {
		snap Snapshot
		subs []*subscriber
	}

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	var deliveries []delivery
	for key := range s.tags.keysFor(tags) {
		e := s.entries[key]
		if e == nil {
			continue
		}
		e.stale = true
		if len(e.subs) > 0 && e.status != StatusLoading && e.refetch != nil {
			e.refetch()
		}
		deliveries = append(deliveries, delivery{snap: e.snapshot(), subs: collectSubs(e)})
		s.log.Debug("Entry invalidated",
			log.FieldOperation, log.OpInvalidate,
			log.FieldCacheKey, key.String(),
			log.FieldEntryState, string(e.status))
	}
	s.mu.Unlock()

	for _, d := range deliveries {
		s.deliver(d.snap, d.subs...)
	}
}

func collectSubs(e *entry) []*subscriber {
	subs := make([]*subscriber, 0, len(e.subs))
	for _, sub := range e.subs {
		subs = append(subs, sub)
	}
	return subs
}

// deliver invokes observer callbacks outside the store mutex, skipping any
// observer that has unsubscribed meanwhile.
func (s *Store) deliver(snap Snapshot, subs ...*subscriber) {
	for _, sub := range subs {
		if sub.notify == nil || !sub.active.Load() {
			continue
		}
		sub.notify(snap)
	}
}
