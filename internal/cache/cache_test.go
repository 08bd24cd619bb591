package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/log"
)

// anyValue is an atomic holder like atomic.Value, except it tolerates
// storing values of differing concrete types (atomic.Value panics on that),
// which the tests need to swap between an error and a slice.
type anyValue struct{ v atomic.Value }

type anyBox struct{ val any }

func (a *anyValue) Store(v any) { a.v.Store(anyBox{val: v}) }

func (a *anyValue) Load() any {
	b, _ := a.v.Load().(anyBox)
	return b.val
}

// listQuery builds a query whose fetch returns the value behind data and
// counts its calls. gate, when non-nil, blocks the fetch until closed.
func listQuery(name string, data *anyValue, calls *atomic.Int64, gate chan struct{}) Query[[]int64] {
	return Query[[]int64]{
		Endpoint: name,
		Fetch: func(ctx context.Context, _ string) ([]int64, error) {
			calls.Add(1)
			if gate != nil {
				select {
				case <-gate:
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
			v := data.Load()
			if err, ok := v.(error); ok {
				return nil, err
			}
			return v.([]int64), nil
		},
		Tags: func(_ string, result []int64) []Tag {
			tags := make([]Tag, 0, len(result)+1)
			for _, id := range result {
				tags = append(tags, EntityTag("Items", id))
			}
			return append(tags, ListTag("Items"))
		},
	}
}

func collect(buf int) (func(Result[[]int64]), chan Result[[]int64]) {
	ch := make(chan Result[[]int64], buf)
	return func(r Result[[]int64]) { ch <- r }, ch
}

func waitFor(t *testing.T, ch chan Result[[]int64], want Status) Result[[]int64] {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case r := <-ch:
			if r.Status == want {
				return r
			}
		case <-deadline:
			t.Fatalf("timed out waiting for status %s", want)
		}
	}
}

func TestConcurrentSubscribersShareOneFetch(t *testing.T) {
	store := New(log.Discard())
	defer store.Dispose()

	var data anyValue
	data.Store([]int64{1, 2})
	var calls atomic.Int64
	gate := make(chan struct{})
	q := listQuery("getItems", &data, &calls, gate)

	onA, chA := collect(8)
	onB, chB := collect(8)
	subA := Subscribe(store, q, "", onA)
	subB := Subscribe(store, q, "", onB)
	defer subA.Unsubscribe()
	defer subB.Unsubscribe()

	close(gate)

	resA := waitFor(t, chA, StatusSuccess)
	resB := waitFor(t, chB, StatusSuccess)
	assert.Equal(t, []int64{1, 2}, resA.Data)
	assert.Equal(t, []int64{1, 2}, resB.Data)
	assert.Equal(t, int64(1), calls.Load(), "both subscribers must share one network call")
}

func TestFreshEntryServedWithoutRefetch(t *testing.T) {
	store := New(log.Discard())
	defer store.Dispose()

	var data anyValue
	data.Store([]int64{1})
	var calls atomic.Int64
	q := listQuery("getItems", &data, &calls, nil)

	on, ch := collect(8)
	sub := Subscribe(store, q, "", on)
	waitFor(t, ch, StatusSuccess)
	sub.Unsubscribe()

	// No invalidation happened, so a later subscriber reads the cache.
	on2, ch2 := collect(8)
	sub2 := Subscribe(store, q, "", on2)
	defer sub2.Unsubscribe()
	res := waitFor(t, ch2, StatusSuccess)

	assert.Equal(t, []int64{1}, res.Data)
	assert.Equal(t, int64(1), calls.Load())
}

func TestInvalidationRefetchesSubscribedEntry(t *testing.T) {
	store := New(log.Discard())
	defer store.Dispose()

	var data anyValue
	data.Store([]int64{1})
	var calls atomic.Int64
	q := listQuery("getItems", &data, &calls, nil)

	on, ch := collect(16)
	sub := Subscribe(store, q, "", on)
	defer sub.Unsubscribe()
	waitFor(t, ch, StatusSuccess)

	data.Store([]int64{1, 2})
	store.Invalidate([]Tag{ListTag("Items")})

	for {
		res := waitFor(t, ch, StatusSuccess)
		if !res.Stale {
			assert.Equal(t, []int64{1, 2}, res.Data)
			break
		}
	}
	assert.Equal(t, int64(2), calls.Load())
}

func TestStaleEntryRefetchedForNewSubscriber(t *testing.T) {
	store := New(log.Discard())
	defer store.Dispose()

	var data anyValue
	data.Store([]int64{1})
	var calls atomic.Int64
	q := listQuery("getItems", &data, &calls, nil)

	on, ch := collect(8)
	Subscribe(store, q, "", on).Unsubscribe()
	// The entry has no subscribers now, but waitFor above may race the
	// fetch; wait via a fresh probe.
	onProbe, chProbe := collect(8)
	probe := Subscribe(store, q, "", onProbe)
	waitFor(t, chProbe, StatusSuccess)
	probe.Unsubscribe()
	drain(ch)

	// Invalidate with nobody subscribed: refetch must be lazy.
	before := calls.Load()
	data.Store([]int64{1, 2})
	store.Invalidate([]Tag{ListTag("Items")})
	assert.Equal(t, before, calls.Load(), "no subscriber, no eager refetch")

	// A new subscriber must not see the stale entry as fresh.
	on2, ch2 := collect(8)
	sub2 := Subscribe(store, q, "", on2)
	defer sub2.Unsubscribe()

	first := <-ch2
	if first.Status == StatusSuccess {
		assert.True(t, first.Stale, "stale data must be flagged while the refetch runs")
	}
	res := waitFor(t, ch2, StatusSuccess)
	for res.Stale {
		res = waitFor(t, ch2, StatusSuccess)
	}
	assert.Equal(t, []int64{1, 2}, res.Data)
	assert.Greater(t, calls.Load(), before, "new subscriber must trigger the refetch")
}

func drain(ch chan Result[[]int64]) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

func TestErroredEntryRecoversViaInvalidation(t *testing.T) {
	store := New(log.Discard())
	defer store.Dispose()

	var data anyValue
	data.Store(errors.New("backend down"))
	var calls atomic.Int64
	q := listQuery("getItems", &data, &calls, nil)

	// First reader hits the outage and sees the error.
	on, ch := collect(8)
	sub := Subscribe(store, q, "", on)
	waitFor(t, ch, StatusError)
	sub.Unsubscribe()

	// The backend recovers and a mutation invalidates the list. The failed
	// fetch still bound the collection tag, so the invalidation lands.
	data.Store([]int64{5})
	store.Invalidate([]Tag{ListTag("Items")})

	on2, ch2 := collect(8)
	sub2 := Subscribe(store, q, "", on2)
	defer sub2.Unsubscribe()

	res := waitFor(t, ch2, StatusSuccess)
	for res.Stale {
		res = waitFor(t, ch2, StatusSuccess)
	}
	assert.Equal(t, []int64{5}, res.Data)
	assert.NoError(t, res.Err)
	assert.Equal(t, int64(2), calls.Load(), "invalidation must reach the errored entry")
}

func TestNewSubscriberRetriesErroredEntry(t *testing.T) {
	store := New(log.Discard())
	defer store.Dispose()

	var data anyValue
	data.Store(errors.New("backend down"))
	var calls atomic.Int64
	q := listQuery("getItems", &data, &calls, nil)

	on, ch := collect(8)
	sub := Subscribe(store, q, "", on)
	waitFor(t, ch, StatusError)
	sub.Unsubscribe()

	// No invalidation happened, but an error is not a cached verdict: the
	// next subscriber gets a fresh attempt.
	data.Store([]int64{7})
	on2, ch2 := collect(8)
	sub2 := Subscribe(store, q, "", on2)
	defer sub2.Unsubscribe()

	res := waitFor(t, ch2, StatusSuccess)
	assert.Equal(t, []int64{7}, res.Data)
	assert.Equal(t, int64(2), calls.Load())
}

func TestFetchErrorIsolatedPerKey(t *testing.T) {
	store := New(log.Discard())
	defer store.Dispose()

	var bad anyValue
	bad.Store(errors.New("boom"))
	var good anyValue
	good.Store([]int64{7})
	var calls atomic.Int64

	onBad, chBad := collect(8)
	onGood, chGood := collect(8)
	subBad := Subscribe(store, listQuery("getBad", &bad, &calls, nil), "", onBad)
	subGood := Subscribe(store, listQuery("getGood", &good, &calls, nil), "", onGood)
	defer subBad.Unsubscribe()
	defer subGood.Unsubscribe()

	resBad := waitFor(t, chBad, StatusError)
	require.Error(t, resBad.Err)

	resGood := waitFor(t, chGood, StatusSuccess)
	assert.Equal(t, []int64{7}, resGood.Data)
	assert.NoError(t, resGood.Err)
}

func TestUnsubscribedObserverReceivesNothing(t *testing.T) {
	store := New(log.Discard())
	defer store.Dispose()

	var data anyValue
	data.Store([]int64{1})
	var calls atomic.Int64
	q := listQuery("getItems", &data, &calls, nil)

	on, ch := collect(8)
	sub := Subscribe(store, q, "", on)
	waitFor(t, ch, StatusSuccess)

	sub.Unsubscribe()
	drain(ch)

	store.Invalidate([]Tag{ListTag("Items")})
	// Another subscriber keeps the entry busy so state changes do occur.
	on2, ch2 := collect(8)
	sub2 := Subscribe(store, q, "", on2)
	defer sub2.Unsubscribe()
	waitFor(t, ch2, StatusSuccess)

	select {
	case r := <-ch:
		t.Fatalf("unsubscribed observer got %v", r.Status)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMutationFailureLeavesCacheUntouched(t *testing.T) {
	store := New(log.Discard())
	defer store.Dispose()

	var data anyValue
	data.Store([]int64{1})
	var calls atomic.Int64
	q := listQuery("getItems", &data, &calls, nil)

	on, ch := collect(8)
	sub := Subscribe(store, q, "", on)
	defer sub.Unsubscribe()
	waitFor(t, ch, StatusSuccess)

	m := Mutation[int64, struct{}]{
		Endpoint: "deleteItem",
		Do: func(context.Context, int64) (struct{}, error) {
			return struct{}{}, errors.New("denied")
		},
		Invalidates: func(int64) []Tag { return []Tag{ListTag("Items")} },
	}
	_, err := Mutate(context.Background(), store, m, 1)
	require.Error(t, err)

	assert.Equal(t, int64(1), calls.Load(), "failed mutation must not invalidate")
	cur := sub.Current()
	assert.Equal(t, StatusSuccess, cur.Status)
	assert.False(t, cur.Stale)
}

func TestMutationSuccessRunsHookThenInvalidates(t *testing.T) {
	store := New(log.Discard())
	defer store.Dispose()

	var data anyValue
	data.Store([]int64{1})
	var calls atomic.Int64
	q := listQuery("getItems", &data, &calls, nil)

	on, ch := collect(16)
	sub := Subscribe(store, q, "", on)
	defer sub.Unsubscribe()
	waitFor(t, ch, StatusSuccess)

	var hooked atomic.Bool
	m := Mutation[int64, int64]{
		Endpoint: "createItem",
		Do: func(_ context.Context, arg int64) (int64, error) {
			return arg, nil
		},
		OnSuccess: func(_ context.Context, _ int64, result int64) error {
			hooked.Store(true)
			return nil
		},
		Invalidates: func(int64) []Tag { return []Tag{ListTag("Items")} },
	}

	data.Store([]int64{1, 9})
	res, err := Mutate(context.Background(), store, m, 9)
	require.NoError(t, err)
	assert.Equal(t, int64(9), res)
	assert.True(t, hooked.Load())

	for {
		r := waitFor(t, ch, StatusSuccess)
		if !r.Stale {
			assert.Equal(t, []int64{1, 9}, r.Data)
			break
		}
	}
}

func TestDisposeStopsDeliveries(t *testing.T) {
	store := New(log.Discard())

	var data anyValue
	data.Store([]int64{1})
	var calls atomic.Int64
	gate := make(chan struct{})
	q := listQuery("getItems", &data, &calls, gate)

	on, ch := collect(8)
	Subscribe(store, q, "", on)

	store.Dispose()
	close(gate)
	store.Dispose() // idempotent

	select {
	case r := <-ch:
		// The initial snapshot may have been delivered before Dispose;
		// anything after it must not be a settled fetch result.
		assert.NotEqual(t, StatusSuccess, r.Status)
	case <-time.After(100 * time.Millisecond):
	}
}
