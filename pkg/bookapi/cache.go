package bookapi

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnsubscribed is returned by Result on a released query.
var ErrUnsubscribed = errors.New("bookapi: query unsubscribed")

// Tag labels cached query results. A tag with an empty ID names the whole
// resource type.
type Tag struct {
	Type string
	ID   string
}

const (
	TagBooks  = "Books"
	TagOrders = "Orders"
)

// covers reports whether invalidating t must refresh results tagged other.
// A type-only tag covers every tag of that type.
func (t Tag) covers(other Tag) bool {
	if t.Type != other.Type {
		return false
	}
	return t.ID == "" || t.ID == other.ID
}

func (t Tag) String() string {
	if t.ID == "" {
		return t.Type
	}
	return t.Type + ":" + t.ID
}

// State is the lifecycle of one cached query.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateSuccess
	StateError
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type fetchFunc func(ctx context.Context) (any, error)

type entry struct {
	key     string
	tags    []Tag
	fetch   fetchFunc
	state   State
	value   any
	err     error
	gen     uint64
	done    chan struct{}
	handles map[*handle]struct{}
}

type handle struct {
	entry   *entry
	updates chan State
	closed  bool
}

// Cache holds query results keyed by endpoint and argument, and a
// subscription table from tags to the handles currently reading them.
// Invalidation moves every matching entry back to loading and refetches it.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	subs    map[Tag]map[*handle]struct{}
	baseCtx context.Context
}

// NewCache returns an empty cache. Refetches run under ctx.
func NewCache(ctx context.Context) *Cache {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Cache{
		entries: map[string]*entry{},
		subs:    map[Tag]map[*handle]struct{}{},
		baseCtx: ctx,
	}
}

// subscribe attaches a new handle to the entry for key, creating and
// fetching the entry when nobody holds it yet or its last fetch failed.
func (c *Cache) subscribe(key string, tags []Tag, fetch fetchFunc) *handle {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		e = &entry{
			key:     key,
			tags:    tags,
			fetch:   fetch,
			handles: map[*handle]struct{}{},
		}
		c.entries[key] = e
	}
	h := &handle{entry: e, updates: make(chan State, 1)}
	e.handles[h] = struct{}{}
	for _, tag := range e.tags {
		set, ok := c.subs[tag]
		if !ok {
			set = map[*handle]struct{}{}
			c.subs[tag] = set
		}
		set[h] = struct{}{}
	}
	// An errored entry holds no value, so a new reader retries it.
	if e.state == StateUninitialized || e.state == StateError {
		c.startFetchLocked(e)
	}
	return h
}

func (c *Cache) unsubscribe(h *handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	e := h.entry
	delete(e.handles, h)
	for _, tag := range e.tags {
		if set, ok := c.subs[tag]; ok {
			delete(set, h)
			if len(set) == 0 {
				delete(c.subs, tag)
			}
		}
	}
	close(h.updates)
	if len(e.handles) == 0 && c.entries[e.key] == e {
		delete(c.entries, e.key)
		// Pending results for a dropped entry are discarded.
		e.gen++
	}
}

// Invalidate refetches every subscribed entry carrying a tag covered by one
// of tags. Matching entries are in the loading state when it returns.
func (c *Cache) Invalidate(tags ...Tag) {
	c.mu.Lock()
	defer c.mu.Unlock()

	matched := map[*entry]struct{}{}
	for subTag, handles := range c.subs {
		for _, tag := range tags {
			if !tag.covers(subTag) {
				continue
			}
			for h := range handles {
				matched[h.entry] = struct{}{}
			}
		}
	}
	ordered := make([]*entry, 0, len(matched))
	for e := range matched {
		ordered = append(ordered, e)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].key < ordered[j].key })
	for _, e := range ordered {
		c.startFetchLocked(e)
	}
}

// Len reports how many entries are cached.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) startFetchLocked(e *entry) {
	e.gen++
	gen := e.gen
	done := make(chan struct{})
	e.done = done
	c.setStateLocked(e, StateLoading)

	go func() {
		defer close(done)
		value, err := e.fetch(c.baseCtx)

		c.mu.Lock()
		defer c.mu.Unlock()
		if e.gen != gen {
			return
		}
		if err != nil {
			e.value, e.err = nil, err
			c.setStateLocked(e, StateError)
			return
		}
		e.value, e.err = value, nil
		c.setStateLocked(e, StateSuccess)
	}()
}

func (c *Cache) setStateLocked(e *entry, s State) {
	e.state = s
	for h := range e.handles {
		notify(h.updates, s)
	}
}

// notify delivers s without blocking. A reader that fell behind sees only
// the latest state.
func notify(ch chan State, s State) {
	select {
	case ch <- s:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- s:
	default:
	}
}

type view struct {
	state  State
	value  any
	err    error
	done   chan struct{}
	closed bool
}

func (c *Cache) view(h *handle) view {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := h.entry
	return view{state: e.state, value: e.value, err: e.err, done: e.done, closed: h.closed}
}

// Query is a live handle on one cached result.
type Query[T any] struct {
	cache *Cache
	h     *handle
}

func newQuery[T any](c *Cache, key string, tags []Tag, fetch func(context.Context) (T, error)) *Query[T] {
	h := c.subscribe(key, tags, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	return &Query[T]{cache: c, h: h}
}

// State returns the current lifecycle state.
func (q *Query[T]) State() State {
	return q.cache.view(q.h).state
}

// Result waits for any in-flight fetch and returns the settled value.
func (q *Query[T]) Result(ctx context.Context) (T, error) {
	var zero T
	for {
		v := q.cache.view(q.h)
		if v.closed {
			return zero, ErrUnsubscribed
		}
		switch v.state {
		case StateSuccess:
			out, _ := v.value.(T)
			return out, nil
		case StateError:
			return zero, v.err
		}
		if v.done == nil {
			return zero, fmt.Errorf("query %s: not started", q.h.entry.key)
		}
		select {
		case <-v.done:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// Updates delivers state transitions. It is closed by Unsubscribe.
func (q *Query[T]) Updates() <-chan State {
	return q.h.updates
}

// Unsubscribe releases the handle. The entry is dropped with its last handle.
func (q *Query[T]) Unsubscribe() {
	q.cache.unsubscribe(q.h)
}
