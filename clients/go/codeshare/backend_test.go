package codeshare

import (
	"encoding/json"
	"strings"
	"sync"
)

// fakeBackend is an in-memory Backend with the same observable semantics
// as the server: subscriptions are pushed the current value immediately,
// every write is echoed to all subscribers of the written path, and writes
// under an images collection are surfaced as fresh snapshots of the whole
// collection.
type fakeBackend struct {
	mu     sync.Mutex
	values map[string]json.RawMessage
	subs   map[string]map[int]fakeSub
	nextID int

	writes   []string
	writeErr error
}

type fakeSub struct {
	fn      func(json.RawMessage)
	onError func(error)
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		values: make(map[string]json.RawMessage),
		subs:   make(map[string]map[int]fakeSub),
	}
}

func (b *fakeBackend) Write(path string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	b.mu.Lock()
	if b.writeErr != nil {
		err := b.writeErr
		b.mu.Unlock()
		return err
	}
	b.values[path] = data
	b.writes = append(b.writes, path)
	fns := b.collectLocked(path)
	b.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	return nil
}

func (b *fakeBackend) Delete(path string) error {
	b.mu.Lock()
	delete(b.values, path)
	fns := b.collectLocked(path)
	b.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	return nil
}

func (b *fakeBackend) Subscribe(path string, fn func(json.RawMessage), onError func(error)) (func(), error) {
	b.mu.Lock()
	if b.subs[path] == nil {
		b.subs[path] = make(map[int]fakeSub)
	}
	id := b.nextID
	b.nextID++
	b.subs[path][id] = fakeSub{fn: fn, onError: onError}
	snap := b.snapshotLocked(path)
	b.mu.Unlock()

	fn(snap)
	return func() {
		b.mu.Lock()
		delete(b.subs[path], id)
		b.mu.Unlock()
	}, nil
}

// collectLocked gathers the deferred snapshot deliveries a change to path
// triggers: the path's own subscribers plus, for image leaves, subscribers
// of the parent collection.
func (b *fakeBackend) collectLocked(path string) []func() {
	var fns []func()
	notify := func(target string) {
		snap := b.snapshotLocked(target)
		for _, sub := range b.subs[target] {
			fn := sub.fn
			fns = append(fns, func() { fn(snap) })
		}
	}
	notify(path)
	if idx := strings.LastIndex(path, "/images/"); idx >= 0 {
		notify(path[:idx+len("/images")])
	}
	return fns
}

func (b *fakeBackend) snapshotLocked(path string) json.RawMessage {
	if v, ok := b.values[path]; ok {
		return v
	}
	// Collection paths are assembled from their leaves.
	prefix := path + "/"
	children := make(map[string]json.RawMessage)
	for p, v := range b.values {
		if strings.HasPrefix(p, prefix) && !strings.Contains(p[len(prefix):], "/") {
			children[p[len(prefix):]] = v
		}
	}
	if len(children) == 0 {
		return json.RawMessage("null")
	}
	data, _ := json.Marshal(children)
	return data
}

// push injects a raw snapshot at a path, as if another writer changed it.
func (b *fakeBackend) push(path string, raw string) {
	b.mu.Lock()
	b.values[path] = json.RawMessage(raw)
	fns := b.collectLocked(path)
	b.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// breakSubscriptions fires every registered error callback.
func (b *fakeBackend) breakSubscriptions(err error) {
	b.mu.Lock()
	var fns []func(error)
	for _, subs := range b.subs {
		for _, sub := range subs {
			if sub.onError != nil {
				fns = append(fns, sub.onError)
			}
		}
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(err)
	}
}

func (b *fakeBackend) writeCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.writes)
}

func (b *fakeBackend) value(path string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.values[path])
}
