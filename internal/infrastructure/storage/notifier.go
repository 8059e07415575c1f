package storage

import "sync"

// Broadcaster fans list change notifications out to subscribers. Each
// subscriber channel holds at most one pending signal, so a burst of changes
// collapses into a single wake-up.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[string]map[chan struct{}]struct{}
}

// NewBroadcaster creates an empty broadcaster
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[string]map[chan struct{}]struct{})}
}

// Subscribe registers for changes to listID. The returned func unsubscribes and
// closes the channel; calling it more than once is safe.
func (b *Broadcaster) Subscribe(listID string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	b.mu.Lock()
	if b.subs[listID] == nil {
		b.subs[listID] = make(map[chan struct{}]struct{})
	}
	b.subs[listID][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[listID][ch]; !ok {
				return
			}
			delete(b.subs[listID], ch)
			if len(b.subs[listID]) == 0 {
				delete(b.subs, listID)
			}
			close(ch)
		})
	}
}

// Notify signals every subscriber of listID without blocking
func (b *Broadcaster) Notify(listID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs[listID] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// CloseAll unsubscribes everyone
func (b *Broadcaster) CloseAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for listID, subs := range b.subs {
		for ch := range subs {
			close(ch)
		}
		delete(b.subs, listID)
	}
}
