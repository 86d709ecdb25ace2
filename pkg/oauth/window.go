package oauth

import (
	"context"
	"sync"
)

// Window is a popup window opened for the authorization request.
type Window interface {
	// Closed reports whether the window is gone, whoever closed it.
	Closed() bool
	// Close closes the window. It may be called on an already closed window.
	Close()
}

// WindowOpener opens a popup window at the given URL. A nil Window with a
// nil error is treated the same as an error: the popup was not opened.
type WindowOpener interface {
	Open(ctx context.Context, url string) (Window, error)
}

// WindowOpenerFunc adapts a function to WindowOpener.
type WindowOpenerFunc func(ctx context.Context, url string) (Window, error)

// Open implements WindowOpener.
func (f WindowOpenerFunc) Open(ctx context.Context, url string) (Window, error) {
	return f(ctx, url)
}

// MessageHandler receives the raw data of a cross-window message.
type MessageHandler func(data string)

// MessageSource delivers messages posted to the opener. AddListener
// returns a function that removes the listener.
type MessageSource interface {
	AddListener(h MessageHandler) (remove func())
}

// MessageBus is an in-process MessageSource. Messages posted with Post are
// delivered synchronously to every listener registered at that time.
type MessageBus struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners map[uint64]MessageHandler
}

// NewMessageBus creates an empty bus.
func NewMessageBus() *MessageBus {
	return &MessageBus{listeners: make(map[uint64]MessageHandler)}
}

// AddListener implements MessageSource. The returned remove function is
// idempotent.
func (b *MessageBus) AddListener(h MessageHandler) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = h
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.listeners, id)
			b.mu.Unlock()
		})
	}
}

// Post delivers data to the current listeners.
func (b *MessageBus) Post(data string) {
	b.mu.RLock()
	handlers := make([]MessageHandler, 0, len(b.listeners))
	for _, h := range b.listeners {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(data)
	}
}

// Listeners returns the number of registered listeners.
func (b *MessageBus) Listeners() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}

type noWindowOpener struct{}

func (noWindowOpener) Open(context.Context, string) (Window, error) {
	return nil, ErrNoWindowOpener
}
