package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/amirasaad/finboard/pkg/eventbus"
)

type subscription struct {
	id      uint64
	handler eventbus.HandlerFunc
}

// MemoryEventBus dispatches events synchronously to in-process handlers.
type MemoryEventBus struct {
	mu       sync.RWMutex
	handlers map[string][]subscription
	nextID   uint64
	logger   *slog.Logger
}

// NewWithMemory creates a new in-memory event bus.
func NewWithMemory(logger *slog.Logger) *MemoryEventBus {
	return &MemoryEventBus{
		handlers: make(map[string][]subscription),
		logger:   logger.With("bus", "memory"),
	}
}

// Register subscribes handler to eventType.
func (b *MemoryEventBus) Register(eventType string, handler eventbus.HandlerFunc) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.handlers[eventType] = append(b.handlers[eventType], subscription{id: id, handler: handler})

	var once sync.Once
	return func() {
		once.Do(func() { b.unregister(eventType, id) })
	}
}

func (b *MemoryEventBus) unregister(eventType string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.handlers[eventType]
	for i, s := range subs {
		if s.id == id {
			b.handlers[eventType] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.handlers[eventType]) == 0 {
		delete(b.handlers, eventType)
	}
}

// Emit runs every handler registered for the event type in registration
// order. Handler errors and panics are collected and returned together;
// one failing handler does not stop the others.
func (b *MemoryEventBus) Emit(ctx context.Context, event eventbus.Event) error {
	return b.dispatch(ctx, event)
}

func (b *MemoryEventBus) dispatch(ctx context.Context, event eventbus.Event) error {
	b.mu.RLock()
	subs := append([]subscription(nil), b.handlers[event.Type()]...)
	b.mu.RUnlock()

	var errs []error
	for _, s := range subs {
		if err := b.invoke(ctx, s.handler, event); err != nil {
			b.logger.Error("failed to process event", "type", event.Type(), "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *MemoryEventBus) invoke(ctx context.Context, h eventbus.HandlerFunc, event eventbus.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, event)
}

// Handlers reports how many handlers are registered for eventType.
func (b *MemoryEventBus) Handlers(eventType string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[eventType])
}

var _ eventbus.Bus = (*MemoryEventBus)(nil)
