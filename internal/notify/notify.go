// Package notify carries user-facing toast messages from services to whatever surface renders them.
package notify

import (
	"context"
	"sync"
	"time"
)

// Kind classifies a toast.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// Toast is a short message shown to the visitor.
type Toast struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// Redirect asks the client to navigate after Delay.
type Redirect struct {
	URL   string        `json:"url"`
	Delay time.Duration `json:"-"`
}

// DelayMillis reports Delay in milliseconds for JSON clients.
func (r Redirect) DelayMillis() int64 { return r.Delay.Milliseconds() }

// Notifier receives toasts raised while serving a request.
type Notifier interface {
	Notify(ctx context.Context, toast Toast)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(context.Context, Toast)

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, toast Toast) { f(ctx, toast) }

// Success is shorthand for a success toast.
func Success(ctx context.Context, n Notifier, message string) {
	if n != nil {
		n.Notify(ctx, Toast{Kind: KindSuccess, Message: message})
	}
}

// Error is shorthand for an error toast.
func Error(ctx context.Context, n Notifier, message string) {
	if n != nil {
		n.Notify(ctx, Toast{Kind: KindError, Message: message})
	}
}

// Buffer collects the toasts of a single request.
type Buffer struct {
	mu     sync.Mutex
	toasts []Toast
}

// Drain returns and clears the collected toasts.
func (b *Buffer) Drain() []Toast {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.toasts
	b.toasts = nil
	return out
}

func (b *Buffer) add(t Toast) {
	b.mu.Lock()
	b.toasts = append(b.toasts, t)
	b.mu.Unlock()
}

type bufferKey struct{}

// WithBuffer attaches a fresh Buffer to ctx.
func WithBuffer(ctx context.Context) (context.Context, *Buffer) {
	buf := &Buffer{}
	return context.WithValue(ctx, bufferKey{}, buf), buf
}

// BufferFrom returns the request buffer, if any.
func BufferFrom(ctx context.Context) *Buffer {
	buf, _ := ctx.Value(bufferKey{}).(*Buffer)
	return buf
}

// RequestNotifier appends toasts to the Buffer found on the context. Toasts raised
// outside a request are dropped.
type RequestNotifier struct{}

// Notify implements Notifier.
func (RequestNotifier) Notify(ctx context.Context, toast Toast) {
	if buf := BufferFrom(ctx); buf != nil {
		buf.add(toast)
	}
}
