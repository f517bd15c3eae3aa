package tally

import (
	"context"
	"time"

	"github.com/zoobzio/capitan"
)

// DefaultToastDuration is how long a toast stays visible before
// auto-dismissing.
const DefaultToastDuration = 5000 * time.Millisecond

// ToastKind distinguishes success and error toasts.
type ToastKind string

const (
	// ToastSuccess marks a toast reporting a completed action.
	ToastSuccess ToastKind = "success"

	// ToastError marks a toast reporting a failed action.
	ToastError ToastKind = "error"
)

// Toast is a transient notification. At most one toast is visible at a time;
// setting a new one replaces the previous toast and cancels its dismissal
// timer.
type Toast struct {
	Kind    ToastKind
	Message string
}

// DismissToast removes the visible toast, if any, and cancels its pending
// auto-dismissal.
func (b *Board) DismissToast() {
	b.mu.Lock()
	if b.view.Toast == nil {
		b.mu.Unlock()
		return
	}
	b.clearToastLocked()
	snap, subs := b.snapshotLocked()
	b.mu.Unlock()

	notify(subs, snap)
	capitan.Emit(context.Background(), ToastDismissed)
}

// setToast replaces the visible toast and schedules its auto-dismissal on
// the board's clock. The AfterFunc callback needs no waiting goroutine; a
// replaced toast's timer is stopped, and a stale callback that fires anyway
// is ignored via the generation counter.
func (b *Board) setToast(ctx context.Context, kind ToastKind, message string) {
	b.mu.Lock()
	b.clearToastLocked()
	b.view.Toast = &Toast{Kind: kind, Message: message}
	gen := b.toastGen
	b.toastTimer = b.clock.AfterFunc(b.toastDuration, func() {
		b.expireToast(gen)
	})
	snap, subs := b.snapshotLocked()
	b.mu.Unlock()

	notify(subs, snap)
	capitan.Emit(ctx, ToastShown,
		KeyToastKind.Field(string(kind)),
	)
}

// expireToast clears the toast when its timer fires, unless the toast has
// been replaced or dismissed since the timer was armed.
func (b *Board) expireToast(gen uint64) {
	b.mu.Lock()
	if b.toastGen != gen || b.view.Toast == nil {
		b.mu.Unlock()
		return
	}
	b.view.Toast = nil
	b.toastTimer = nil
	snap, subs := b.snapshotLocked()
	b.mu.Unlock()

	notify(subs, snap)
	capitan.Emit(context.Background(), ToastDismissed)
}

// clearToastLocked removes the toast and invalidates its timer.
// Caller must hold b.mu.
func (b *Board) clearToastLocked() {
	if b.toastTimer != nil {
		b.toastTimer.Stop()
		b.toastTimer = nil
	}
	b.toastGen++
	b.view.Toast = nil
}
