/*
Package tally keeps a client-side view of billing data synchronized with a
remote API and a realtime change feed.

The core type is Board, which owns the canonical in-memory snapshot of
customers and billing KPIs, refreshes it against the API, and applies the
result of user-triggered actions (bank sync, accounting export, customer
create/update/delete) back into the snapshot. A Board can additionally consume
a change feed so the view converges after records change out-of-band.

# Board

A Board coordinates three inputs over one snapshot:

	user action  \
	feed change   >--> Board --> Client (HTTP) --> snapshot --> subscribers
	initial load /

Every action category carries its own busy gate (loading, syncing, exporting,
submitting, deleting). Re-invoking an action while its gate is held is a
no-op; unrelated actions may overlap freely. Gates are cooperative, not
locks: they prevent duplicate requests, not interleaving.

Refreshes fetch the customer list and the KPI snapshot concurrently and apply
them atomically. If either fetch fails the snapshot is left untouched, so
subscribers always observe a consistent (possibly stale) view.

# Feeds

The Feed interface abstracts realtime change sources. The core package
provides ChannelFeed for testing and custom sources. Integrations live in
pkg/:

  - pkg/postgres: LISTEN/NOTIFY on the watched tables
  - pkg/nats: subject-per-table subscriptions

A Board built without a feed runs in pull-only mode. Feed events carry no
payload contract beyond "something changed"; the Board responds with a silent
refresh, coalescing rapid events through a debounce window.

# Example

	client := tally.NewClient("https://billing.internal/api", tally.WithAPIKey(key))

	board := tally.NewBoard(client, feed).
	    ToastDuration(5 * time.Second)

	unsubscribe := board.Subscribe(func(s tally.ViewState) {
	    render(s)
	})
	defer unsubscribe()

	if err := board.Start(ctx); err != nil {
	    log.Printf("initial load failed: %v", err)
	}
*/
package tally
