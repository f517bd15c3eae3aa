package tally

import "github.com/zoobzio/capitan"

// Board lifecycle signals.
var (
	// BoardStarted is emitted when a Board begins its initial load.
	BoardStarted = capitan.NewSignal(
		"tally.board.started",
		"Board started",
	)

	// BoardStopped is emitted when a Board's feed loop exits.
	BoardStopped = capitan.NewSignal(
		"tally.board.stopped",
		"Board feed loop stopped",
	)

	// FeedChangeReceived is emitted for every event received from the feed.
	FeedChangeReceived = capitan.NewSignal(
		"tally.feed.change.received",
		"Change received from feed",
	)
)

// Refresh signals.
var (
	// RefreshStarted is emitted when a refresh begins.
	RefreshStarted = capitan.NewSignal(
		"tally.refresh.started",
		"Snapshot refresh started",
	)

	// RefreshApplied is emitted when a refresh replaces the snapshot.
	RefreshApplied = capitan.NewSignal(
		"tally.refresh.applied",
		"Snapshot refresh applied",
	)

	// RefreshFailed is emitted when a refresh fails and the prior
	// snapshot is retained.
	RefreshFailed = capitan.NewSignal(
		"tally.refresh.failed",
		"Snapshot refresh failed",
	)
)

// Action signals.
var (
	// ActionSucceeded is emitted when a user-triggered action completes.
	ActionSucceeded = capitan.NewSignal(
		"tally.action.succeeded",
		"Action completed",
	)

	// ActionFailed is emitted when a user-triggered action fails.
	ActionFailed = capitan.NewSignal(
		"tally.action.failed",
		"Action failed",
	)

	// ToastShown is emitted when a toast is set.
	ToastShown = capitan.NewSignal(
		"tally.toast.shown",
		"Toast shown",
	)

	// ToastDismissed is emitted when a toast is dismissed or expires.
	ToastDismissed = capitan.NewSignal(
		"tally.toast.dismissed",
		"Toast dismissed",
	)
)
