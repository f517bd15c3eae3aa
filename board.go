package tally

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/pipz"
	"golang.org/x/sync/errgroup"
)

// DefaultDebounce is the default debounce window for feed changes. Rapid
// events within the window coalesce into a single silent refresh.
const DefaultDebounce = 100 * time.Millisecond

// Action categories, used in signals and metrics.
const (
	actionRefresh = "refresh"
	actionSync    = "sync"
	actionExport  = "export"
	actionSubmit  = "submit"
	actionDelete  = "delete"
)

// ViewState is the board's canonical snapshot as seen by subscribers.
// Customers and KPIs are always replaced together from one coordinated
// fetch; a failed refresh leaves both untouched.
type ViewState struct {
	// Customers is the cached customer list, in server order.
	Customers []Customer

	// KPIs is the latest aggregate snapshot, nil before the first
	// successful refresh.
	KPIs *KPISnapshot

	// Busy gates, one per action category. Each is an independent
	// cooperative mutual-exclusion gate: re-invoking an action while its
	// gate is held is a no-op, unrelated actions may overlap.
	Loading    bool
	Syncing    bool
	Exporting  bool
	Submitting bool

	// DeletingID is the customer whose delete request is in flight, or
	// empty when none is.
	DeletingID string

	// Err is the page-level error banner, set by refresh and export
	// failures and cleared on the next refresh attempt.
	Err string

	// Toast is the visible transient notification, if any.
	Toast *Toast
}

// clone returns a snapshot safe to hand outside the lock.
func (v *ViewState) clone() ViewState {
	out := *v
	out.Customers = append([]Customer(nil), v.Customers...)
	if v.KPIs != nil {
		k := *v.KPIs
		out.KPIs = &k
	}
	if v.Toast != nil {
		t := *v.Toast
		out.Toast = &t
	}
	return out
}

// Board owns the in-memory snapshot of customers and KPIs and reconciles it
// against the API. User actions and feed changes funnel through it; every
// mutation notifies subscribers with a fresh immutable snapshot.
type Board struct {
	client        *Client
	feed          Feed
	pipeline      pipz.Chainable[*Change]
	clock         clockz.Clock
	debounce      time.Duration
	toastDuration time.Duration
	saver         Saver
	metrics       MetricsProvider
	onStop        func()
	syncMode      bool

	lastError    atomic.Pointer[error]
	errorHistory *errorRing

	mu         sync.Mutex
	view       ViewState
	subs       map[int]func(ViewState)
	nextSub    int
	toastGen   uint64
	toastTimer clockz.Timer
	started    bool

	// For sync mode: channel to receive feed changes
	changes <-chan Change
}

// NewBoard creates a Board over the given API client and feed. A nil feed
// runs the board pull-only (equivalent to NoFeed()).
//
// Pipeline options configure the feed-change path. Instance configuration
// uses chainable methods before calling Start():
//
//	board := tally.NewBoard(client, feed,
//	    tally.WithFeedFilter(func(c tally.Change) bool {
//	        return c.Table != "audit_log"
//	    }),
//	).Debounce(200 * time.Millisecond)
func NewBoard(client *Client, feed Feed, opts ...Option) *Board {
	if feed == nil {
		feed = NoFeed()
	}

	b := &Board{
		client:        client,
		feed:          feed,
		clock:         clockz.RealClock,
		debounce:      DefaultDebounce,
		toastDuration: DefaultToastDuration,
		saver:         DirSaver{},
		errorHistory:  newErrorRing(0),
		subs:          make(map[int]func(ViewState)),
	}
	b.view.Loading = true

	terminal := pipz.Effect(refreshID, func(ctx context.Context, _ *Change) error {
		return b.Refresh(ctx, false)
	})
	b.pipeline = buildPipeline(terminal, opts)

	return b
}

// -----------------------------------------------------------------------------
// Chainable Instance Configuration
// -----------------------------------------------------------------------------

// Clock sets a custom clock for time operations.
// Use this with clockz.FakeClock for deterministic timer testing.
// Must be called before Start().
func (b *Board) Clock(clock clockz.Clock) *Board {
	b.clock = clock
	return b
}

// Debounce sets the debounce window for feed changes. Changes arriving
// within this window coalesce into a single refresh.
// Default: 100ms. Must be called before Start().
func (b *Board) Debounce(d time.Duration) *Board {
	b.debounce = d
	return b
}

// ToastDuration sets how long toasts stay visible before auto-dismissing.
// Default: 5s. Must be called before Start().
func (b *Board) ToastDuration(d time.Duration) *Board {
	b.toastDuration = d
	return b
}

// Saver sets the destination for accounting exports.
// Default: DirSaver in the current directory. Must be called before Start().
func (b *Board) Saver(s Saver) *Board {
	b.saver = s
	return b
}

// Metrics sets a metrics provider for observability integration.
// Must be called before Start().
func (b *Board) Metrics(provider MetricsProvider) *Board {
	b.metrics = provider
	return b
}

// OnStop sets a callback invoked when the board's feed loop exits. Useful
// for shutdown sequencing. Must be called before Start().
func (b *Board) OnStop(fn func()) *Board {
	b.onStop = fn
	return b
}

// ErrorHistorySize sets the number of recent action failures to retain.
// Use 0 (default) to only retain the most recent via LastError().
// Must be called before Start().
func (b *Board) ErrorHistorySize(n int) *Board {
	b.errorHistory = newErrorRing(n)
	return b
}

// SyncMode disables the feed goroutine for deterministic testing. Feed
// changes are processed manually via ProcessChange(). Must be called before
// Start().
func (b *Board) SyncMode() *Board {
	b.syncMode = true
	return b
}

// -----------------------------------------------------------------------------
// Observation
// -----------------------------------------------------------------------------

// State returns an immutable snapshot of the current view.
func (b *Board) State() ViewState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.view.clone()
}

// Subscribe registers an observer that receives a snapshot after every
// mutation. The returned function unsubscribes it. Observers are invoked
// outside the board's lock and may call back into the board.
func (b *Board) Subscribe(fn func(ViewState)) func() {
	b.mu.Lock()
	id := b.nextSub
	b.nextSub++
	b.subs[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// LastError returns the most recent action failure, or nil.
func (b *Board) LastError() error {
	ptr := b.lastError.Load()
	if ptr == nil {
		return nil
	}
	return *ptr
}

// ErrorHistory returns recent action failures, oldest first.
// Returns nil unless enabled via ErrorHistorySize.
func (b *Board) ErrorHistory() []error {
	return b.errorHistory.all()
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Start performs the initial load and begins consuming the feed. It blocks
// until the initial refresh settles, then continues asynchronously.
//
// If the initial refresh fails, Start returns the error but the board stays
// usable: the feed keeps being consumed and later refreshes can recover.
//
// In sync mode, Start only performs the initial refresh. Use ProcessChange()
// to manually process feed changes.
//
// Start can only be called once. Subsequent calls return an error.
func (b *Board) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return fmt.Errorf("board already started")
	}
	b.started = true
	b.mu.Unlock()

	capitan.Emit(ctx, BoardStarted,
		KeyDebounce.Field(b.debounce),
	)

	changes, err := b.feed.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to start feed: %w", err)
	}

	initialErr := b.Refresh(ctx, true)

	if b.syncMode {
		b.changes = changes
		return initialErr
	}

	go b.watch(ctx, changes)

	return initialErr
}

// ProcessChange reads and processes the next feed change. Only available in
// sync mode, for deterministic testing. Returns false if no change is
// pending or the channel is closed.
func (b *Board) ProcessChange(ctx context.Context) bool {
	if !b.syncMode {
		return false
	}

	select {
	case ev, ok := <-b.changes:
		if !ok {
			return false
		}
		b.handleChange(ctx, ev)
		return true
	default:
		return false
	}
}

// watch consumes feed changes with debounce coalescing. Multiple rapid
// events collapse into one silent refresh; the contract only promises that
// at least one refresh follows.
func (b *Board) watch(ctx context.Context, changes <-chan Change) {
	defer func() {
		capitan.Emit(ctx, BoardStopped)
		if b.onStop != nil {
			b.onStop()
		}
	}()

	var (
		timer      clockz.Timer
		pending    Change
		hasPending bool
	)

	for {
		var timerC <-chan time.Time
		if timer != nil {
			timerC = timer.C()
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case ev, ok := <-changes:
			if !ok {
				// Feed dropped; flush any pending change before exiting.
				if hasPending {
					b.handleChange(ctx, pending)
				}
				return
			}

			capitan.Emit(ctx, FeedChangeReceived,
				KeyTable.Field(ev.Table),
			)
			if b.metrics != nil {
				b.metrics.OnChangeReceived()
			}
			pending = ev
			hasPending = true

			if timer == nil {
				timer = b.clock.NewTimer(b.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C():
					default:
					}
				}
				timer.Reset(b.debounce)
			}

		case <-timerC:
			if hasPending {
				b.handleChange(ctx, pending)
				hasPending = false
			}
		}
	}
}

// handleChange runs one feed change through the options pipeline, whose
// terminal triggers a silent refresh.
func (b *Board) handleChange(ctx context.Context, ev Change) {
	// Refresh failures are already recorded on the board.
	_, _ = b.pipeline.Process(ctx, &ev)
}

// -----------------------------------------------------------------------------
// Operations
// -----------------------------------------------------------------------------

// Refresh reconciles the snapshot against the server. The customer list and
// KPI fetch run concurrently; both must succeed before the snapshot is
// replaced, atomically. On any failure the prior snapshot is retained and
// the page error is set.
//
// Refresh carries no busy gate. A user-triggered refresh and a feed-triggered
// one may overlap; the last response to settle wins the snapshot.
func (b *Board) Refresh(ctx context.Context, showLoading bool) error {
	start := b.clock.Now()
	capitan.Emit(ctx, RefreshStarted,
		KeyAction.Field(actionRefresh),
	)

	b.mutate(func(v *ViewState) {
		v.Err = ""
		if showLoading {
			v.Loading = true
		}
	})

	var (
		customers []Customer
		kpis      KPISnapshot
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		customers, err = b.client.ListCustomers(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		kpis, err = b.client.FetchKPIs(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		b.setError(err)
		b.mutate(func(v *ViewState) {
			v.Err = err.Error()
			if showLoading {
				v.Loading = false
			}
		})
		capitan.Emit(ctx, RefreshFailed,
			KeyError.Field(err.Error()),
		)
		if b.metrics != nil {
			b.metrics.OnRefreshFailure(b.clock.Since(start))
		}
		return err
	}

	b.mutate(func(v *ViewState) {
		v.Customers = customers
		k := kpis
		v.KPIs = &k
		if showLoading {
			v.Loading = false
		}
	})
	capitan.Emit(ctx, RefreshApplied,
		KeyCustomers.Field(len(customers)),
	)
	if b.metrics != nil {
		b.metrics.OnRefreshSuccess(b.clock.Since(start))
	}
	return nil
}

// Sync triggers bank statement reconciliation. No-op while a sync is
// already in flight. On success it shows a summary toast and performs a
// full refresh; on failure it shows an error toast and does not refresh.
func (b *Board) Sync(ctx context.Context) error {
	b.mu.Lock()
	if b.view.Syncing {
		b.mu.Unlock()
		return nil
	}
	b.view.Syncing = true
	b.view.Err = ""
	b.clearToastLocked()
	snap, subs := b.snapshotLocked()
	b.mu.Unlock()
	notify(subs, snap)

	defer b.mutate(func(v *ViewState) {
		v.Syncing = false
	})

	report, err := b.client.TriggerBankSync(ctx)
	if err != nil {
		b.setError(err)
		b.setToast(ctx, ToastError, err.Error())
		b.emitActionFailed(ctx, actionSync, err)
		return err
	}

	b.setToast(ctx, ToastSuccess, fmt.Sprintf(
		"%s Transações: %d. Matches: %d.",
		report.Message, report.StatementTransactions, report.MatchesCreated,
	))
	capitan.Emit(ctx, ActionSucceeded,
		KeyAction.Field(actionSync),
	)

	return b.Refresh(ctx, true)
}

// Export fetches the accounting report and hands it to the board's Saver as
// contabilidade.csv. No-op while an export is already in flight. The
// snapshot is never touched.
func (b *Board) Export(ctx context.Context) error {
	b.mu.Lock()
	if b.view.Exporting {
		b.mu.Unlock()
		return nil
	}
	b.view.Exporting = true
	b.view.Err = ""
	snap, subs := b.snapshotLocked()
	b.mu.Unlock()
	notify(subs, snap)

	defer b.mutate(func(v *ViewState) {
		v.Exporting = false
	})

	data, err := b.client.ExportAccounting(ctx)
	if err != nil {
		b.setError(err)
		b.mutate(func(v *ViewState) {
			v.Err = err.Error()
		})
		b.emitActionFailed(ctx, actionExport, err)
		return err
	}

	if err := b.saver.Save(ExportFilename, data); err != nil {
		b.setError(err)
		b.mutate(func(v *ViewState) {
			v.Err = err.Error()
		})
		b.emitActionFailed(ctx, actionExport, err)
		return err
	}

	capitan.Emit(ctx, ActionSucceeded,
		KeyAction.Field(actionExport),
	)
	return nil
}

// SubmitNew creates a customer from the modal form. See submit for the
// shared contract.
func (b *Board) SubmitNew(ctx context.Context, draft CustomerDraft) error {
	return b.submit(ctx, "", func(ctx context.Context) error {
		_, err := b.client.CreateCustomer(ctx, draft)
		return err
	})
}

// SubmitEdit applies a partial update from the modal form. Only the patch's
// non-nil fields are sent. See submit for the shared contract.
func (b *Board) SubmitEdit(ctx context.Context, id string, patch CustomerPatch) error {
	return b.submit(ctx, id, func(ctx context.Context) error {
		_, err := b.client.UpdateCustomer(ctx, id, patch)
		return err
	})
}

// submit runs a modal submission. SubmitNew and SubmitEdit share one
// submitting gate: while a submission is in flight either returns
// ErrSubmitInFlight, which is distinguishable from success since a nil
// return is the caller's cue to close the modal. On success a silent refresh
// picks up the authoritative server copy (no optimistic insert, no loading
// skeleton). On failure the error is returned to the modal context; the page
// error is untouched so the user can retry without losing input.
func (b *Board) submit(ctx context.Context, id string, call func(context.Context) error) error {
	b.mu.Lock()
	if b.view.Submitting {
		b.mu.Unlock()
		return ErrSubmitInFlight
	}
	b.view.Submitting = true
	snap, subs := b.snapshotLocked()
	b.mu.Unlock()
	notify(subs, snap)

	defer b.mutate(func(v *ViewState) {
		v.Submitting = false
	})

	if err := call(ctx); err != nil {
		b.setError(err)
		b.emitActionFailed(ctx, actionSubmit, err)
		return err
	}

	capitan.Emit(ctx, ActionSucceeded,
		KeyAction.Field(actionSubmit),
		KeyCustomerID.Field(id),
	)

	if err := b.Refresh(ctx, false); err != nil {
		// The record was persisted; a refresh failure surfaces through the
		// page error and the submission still counts as accepted.
		return nil
	}
	return nil
}

// Delete removes a customer. No-op while any delete is in flight. On
// success the record is removed from the cached list immediately without a
// refetch; KPIs stay stale until the next refresh trigger. On failure the
// record stays, and the failure message is shown as an error toast.
func (b *Board) Delete(ctx context.Context, customer Customer) error {
	b.mu.Lock()
	if b.view.DeletingID != "" {
		b.mu.Unlock()
		return nil
	}
	b.view.DeletingID = customer.ID
	snap, subs := b.snapshotLocked()
	b.mu.Unlock()
	notify(subs, snap)

	defer b.mutate(func(v *ViewState) {
		v.DeletingID = ""
	})

	if err := b.client.DeleteCustomer(ctx, customer.ID); err != nil {
		b.setError(err)
		b.setToast(ctx, ToastError, err.Error())
		b.emitActionFailed(ctx, actionDelete, err)
		return err
	}

	b.mutate(func(v *ViewState) {
		kept := v.Customers[:0:0]
		for _, c := range v.Customers {
			if c.ID != customer.ID {
				kept = append(kept, c)
			}
		}
		v.Customers = kept
	})
	capitan.Emit(ctx, ActionSucceeded,
		KeyAction.Field(actionDelete),
		KeyCustomerID.Field(customer.ID),
	)
	return nil
}

// -----------------------------------------------------------------------------
// Internals
// -----------------------------------------------------------------------------

// mutate applies fn to the view under the lock, then notifies subscribers
// with the resulting snapshot outside it.
func (b *Board) mutate(fn func(*ViewState)) {
	b.mu.Lock()
	fn(&b.view)
	snap, subs := b.snapshotLocked()
	b.mu.Unlock()
	notify(subs, snap)
}

// snapshotLocked clones the view and the subscriber list.
// Caller must hold b.mu.
func (b *Board) snapshotLocked() (ViewState, []func(ViewState)) {
	subs := make([]func(ViewState), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	return b.view.clone(), subs
}

// notify delivers a snapshot to subscribers.
func notify(subs []func(ViewState), snap ViewState) {
	for _, fn := range subs {
		fn(snap)
	}
}

// setError records an action failure for LastError and the history ring.
func (b *Board) setError(err error) {
	e := err
	b.lastError.Store(&e)
	b.errorHistory.push(err)
}

func (b *Board) emitActionFailed(ctx context.Context, action string, err error) {
	capitan.Emit(ctx, ActionFailed,
		KeyAction.Field(action),
		KeyError.Field(err.Error()),
	)
	if b.metrics != nil {
		b.metrics.OnActionFailure(action)
	}
}
