package receipt

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/expense-snap/internal/category"
	"github.com/zombor/expense-snap/internal/extraction"
	"github.com/zombor/expense-snap/internal/retry"
	"github.com/zombor/expense-snap/internal/scanning"
)

const (
	DefaultConfirmWindow = 2 * time.Second
	DefaultCooldown      = 1 * time.Second
)

// Capturer takes a picture of whatever the user is looking at
type Capturer interface {
	Capture(ctx context.Context) (image.Image, error)
}

// TextRecognizer turns an image into classified text blocks
type TextRecognizer interface {
	Recognize(ctx context.Context, img image.Image) (*scanning.OCRResult, error)
}

// FieldExtractor pulls expense fields out of recognized text
type FieldExtractor interface {
	Extract(ocr *scanning.OCRResult) (*extraction.Result, error)
}

// CategorySuggester proposes a spending category
type CategorySuggester interface {
	Suggest(in category.Input) category.Suggestion
}

// TriggerSource calls fire whenever the user asks for a capture
type TriggerSource interface {
	Listen(ctx context.Context, fire func()) error
}

// Confirmation is what the user accepted at the end of an attempt
type Confirmation struct {
	AttemptID string
	Result    *Result
	Image     image.Image
}

// Sink receives confirmed results
type Sink interface {
	Save(ctx context.Context, c Confirmation) (*Receipt, error)
}

// Config tunes the orchestrator. Zero values fall back to defaults.
type Config struct {
	ConfirmWindow time.Duration
	Cooldown      time.Duration
	Retry         *retry.Policy
	Sink          Sink
	TimeSource    TimeSource
}

type attempt struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc

	image      image.Image
	confirming bool
	cooldown   *time.Timer
}

// Orchestrator drives one recognition attempt at a time through the
// capture, recognize and parse stages and publishes every change as a
// Snapshot. All state lives behind mu and only the orchestrator writes it.
type Orchestrator struct {
	capturer   Capturer
	recognizer TextRecognizer
	extractor  FieldExtractor
	suggester  CategorySuggester
	sink       Sink
	timeSource TimeSource

	confirmWindow time.Duration
	cooldown      time.Duration
	policy        retry.Policy

	// ctx bounds every external call; cancelling an attempt does not
	// interrupt a call already in flight.
	ctx      context.Context
	shutdown context.CancelFunc
	wg       sync.WaitGroup

	mu          sync.Mutex
	closed      bool
	snap        Snapshot
	current     *attempt
	subscribers map[int]chan Snapshot
	nextSub     int
}

// NewOrchestrator wires the pipeline stages together
func NewOrchestrator(capturer Capturer, recognizer TextRecognizer, extractor FieldExtractor, suggester CategorySuggester, cfg Config) *Orchestrator {
	ctx, shutdown := context.WithCancel(context.Background())
	o := &Orchestrator{
		capturer:      capturer,
		recognizer:    recognizer,
		extractor:     extractor,
		suggester:     suggester,
		sink:          cfg.Sink,
		timeSource:    cfg.TimeSource,
		confirmWindow: cfg.ConfirmWindow,
		cooldown:      cfg.Cooldown,
		ctx:           ctx,
		shutdown:      shutdown,
		subscribers:   make(map[int]chan Snapshot),
	}
	if o.timeSource == nil {
		o.timeSource = &defaultTimeSource{}
	}
	if o.confirmWindow <= 0 {
		o.confirmWindow = DefaultConfirmWindow
	}
	if o.cooldown <= 0 {
		o.cooldown = DefaultCooldown
	}
	if cfg.Retry != nil {
		o.policy = *cfg.Retry
	} else {
		o.policy = *retry.NewPolicy()
	}
	o.snap = Snapshot{State: Idle{}, Phase: "Ready", UpdatedAt: o.timeSource.Now()}
	return o
}

// Snapshot returns the current observable state
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotCopyLocked()
}

// Subscribe returns a channel carrying the latest snapshot. A slow reader
// skips intermediate snapshots but always sees the most recent one.
// The channel is closed by the returned cancel func or by Close.
func (o *Orchestrator) Subscribe() (<-chan Snapshot, func()) {
	o.mu.Lock()
	defer o.mu.Unlock()

	ch := make(chan Snapshot, 1)
	if o.closed {
		close(ch)
		return ch, func() {}
	}
	id := o.nextSub
	o.nextSub++
	o.subscribers[id] = ch
	ch <- o.snapshotCopyLocked()

	return ch, func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		if c, ok := o.subscribers[id]; ok {
			delete(o.subscribers, id)
			close(c)
		}
	}
}

// Trigger starts a new attempt. It returns false and changes nothing
// unless the orchestrator is Idle, Failed or Cancelled.
func (o *Orchestrator) Trigger() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed || !acceptsTrigger(o.snap.State) {
		return false
	}
	if prev := o.current; prev != nil && prev.cooldown != nil {
		prev.cooldown.Stop()
	}

	ctx, cancel := context.WithCancel(o.ctx)
	a := &attempt{id: uuid.NewString(), ctx: ctx, cancel: cancel}
	o.current = a

	o.publishLocked(Snapshot{
		AttemptID: a.id,
		State:     WaitingForConfirmation{},
		Phase:     "Waiting for confirmation",
	})
	slog.Info("Recognition triggered", "attempt", a.id)

	o.wg.Add(1)
	go o.run(a)
	return true
}

// Cancel asks the running attempt to stop. It takes effect immediately
// during the countdown and at the next stage boundary otherwise.
func (o *Orchestrator) Cancel() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	a := o.current
	if a == nil || !cancellable(o.snap.State) {
		return false
	}
	slog.Info("Cancellation requested", "attempt", a.id, "state", o.snap.State.Name())
	a.cancel()
	return true
}

// Confirm applies the user's edit to the pending result, hands it to the
// sink and returns to Idle.
func (o *Orchestrator) Confirm(ctx context.Context, edit Edit) (*Result, *Receipt, error) {
	o.mu.Lock()
	a := o.current
	success, ok := o.snap.State.(Success)
	if !ok || a == nil {
		o.mu.Unlock()
		return nil, nil, ErrNoPendingResult
	}
	if a.confirming {
		o.mu.Unlock()
		return nil, nil, ErrConfirmInProgress
	}
	a.confirming = true
	result := success.Result.clone()
	img := a.image
	o.mu.Unlock()

	release := func() {
		o.mu.Lock()
		a.confirming = false
		o.mu.Unlock()
	}

	if err := result.apply(edit); err != nil {
		release()
		return nil, nil, err
	}

	var saved *Receipt
	if o.sink != nil {
		var err error
		saved, err = o.sink.Save(ctx, Confirmation{AttemptID: a.id, Result: result, Image: img})
		if err != nil {
			release()
			return nil, nil, fmt.Errorf("saving confirmed result: %w", err)
		}
	}

	o.mu.Lock()
	if o.current == a {
		o.resetLocked()
	}
	o.mu.Unlock()
	slog.Info("Result confirmed", "attempt", a.id, "amount", result.EffectiveAmount(), "category", result.SuggestedCategory)
	return result, saved, nil
}

// Abandon discards a pending result or acknowledges a failure
func (o *Orchestrator) Abandon() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.snap.State.(type) {
	case Success, Failed:
	default:
		return ErrNoPendingResult
	}
	if o.current != nil && o.current.confirming {
		return ErrConfirmInProgress
	}
	o.resetLocked()
	return nil
}

// Listen forwards every event from src to Trigger until ctx is done
func (o *Orchestrator) Listen(ctx context.Context, src TriggerSource) error {
	return src.Listen(ctx, func() {
		if !o.Trigger() {
			slog.Debug("Trigger ignored", "state", o.Snapshot().State.Name())
		}
	})
}

// Close stops any running attempt, waits for it and closes all subscriptions
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	if a := o.current; a != nil && a.cooldown != nil {
		a.cooldown.Stop()
	}
	o.mu.Unlock()

	o.shutdown()
	o.wg.Wait()

	o.mu.Lock()
	for id, ch := range o.subscribers {
		delete(o.subscribers, id)
		close(ch)
	}
	o.mu.Unlock()
}

func (o *Orchestrator) run(a *attempt) {
	defer o.wg.Done()
	defer a.cancel()

	select {
	case <-a.ctx.Done():
		o.finishCancelled(a)
		return
	case <-time.After(o.confirmWindow):
	}

	if !o.advance(a, CapturingScreen{}, 0.1, "Capturing screen") {
		return
	}
	img, err := o.capturer.Capture(o.ctx)
	if o.stopped(a) {
		return
	}
	if err != nil {
		o.fail(a, captureError(err))
		return
	}
	o.mu.Lock()
	a.image = img
	o.mu.Unlock()

	if !o.advance(a, Recognizing{}, 0.3, "Recognizing text") {
		return
	}
	ocr, err := retry.Execute(a.ctx, o.policyFor(a, "recognition"), func() (*scanning.OCRResult, error) {
		return o.recognizer.Recognize(o.ctx, img)
	}, recognitionRetryable)
	if o.stopped(a) {
		return
	}
	if err != nil {
		o.fail(a, recognitionError(err))
		return
	}
	o.progress(a, 0.5, "Text recognized")

	if !o.advance(a, Parsing{}, 0.6, "Extracting details") {
		return
	}
	extracted, err := retry.Execute(a.ctx, o.policyFor(a, "parsing"), func() (*extraction.Result, error) {
		return o.extractor.Extract(ocr)
	}, parsingRetryable)
	if o.stopped(a) {
		return
	}
	if err != nil {
		o.fail(a, fmt.Errorf("parsing text: %w", err))
		return
	}
	o.progress(a, 0.8, "Suggesting category")

	suggestion := o.suggester.Suggest(category.Input{
		Text:        extracted.RawText,
		Merchant:    extracted.MerchantName,
		Description: extracted.Description,
		Amount:      extracted.TotalAmount,
	})
	result := &Result{
		Amounts:            extracted.Amounts,
		TotalAmount:        extracted.TotalAmount,
		Description:        extracted.Description,
		MerchantName:       extracted.MerchantName,
		DetectedDate:       extracted.Date,
		PaymentMethod:      extracted.PaymentMethod,
		RawText:            extracted.RawText,
		SuggestedCategory:  suggestion.Category,
		CategoryConfidence: suggestion.Confidence,
		MatchedKeywords:    suggestion.MatchedKeywords,
		CategoryReason:     suggestion.Reason,
		OCRConfidence:      ocr.OverallConfidence,
		Timestamp:          o.timeSource.Now(),
	}
	if o.stopped(a) {
		return
	}
	o.advance(a, Success{Result: result}, 1, "Ready for review")
}

// stopped finishes the attempt as Cancelled if it was cancelled.
// Anything produced after cancellation is dropped.
func (o *Orchestrator) stopped(a *attempt) bool {
	if a.ctx.Err() == nil {
		return false
	}
	o.finishCancelled(a)
	return true
}

func (o *Orchestrator) finishCancelled(a *attempt) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finishCancelledLocked(a)
}

func (o *Orchestrator) finishCancelledLocked(a *attempt) {
	if o.current != a || terminal(o.snap.State) {
		return
	}
	next := o.snap
	next.State = Cancelled{}
	next.Phase = "Cancelled"
	next.RetryStatus = ""
	o.publishLocked(next)
	slog.Info("Recognition cancelled", "attempt", a.id)

	if o.closed {
		return
	}
	a.cooldown = time.AfterFunc(o.cooldown, func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		if o.current == a && !o.closed {
			if _, ok := o.snap.State.(Cancelled); ok {
				o.resetLocked()
			}
		}
	})
}

func (o *Orchestrator) fail(a *attempt, err error) {
	kind := Classify(err)
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.current != a || terminal(o.snap.State) {
		return
	}
	next := o.snap
	next.State = Failed{Kind: kind, Message: kind.Message(), Err: err}
	next.Phase = "Failed"
	next.RetryStatus = ""
	o.publishLocked(next)
	slog.Error("Recognition failed", "attempt", a.id, "kind", kind.String(), "error", err)
}

// advance moves the attempt into state unless it has been superseded
// or already finished.
func (o *Orchestrator) advance(a *attempt, state State, progress float64, phase string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.current != a || terminal(o.snap.State) {
		return false
	}
	if a.ctx.Err() != nil {
		o.finishCancelledLocked(a)
		return false
	}
	prev := o.snap.State
	next := o.snap
	next.State = state
	next.Progress = max(next.Progress, progress)
	next.Phase = phase
	next.RetryCount = 0
	next.RetryStatus = ""
	o.publishLocked(next)
	slog.Debug("State changed", "attempt", a.id, "from", prev.Name(), "to", state.Name())
	return true
}

func (o *Orchestrator) progress(a *attempt, progress float64, phase string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.current != a || terminal(o.snap.State) {
		return
	}
	next := o.snap
	next.Progress = max(next.Progress, progress)
	next.Phase = phase
	next.RetryCount = 0
	next.RetryStatus = ""
	o.publishLocked(next)
}

func (o *Orchestrator) policyFor(a *attempt, stage string) *retry.Policy {
	p := o.policy
	p.OnRetry = func(st retry.Status) {
		o.mu.Lock()
		defer o.mu.Unlock()
		if o.current != a || terminal(o.snap.State) {
			return
		}
		next := o.snap
		next.RetryCount = st.Retry
		next.RetryStatus = fmt.Sprintf("Retrying %s (%d/%d) in %s", stage, st.Retry, st.MaxRetries, st.Delay)
		o.publishLocked(next)
	}
	return &p
}

func (o *Orchestrator) resetLocked() {
	o.current = nil
	o.publishLocked(Snapshot{State: Idle{}, Phase: "Ready"})
}

// publishLocked stores next and hands it to every subscriber, replacing
// any snapshot the subscriber has not read yet. Callers hold mu.
func (o *Orchestrator) publishLocked(next Snapshot) {
	next.UpdatedAt = o.timeSource.Now()
	if s, ok := next.State.(Success); ok {
		next.State = Success{Result: s.Result.clone()}
	}
	o.snap = next

	for _, ch := range o.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- o.snapshotCopyLocked()
	}
}

// snapshotCopyLocked gives subscribers their own copy of the result
func (o *Orchestrator) snapshotCopyLocked() Snapshot {
	s := o.snap
	if st, ok := s.State.(Success); ok {
		s.State = Success{Result: st.Result.clone()}
	}
	return s
}

func recognitionRetryable(err error) bool {
	switch {
	case errors.Is(err, scanning.ErrEngineOffline),
		errors.Is(err, scanning.ErrNoTextFound),
		errors.Is(err, scanning.ErrLowConfidence):
		return false
	}
	return retry.IsTransient(err)
}

func parsingRetryable(err error) bool {
	if errors.Is(err, extraction.ErrNoValidAmountFound) {
		return false
	}
	return retry.IsTransient(err)
}
