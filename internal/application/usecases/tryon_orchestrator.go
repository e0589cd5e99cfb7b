package usecases

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tryon-storefront/internal/domain/entities"
	"tryon-storefront/internal/domain/repositories"
	"tryon-storefront/internal/domain/services"
	"tryon-storefront/internal/domain/valueobjects"
)

const DefaultSettleDelay = 200 * time.Millisecond

// ErrSessionReset is returned by Wait when the session went back to idle
// before a run finished.
var ErrSessionReset = errors.New("session was reset")

var ErrOrchestratorClosed = errors.New("orchestrator is closed")

type OrchestratorDeps struct {
	Analyzer   repositories.AnalysisService
	Swapper    repositories.SwapService
	References repositories.ReferenceCatalog
	Clock      *services.RevealClock
}

type OrchestratorConfig struct {
	// Garment selects the reference image family; empty means the default.
	Garment     string
	SettleDelay time.Duration
}

// TryOnOrchestrator drives one try-on session: analyze, then swap while
// the reveal clock runs, then complete once both are done.
type TryOnOrchestrator struct {
	analyzer    repositories.AnalysisService
	swapper     repositories.SwapService
	references  repositories.ReferenceCatalog
	clock       *services.RevealClock
	garment     string
	settleDelay time.Duration
	logger      *zap.Logger

	mu           sync.Mutex
	session      *entities.TryOnSession
	generation   uint64
	cancelRun    context.CancelFunc
	runDone      chan struct{}
	subscribers  map[int]chan entities.SessionSnapshot
	nextSub      int
	lastActivity time.Time
	closed       bool
}

func NewTryOnOrchestrator(id entities.SessionID, deps OrchestratorDeps, cfg OrchestratorConfig, logger *zap.Logger) *TryOnOrchestrator {
	if deps.Clock == nil {
		deps.Clock = services.DefaultRevealClock()
	}
	if cfg.SettleDelay < 0 {
		cfg.SettleDelay = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &TryOnOrchestrator{
		analyzer:     deps.Analyzer,
		swapper:      deps.Swapper,
		references:   deps.References,
		clock:        deps.Clock,
		garment:      cfg.Garment,
		settleDelay:  cfg.SettleDelay,
		logger:       logger.With(zap.String("session_id", string(id))),
		session:      entities.NewTryOnSession(id),
		subscribers:  make(map[int]chan entities.SessionSnapshot),
		lastActivity: time.Now(),
	}
}

func (o *TryOnOrchestrator) ID() entities.SessionID {
	return o.session.ID()
}

func (o *TryOnOrchestrator) Snapshot() entities.SessionSnapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session.Snapshot()
}

// LastActivity is the time of the last user action or state change.
func (o *TryOnOrchestrator) LastActivity() time.Time {
	o.mu.Lock()
	defer o.mu.Unlock()
	if updated := o.session.UpdatedAt(); updated.After(o.lastActivity) {
		return updated
	}
	return o.lastActivity
}

func (o *TryOnOrchestrator) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session.State().IsBusy()
}

// Upload hands a validated image to the session. A second upload before
// confirming replaces the first.
func (o *TryOnOrchestrator) Upload(image *valueobjects.UploadedImage) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return ErrOrchestratorClosed
	}
	if err := o.session.Upload(image); err != nil {
		return fmt.Errorf("failed to upload image: %w", err)
	}
	o.touch()
	o.logger.Info("image uploaded",
		zap.String("file_name", image.FileName()),
		zap.Int64("size_bytes", image.SizeBytes()),
	)
	o.publishLocked()
	return nil
}

// RejectUpload fails the session when a replacement image does not pass
// validation. In any state other than uploading it only returns err.
func (o *TryOnOrchestrator) RejectUpload(err error) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.session.State() != valueobjects.StateUploading {
		return err
	}
	if failErr := o.session.Fail(err); failErr != nil {
		return failErr
	}
	o.touch()
	o.logger.Warn("replacement upload rejected", zap.Error(err))
	o.publishLocked()
	return err
}

// Confirm starts the analyze and swap sequence in the background and
// returns once the session is processing. The run is bound to the session,
// not to ctx; use Reset or Close to cancel it.
func (o *TryOnOrchestrator) Confirm(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return ErrOrchestratorClosed
	}
	if err := o.session.BeginProcessing(); err != nil {
		return fmt.Errorf("failed to start processing: %w", err)
	}

	o.generation++
	gen := o.generation
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	o.cancelRun = cancel
	o.runDone = done
	image := o.session.Image()

	o.touch()
	o.logger.Info("try-on confirmed", zap.Uint64("generation", gen))
	o.publishLocked()

	go func() {
		defer close(done)
		defer cancel()
		o.run(runCtx, gen, image)
	}()
	return nil
}

// Reset returns the session to idle from any state. An in-flight run is
// cancelled and anything it produces afterwards is dropped.
func (o *TryOnOrchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.resetLocked()
	o.publishLocked()
}

func (o *TryOnOrchestrator) resetLocked() {
	o.generation++
	if o.cancelRun != nil {
		o.cancelRun()
		o.cancelRun = nil
	}
	o.session.Reset()
	o.touch()
	o.logger.Debug("session reset", zap.Uint64("generation", o.generation))
}

// Subscribe returns a channel of snapshots. Slow readers only see the
// latest snapshot. The returned func unsubscribes and closes the channel.
func (o *TryOnOrchestrator) Subscribe() (<-chan entities.SessionSnapshot, func()) {
	o.mu.Lock()
	defer o.mu.Unlock()

	ch := make(chan entities.SessionSnapshot, 1)
	if o.closed {
		close(ch)
		return ch, func() {}
	}

	id := o.nextSub
	o.nextSub++
	o.subscribers[id] = ch
	ch <- o.session.Snapshot()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			if sub, ok := o.subscribers[id]; ok {
				delete(o.subscribers, id)
				close(sub)
			}
		})
	}
}

// Wait blocks while the session is processing or revealing and returns the
// snapshot it settled on. A failed run returns its AnalysisError or
// SwapError; a reset returns ErrSessionReset.
func (o *TryOnOrchestrator) Wait(ctx context.Context) (entities.SessionSnapshot, error) {
	updates, unsubscribe := o.Subscribe()
	defer unsubscribe()

	last := o.Snapshot()
	for {
		if !last.State.IsBusy() {
			return last, o.settledError(last)
		}
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case snap, ok := <-updates:
			if !ok {
				return last, ErrOrchestratorClosed
			}
			last = snap
		}
	}
}

func (o *TryOnOrchestrator) settledError(snap entities.SessionSnapshot) error {
	switch snap.State {
	case valueobjects.StateIdle:
		return ErrSessionReset
	case valueobjects.StateFailed:
		o.mu.Lock()
		defer o.mu.Unlock()
		if failure := o.session.Failure(); failure != nil {
			return failure
		}
		return errors.New(snap.Error.Message)
	default:
		return nil
	}
}

// Close cancels any run, waits for it to exit and closes all subscriptions.
func (o *TryOnOrchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	o.resetLocked()
	done := o.runDone
	for id, ch := range o.subscribers {
		delete(o.subscribers, id)
		close(ch)
	}
	o.mu.Unlock()

	if done != nil {
		<-done
	}
}

func (o *TryOnOrchestrator) run(ctx context.Context, gen uint64, image *valueobjects.UploadedImage) {
	started := time.Now()

	metadata, err := o.analyzer.Analyze(ctx, image)
	if err != nil {
		o.fail(gen, asAnalysisError(err))
		return
	}

	key, err := metadata.ReferenceKey(o.garment)
	if err != nil {
		o.fail(gen, &entities.AnalysisError{
			Kind:    entities.FailureUnresolvableReference,
			Message: "No reference image for the detected body type",
			Err:     err,
		})
		return
	}
	referenceURL, err := o.references.Resolve(ctx, key)
	if err != nil {
		o.fail(gen, &entities.AnalysisError{
			Kind:    entities.FailureUnresolvableReference,
			Message: fmt.Sprintf("Reference image %s is not available", key),
			Err:     err,
		})
		return
	}

	if !o.beginReveal(gen, metadata, key, referenceURL) {
		return
	}

	outcome, err := o.reveal(ctx, gen, image, key)
	if err != nil {
		o.fail(gen, err)
		return
	}

	// let the full reveal register before the result replaces it
	timer := time.NewTimer(o.settleDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	o.complete(gen, outcome, time.Since(started))
}

// reveal runs revealTask and swapTask under one errgroup and returns once
// the completion join has fired.
func (o *TryOnOrchestrator) reveal(ctx context.Context, gen uint64, image *valueobjects.UploadedImage, key valueobjects.ReferenceImageKey) (*entities.SwapOutcome, error) {
	join := newCompletionJoin(o.clock.Ceiling(), func(progress float64) {
		o.setProgress(gen, progress)
	})

	g, gctx := errgroup.WithContext(ctx)
	revealCtx, stopReveal := context.WithCancel(gctx)
	defer stopReveal()

	// revealTask
	g.Go(func() error {
		for progress := range o.clock.Frames(revealCtx) {
			if !join.advance(progress) {
				break
			}
		}
		return nil
	})

	// swapTask
	g.Go(func() error {
		outcome, err := o.swapper.Swap(gctx, image, key)
		if err != nil {
			return asSwapError(err)
		}
		join.deliver(outcome)
		stopReveal()
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	select {
	case <-join.ready():
		return join.result(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (o *TryOnOrchestrator) beginReveal(gen uint64, metadata *entities.AnalysisMetadata, key valueobjects.ReferenceImageKey, referenceURL string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if gen != o.generation {
		return false
	}
	if err := o.session.BeginReveal(metadata, key, referenceURL); err != nil {
		o.logger.Error("failed to begin reveal", zap.Error(err))
		return false
	}
	o.logger.Info("analysis complete",
		zap.String("body_type", string(metadata.BodyType())),
		zap.String("skin_color", string(metadata.SkinColor())),
		zap.String("reference", key.Path()),
	)
	o.publishLocked()
	return true
}

func (o *TryOnOrchestrator) setProgress(gen uint64, progress float64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if gen != o.generation {
		return
	}
	before := o.session.Progress()
	o.session.AdvanceReveal(progress)
	if o.session.Progress() != before {
		o.publishLocked()
	}
}

func (o *TryOnOrchestrator) complete(gen uint64, outcome *entities.SwapOutcome, elapsed time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if gen != o.generation {
		return
	}
	if err := o.session.Complete(outcome); err != nil {
		o.logger.Error("failed to complete session", zap.Error(err))
		return
	}
	o.cancelRun = nil
	fields := []zap.Field{zap.Duration("elapsed", elapsed)}
	if outcome.HasWarning() {
		fields = append(fields, zap.String("warning", outcome.Warning()))
	}
	o.logger.Info("try-on complete", fields...)
	o.publishLocked()
}

func (o *TryOnOrchestrator) fail(gen uint64, cause error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if gen != o.generation {
		o.logger.Debug("dropping result of a reset run", zap.Error(cause))
		return
	}
	if err := o.session.Fail(cause); err != nil {
		o.logger.Error("failed to record failure", zap.Error(err), zap.NamedError("cause", cause))
		return
	}
	o.cancelRun = nil
	o.logger.Warn("try-on failed",
		zap.String("phase", string(entities.PhaseOf(cause))),
		zap.Error(cause),
	)
	o.publishLocked()
}

func (o *TryOnOrchestrator) touch() {
	o.lastActivity = time.Now()
}

// publishLocked must be called with o.mu held.
func (o *TryOnOrchestrator) publishLocked() {
	if len(o.subscribers) == 0 {
		return
	}
	snap := o.session.Snapshot()
	for _, ch := range o.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

func asAnalysisError(err error) error {
	var analysisErr *entities.AnalysisError
	if errors.As(err, &analysisErr) {
		return err
	}
	return &entities.AnalysisError{Kind: entities.FailureNetwork, Err: err}
}

func asSwapError(err error) error {
	var swapErr *entities.SwapError
	if errors.As(err, &swapErr) {
		return err
	}
	return &entities.SwapError{Kind: entities.FailureNetwork, Err: err}
}
