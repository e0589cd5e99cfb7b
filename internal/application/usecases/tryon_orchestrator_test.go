package usecases

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"tryon-storefront/internal/domain/entities"
	"tryon-storefront/internal/domain/services"
	"tryon-storefront/internal/domain/valueobjects"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeAnalyzer struct {
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context) (*entities.AnalysisMetadata, error)
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, _ *valueobjects.UploadedImage) (*entities.AnalysisMetadata, error) {
	f.mu.Lock()
	f.calls++
	fn := f.fn
	f.mu.Unlock()
	return fn(ctx)
}

func (f *fakeAnalyzer) set(fn func(ctx context.Context) (*entities.AnalysisMetadata, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fn = fn
}

func (f *fakeAnalyzer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeSwapper struct {
	mu       sync.Mutex
	calls    int
	lastKey  valueobjects.ReferenceImageKey
	fn       func(ctx context.Context) (*entities.SwapOutcome, error)
}

func (f *fakeSwapper) Swap(ctx context.Context, _ *valueobjects.UploadedImage, key valueobjects.ReferenceImageKey) (*entities.SwapOutcome, error) {
	f.mu.Lock()
	f.calls++
	f.lastKey = key
	fn := f.fn
	f.mu.Unlock()
	return fn(ctx)
}

func (f *fakeSwapper) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeCatalog struct {
	err error
}

func (c fakeCatalog) Resolve(_ context.Context, key valueobjects.ReferenceImageKey) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	return "/images/" + key.Path(), nil
}

func athleticMedium(context.Context) (*entities.AnalysisMetadata, error) {
	return entities.NewAnalysisMetadata("athletic", "medium", "male")
}

func swapAfter(d time.Duration) func(ctx context.Context) (*entities.SwapOutcome, error) {
	return func(ctx context.Context) (*entities.SwapOutcome, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(d):
		}
		return entities.NewSwapOutcome("data:image/png;base64,AAAA", "", "")
	}
}

func testImage(t *testing.T) *valueobjects.UploadedImage {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4)), nil))
	img, err := valueobjects.NewUploadedImage(buf.Bytes(), "image/jpeg", "me.jpg")
	require.NoError(t, err)
	return img
}

type harness struct {
	orchestrator *TryOnOrchestrator
	analyzer     *fakeAnalyzer
	swapper      *fakeSwapper
}

func newHarness(t *testing.T, clockDuration time.Duration, swap func(ctx context.Context) (*entities.SwapOutcome, error)) *harness {
	t.Helper()
	clock, err := services.NewRevealClock(clockDuration, 0.65, 2*time.Millisecond)
	require.NoError(t, err)

	h := &harness{
		analyzer: &fakeAnalyzer{fn: athleticMedium},
		swapper:  &fakeSwapper{fn: swap},
	}
	h.orchestrator = NewTryOnOrchestrator("test-session", OrchestratorDeps{
		Analyzer:   h.analyzer,
		Swapper:    h.swapper,
		References: fakeCatalog{},
		Clock:      clock,
	}, OrchestratorConfig{SettleDelay: 20 * time.Millisecond}, zap.NewNop())
	t.Cleanup(h.orchestrator.Close)
	return h
}

// record collects every snapshot published until stop is called.
func record(o *TryOnOrchestrator) (stop func() []entities.SessionSnapshot) {
	updates, unsubscribe := o.Subscribe()
	var (
		mu    sync.Mutex
		snaps []entities.SessionSnapshot
		done  = make(chan struct{})
	)
	go func() {
		defer close(done)
		for snap := range updates {
			mu.Lock()
			snaps = append(snaps, snap)
			mu.Unlock()
		}
	}()
	return func() []entities.SessionSnapshot {
		unsubscribe()
		<-done
		mu.Lock()
		defer mu.Unlock()
		return snaps
	}
}

func assertMonotoneReveal(t *testing.T, snaps []entities.SessionSnapshot, ceiling float64) (maxBeforeData float64) {
	t.Helper()
	prev := 0.0
	for _, snap := range snaps {
		if snap.State != valueobjects.StateRevealing && snap.State != valueobjects.StateComplete {
			continue
		}
		assert.GreaterOrEqual(t, snap.Progress, prev, "reveal progress decreased")
		if snap.Progress < 1 {
			assert.LessOrEqual(t, snap.Progress, ceiling)
			if snap.Progress > maxBeforeData {
				maxBeforeData = snap.Progress
			}
		}
		if snap.State == valueobjects.StateComplete {
			assert.Equal(t, 1.0, snap.Progress)
		}
		prev = snap.Progress
	}
	return maxBeforeData
}

func TestTryOnOrchestrator_SlowSwapHoldsAtCeiling(t *testing.T) {
	h := newHarness(t, 100*time.Millisecond, swapAfter(300*time.Millisecond))
	o := h.orchestrator

	require.NoError(t, o.Upload(testImage(t)))
	stop := record(o)

	started := time.Now()
	require.NoError(t, o.Confirm(context.Background()))
	snap, err := o.Wait(context.Background())
	elapsed := time.Since(started)
	snaps := stop()

	require.NoError(t, err)
	assert.Equal(t, valueobjects.StateComplete, snap.State)
	assert.Equal(t, 1.0, snap.Progress)
	require.NotNil(t, snap.Result)
	assert.Equal(t, "data:image/png;base64,AAAA", snap.Result.OutputImage)
	assert.GreaterOrEqual(t, elapsed, 300*time.Millisecond)

	maxBeforeData := assertMonotoneReveal(t, snaps, 0.65)
	assert.Equal(t, 0.65, maxBeforeData, "reveal should hold at the ceiling while the swap is pending")

	assert.Equal(t, 1, h.analyzer.count())
	assert.Equal(t, 1, h.swapper.count())
	assert.Equal(t, "bodytypes/headswapper/athletic/jordan_red_hoodie_reference_olive.png", h.swapper.lastKey.Path())
}

func TestTryOnOrchestrator_FastSwapForcesFullReveal(t *testing.T) {
	h := newHarness(t, 10*time.Second, swapAfter(30*time.Millisecond))
	o := h.orchestrator

	require.NoError(t, o.Upload(testImage(t)))
	stop := record(o)

	started := time.Now()
	require.NoError(t, o.Confirm(context.Background()))
	snap, err := o.Wait(context.Background())
	elapsed := time.Since(started)
	snaps := stop()

	require.NoError(t, err)
	assert.Equal(t, valueobjects.StateComplete, snap.State)
	assert.Equal(t, 1.0, snap.Progress)
	assert.Less(t, elapsed, 2*time.Second, "completion must not wait for the clock")

	maxBeforeData := assertMonotoneReveal(t, snaps, 0.65)
	assert.Less(t, maxBeforeData, 0.65)

	var sawReference bool
	for _, s := range snaps {
		if s.State == valueobjects.StateRevealing && s.ReferenceImageURL != "" {
			sawReference = true
		}
	}
	assert.True(t, sawReference, "reference image must be available during the reveal")
}

func TestTryOnOrchestrator_AnalysisFailureThenRetry(t *testing.T) {
	h := newHarness(t, 50*time.Millisecond, swapAfter(10*time.Millisecond))
	o := h.orchestrator
	h.analyzer.set(func(context.Context) (*entities.AnalysisMetadata, error) {
		return nil, &entities.AnalysisError{
			Kind:       entities.FailureStatus,
			StatusCode: 500,
			Message:    "Internal server error. Please try again.",
		}
	})

	require.NoError(t, o.Upload(testImage(t)))
	require.NoError(t, o.Confirm(context.Background()))
	snap, err := o.Wait(context.Background())

	var analysisErr *entities.AnalysisError
	require.ErrorAs(t, err, &analysisErr)
	assert.Equal(t, 500, analysisErr.StatusCode)
	assert.Equal(t, valueobjects.StateFailed, snap.State)
	require.NotNil(t, snap.Error)
	assert.Equal(t, entities.PhaseAnalysis, snap.Error.Phase)
	assert.Empty(t, snap.ReferenceImageURL)
	assert.Equal(t, 0, h.swapper.count(), "swap must not run after a failed analysis")

	assert.ErrorIs(t, o.Confirm(context.Background()), valueobjects.ErrInvalidTransition)

	o.Reset()
	assert.Equal(t, valueobjects.StateIdle, o.Snapshot().State)

	h.analyzer.set(athleticMedium)
	require.NoError(t, o.Upload(testImage(t)))
	require.NoError(t, o.Confirm(context.Background()))
	snap, err = o.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, valueobjects.StateComplete, snap.State)
	assert.Equal(t, 2, h.analyzer.count())
	assert.Equal(t, 1, h.swapper.count())
}

func TestTryOnOrchestrator_SwapFailureStopsReveal(t *testing.T) {
	h := newHarness(t, 10*time.Second, func(context.Context) (*entities.SwapOutcome, error) {
		time.Sleep(20 * time.Millisecond)
		return nil, &entities.SwapError{Kind: entities.FailureStatus, StatusCode: 503, Message: "Failed to connect to HeadSwapper service"}
	})
	o := h.orchestrator

	require.NoError(t, o.Upload(testImage(t)))
	require.NoError(t, o.Confirm(context.Background()))
	snap, err := o.Wait(context.Background())

	var swapErr *entities.SwapError
	require.ErrorAs(t, err, &swapErr)
	assert.Equal(t, valueobjects.StateFailed, snap.State)
	assert.Equal(t, entities.PhaseSwap, snap.Error.Phase)
	assert.Less(t, snap.Progress, 0.65)
	assert.Nil(t, snap.Result)

	// the reveal clock is gone; progress stays put
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, snap.Progress, o.Snapshot().Progress)
}

func TestTryOnOrchestrator_UntypedErrorsAreNetworkFailures(t *testing.T) {
	h := newHarness(t, 50*time.Millisecond, swapAfter(time.Millisecond))
	h.analyzer.set(func(context.Context) (*entities.AnalysisMetadata, error) {
		return nil, errors.New("connection refused")
	})

	o := h.orchestrator
	require.NoError(t, o.Upload(testImage(t)))
	require.NoError(t, o.Confirm(context.Background()))
	_, err := o.Wait(context.Background())

	var analysisErr *entities.AnalysisError
	require.ErrorAs(t, err, &analysisErr)
	assert.Equal(t, entities.FailureNetwork, analysisErr.Kind)
}

func TestTryOnOrchestrator_UnresolvableReference(t *testing.T) {
	h := newHarness(t, 50*time.Millisecond, swapAfter(time.Millisecond))
	o := h.orchestrator
	o.references = fakeCatalog{err: errors.New("missing file")}

	require.NoError(t, o.Upload(testImage(t)))
	require.NoError(t, o.Confirm(context.Background()))
	snap, err := o.Wait(context.Background())

	var analysisErr *entities.AnalysisError
	require.ErrorAs(t, err, &analysisErr)
	assert.Equal(t, entities.FailureUnresolvableReference, analysisErr.Kind)
	assert.Empty(t, snap.ReferenceImageURL)
	assert.Equal(t, 0, h.swapper.count())
}

func TestTryOnOrchestrator_ResetDuringReveal(t *testing.T) {
	cancelled := make(chan struct{})
	h := newHarness(t, 10*time.Second, func(ctx context.Context) (*entities.SwapOutcome, error) {
		<-ctx.Done()
		close(cancelled)
		return nil, ctx.Err()
	})
	o := h.orchestrator

	require.NoError(t, o.Upload(testImage(t)))
	updates, unsubscribe := o.Subscribe()
	defer unsubscribe()
	require.NoError(t, o.Confirm(context.Background()))

	for snap := range updates {
		if snap.State == valueobjects.StateRevealing {
			break
		}
	}
	o.Reset()

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("swap request was not cancelled by reset")
	}

	snap, err := o.Wait(context.Background())
	assert.ErrorIs(t, err, ErrSessionReset)
	assert.Equal(t, valueobjects.StateIdle, snap.State)
	assert.Zero(t, snap.Progress)
	assert.Empty(t, snap.FileName)
	assert.Nil(t, snap.Analysis)
	assert.Empty(t, snap.ReferenceImageURL)
	assert.Nil(t, snap.Result)
	assert.Nil(t, snap.Error)
}

func TestTryOnOrchestrator_LateResultAfterResetIsIgnored(t *testing.T) {
	h := newHarness(t, 10*time.Second, func(context.Context) (*entities.SwapOutcome, error) {
		time.Sleep(50 * time.Millisecond)
		return entities.NewSwapOutcome("late", "", "")
	})
	o := h.orchestrator

	require.NoError(t, o.Upload(testImage(t)))
	require.NoError(t, o.Confirm(context.Background()))
	time.Sleep(10 * time.Millisecond)
	o.Reset()

	time.Sleep(120 * time.Millisecond)
	snap := o.Snapshot()
	assert.Equal(t, valueobjects.StateIdle, snap.State)
	assert.Nil(t, snap.Result)
	assert.Zero(t, snap.Progress)
}

func TestTryOnOrchestrator_ResetFromEveryState(t *testing.T) {
	h := newHarness(t, 20*time.Millisecond, swapAfter(5*time.Millisecond))
	o := h.orchestrator

	o.Reset()
	assert.Equal(t, valueobjects.StateIdle, o.Snapshot().State)

	require.NoError(t, o.Upload(testImage(t)))
	o.Reset()
	assert.Equal(t, valueobjects.StateIdle, o.Snapshot().State)

	require.NoError(t, o.Upload(testImage(t)))
	require.NoError(t, o.Confirm(context.Background()))
	_, err := o.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, valueobjects.StateComplete, o.Snapshot().State)

	o.Reset()
	snap := o.Snapshot()
	assert.Equal(t, valueobjects.StateIdle, snap.State)
	assert.Nil(t, snap.Result)
	assert.Nil(t, snap.Analysis)
}

func TestTryOnOrchestrator_UploadRules(t *testing.T) {
	h := newHarness(t, 20*time.Millisecond, swapAfter(5*time.Millisecond))
	o := h.orchestrator

	assert.ErrorIs(t, o.Confirm(context.Background()), valueobjects.ErrInvalidTransition, "confirm needs an upload")

	require.NoError(t, o.Upload(testImage(t)))
	require.NoError(t, o.Upload(testImage(t)), "replacing the image before confirming is allowed")

	rejection := &entities.ValidationError{Kind: entities.TooLarge, Message: "File size must be less than 10 MiB"}
	assert.Same(t, rejection, o.RejectUpload(rejection))
	snap := o.Snapshot()
	assert.Equal(t, valueobjects.StateFailed, snap.State)
	assert.Equal(t, entities.PhaseValidation, snap.Error.Phase)

	o.Reset()
	assert.Same(t, rejection, o.RejectUpload(rejection), "idle sessions only report the error")
	assert.Equal(t, valueobjects.StateIdle, o.Snapshot().State)
}

func TestTryOnOrchestrator_Closed(t *testing.T) {
	h := newHarness(t, 20*time.Millisecond, swapAfter(time.Millisecond))
	o := h.orchestrator

	updates, _ := o.Subscribe()
	o.Close()

	for range updates {
	}
	assert.ErrorIs(t, o.Upload(testImage(t)), ErrOrchestratorClosed)
}
