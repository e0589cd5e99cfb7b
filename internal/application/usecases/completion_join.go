package usecases

import (
	"sync"

	"tryon-storefront/internal/domain/entities"
)

// completionJoin is the barrier between revealTask and swapTask. It fires
// once the swap outcome is in and the reveal is fully advanced. Clock
// progress is capped at the ceiling; delivering the outcome forces 1.0.
//
// publish is called with j.mu held, so progress reaches the session in
// the order it was accepted here.
type completionJoin struct {
	mu          sync.Mutex
	ceiling     float64
	progress    float64
	dataReady   bool
	revealReady bool
	outcome     *entities.SwapOutcome
	publish     func(progress float64)
	done        chan struct{}
	fired       bool
}

func newCompletionJoin(ceiling float64, publish func(float64)) *completionJoin {
	if publish == nil {
		publish = func(float64) {}
	}
	return &completionJoin{
		ceiling: ceiling,
		publish: publish,
		done:    make(chan struct{}),
	}
}

// advance records a clock value and reports whether the clock should keep
// running.
func (j *completionJoin) advance(progress float64) bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.dataReady || j.revealReady {
		return false
	}
	if progress > j.ceiling {
		progress = j.ceiling
	}
	if progress > j.progress {
		j.progress = progress
		j.publish(progress)
	}
	if j.progress >= j.ceiling {
		// hold here until the swap result arrives
		j.revealReady = true
		j.fire()
		return false
	}
	return true
}

func (j *completionJoin) deliver(outcome *entities.SwapOutcome) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.dataReady {
		return
	}
	j.outcome = outcome
	j.dataReady = true

	j.progress = 1
	j.publish(1)
	j.revealReady = true
	j.fire()
}

func (j *completionJoin) fire() {
	if j.fired || !j.dataReady || !j.revealReady || j.progress < 1 {
		return
	}
	j.fired = true
	close(j.done)
}

func (j *completionJoin) ready() <-chan struct{} {
	return j.done
}

func (j *completionJoin) result() *entities.SwapOutcome {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.outcome
}

func (j *completionJoin) current() float64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.progress
}
