package entities

import (
	"errors"
	"fmt"
	"time"

	"tryon-storefront/internal/domain/valueobjects"
)

type SessionID string

// TryOnSession is the single source of truth for one try-on modal.
// It is not safe for concurrent use; the orchestrator serialises access.
type TryOnSession struct {
	id           SessionID
	state        valueobjects.SessionState
	image        *valueobjects.UploadedImage
	metadata     *AnalysisMetadata
	referenceKey valueobjects.ReferenceImageKey
	referenceURL string
	outcome      *SwapOutcome
	progress     float64
	failure      error
	createdAt    time.Time
	updatedAt    time.Time
}

func NewTryOnSession(id SessionID) *TryOnSession {
	now := time.Now()
	return &TryOnSession{
		id:        id,
		state:     valueobjects.StateIdle,
		createdAt: now,
		updatedAt: now,
	}
}

func (s *TryOnSession) ID() SessionID {
	return s.id
}

func (s *TryOnSession) State() valueobjects.SessionState {
	return s.state
}

func (s *TryOnSession) Image() *valueobjects.UploadedImage {
	return s.image
}

func (s *TryOnSession) Metadata() *AnalysisMetadata {
	return s.metadata
}

func (s *TryOnSession) ReferenceKey() valueobjects.ReferenceImageKey {
	return s.referenceKey
}

func (s *TryOnSession) Progress() float64 {
	return s.progress
}

func (s *TryOnSession) Failure() error {
	return s.failure
}

func (s *TryOnSession) UpdatedAt() time.Time {
	return s.updatedAt
}

// Outcome is nil until the session is complete.
func (s *TryOnSession) Outcome() *SwapOutcome {
	if s.state != valueobjects.StateComplete {
		return nil
	}
	return s.outcome
}

func (s *TryOnSession) transition(to valueobjects.SessionState) error {
	if err := valueobjects.ValidateTransition(s.state, to); err != nil {
		return err
	}
	s.state = to
	s.updatedAt = time.Now()
	return nil
}

func (s *TryOnSession) Upload(image *valueobjects.UploadedImage) error {
	if image == nil {
		return fmt.Errorf("uploaded image is required")
	}
	if err := s.transition(valueobjects.StateUploading); err != nil {
		return err
	}
	s.image = image
	return nil
}

func (s *TryOnSession) BeginProcessing() error {
	if s.image == nil {
		return fmt.Errorf("%w: no uploaded image", valueobjects.ErrInvalidTransition)
	}
	if err := s.transition(valueobjects.StateProcessing); err != nil {
		return err
	}
	s.progress = 0
	s.failure = nil
	return nil
}

func (s *TryOnSession) BeginReveal(metadata *AnalysisMetadata, key valueobjects.ReferenceImageKey, referenceURL string) error {
	if metadata == nil {
		return fmt.Errorf("%w: reveal requires analysis metadata", valueobjects.ErrInvalidTransition)
	}
	if key.IsZero() {
		return fmt.Errorf("%w: reveal requires a reference key", valueobjects.ErrInvalidTransition)
	}
	if err := s.transition(valueobjects.StateRevealing); err != nil {
		return err
	}
	s.metadata = metadata
	s.referenceKey = key
	s.referenceURL = referenceURL
	s.progress = 0
	return nil
}

// AdvanceReveal records reveal progress. Values never decrease and are
// ignored outside of the revealing state.
func (s *TryOnSession) AdvanceReveal(progress float64) {
	if s.state != valueobjects.StateRevealing {
		return
	}
	if progress > 1 {
		progress = 1
	}
	if progress > s.progress {
		s.progress = progress
		s.updatedAt = time.Now()
	}
}

func (s *TryOnSession) Complete(outcome *SwapOutcome) error {
	if outcome == nil {
		return fmt.Errorf("%w: completion requires a swap outcome", valueobjects.ErrInvalidTransition)
	}
	if s.state == valueobjects.StateRevealing && s.progress < 1 {
		return fmt.Errorf("%w: reveal at %.2f", valueobjects.ErrInvalidTransition, s.progress)
	}
	if err := s.transition(valueobjects.StateComplete); err != nil {
		return err
	}
	s.outcome = outcome
	return nil
}

func (s *TryOnSession) Fail(cause error) error {
	if cause == nil {
		return errors.New("failure cause is required")
	}
	if err := s.transition(valueobjects.StateFailed); err != nil {
		return err
	}
	s.failure = cause
	return nil
}

// Reset returns the session to idle and drops everything derived from the
// previous upload.
func (s *TryOnSession) Reset() {
	s.state = valueobjects.StateIdle
	s.image = nil
	s.metadata = nil
	s.referenceKey = valueobjects.ReferenceImageKey{}
	s.referenceURL = ""
	s.outcome = nil
	s.progress = 0
	s.failure = nil
	s.updatedAt = time.Now()
}

type AnalysisView struct {
	BodyType  valueobjects.BodyType  `json:"body_type"`
	SkinColor valueobjects.SkinColor `json:"skin_color"`
	Gender    string                 `json:"gender,omitempty"`
}

type ResultView struct {
	OutputImage          string `json:"output_image"`
	PregeneratedImageURL string `json:"pregenerated_image_url,omitempty"`
	Warning              string `json:"warning,omitempty"`
}

type ErrorView struct {
	Phase   Phase  `json:"phase"`
	Message string `json:"message"`
}

// SessionSnapshot is an immutable copy of the session for rendering.
type SessionSnapshot struct {
	ID                SessionID                 `json:"id"`
	State             valueobjects.SessionState `json:"state"`
	Progress          float64                   `json:"progress"`
	FileName          string                    `json:"file_name,omitempty"`
	SizeBytes         int64                     `json:"size_bytes,omitempty"`
	Analysis          *AnalysisView             `json:"analysis,omitempty"`
	ReferenceImageURL string                    `json:"reference_image_url,omitempty"`
	Result            *ResultView               `json:"result,omitempty"`
	Error             *ErrorView                `json:"error,omitempty"`
	UpdatedAt         time.Time                 `json:"updated_at"`
}

func (s *TryOnSession) Snapshot() SessionSnapshot {
	snap := SessionSnapshot{
		ID:        s.id,
		State:     s.state,
		Progress:  s.progress,
		UpdatedAt: s.updatedAt,
	}
	if s.image != nil {
		snap.FileName = s.image.FileName()
		snap.SizeBytes = s.image.SizeBytes()
	}
	if s.metadata != nil {
		snap.Analysis = &AnalysisView{
			BodyType:  s.metadata.BodyType(),
			SkinColor: s.metadata.SkinColor(),
			Gender:    s.metadata.Gender(),
		}
	}
	if !s.referenceKey.IsZero() && s.state != valueobjects.StateFailed {
		snap.ReferenceImageURL = s.referenceURL
	}
	if outcome := s.Outcome(); outcome != nil {
		snap.Result = &ResultView{
			OutputImage:          outcome.OutputImageRef(),
			PregeneratedImageURL: outcome.PregeneratedImageURL(),
			Warning:              outcome.Warning(),
		}
	}
	if s.failure != nil {
		snap.Error = &ErrorView{
			Phase:   PhaseOf(s.failure),
			Message: s.failure.Error(),
		}
	}
	return snap
}
