package launcher

import (
	"errors"
	"sync"
	"time"

	"github.com/flatironinstitute/neurosift/internal/id"
)

// Stage is a step of a ViewFile run.
type Stage string

const (
	StageInit                 Stage = "INIT"
	StageStagingReady         Stage = "STAGING_READY"
	StageDependenciesVerified Stage = "DEPENDENCIES_VERIFIED"
	StageServerStarting       Stage = "SERVER_STARTING"
	StageBrowserOpened        Stage = "BROWSER_OPENED"
	StageWaitingOnChild       Stage = "WAITING_ON_CHILD"
	StageTeardown             Stage = "TEARDOWN"
	StageDone                 Stage = "DONE"
	StageFailed               Stage = "FAILED"
)

// IsTerminal returns true if no further transition is possible.
func (s Stage) IsTerminal() bool {
	return s == StageDone || s == StageFailed
}

// ErrInvalidTransition is returned when an invalid stage transition is attempted.
var ErrInvalidTransition = errors.New("invalid stage transition")

// validTransitions is linear; every working stage may bail out to teardown.
var validTransitions = map[Stage][]Stage{
	StageInit:                 {StageStagingReady, StageTeardown},
	StageStagingReady:         {StageDependenciesVerified, StageTeardown},
	StageDependenciesVerified: {StageServerStarting, StageTeardown},
	StageServerStarting:       {StageBrowserOpened, StageTeardown},
	StageBrowserOpened:        {StageWaitingOnChild, StageTeardown},
	StageWaitingOnChild:       {StageTeardown},
	StageTeardown:             {StageDone, StageFailed},
	StageDone:                 {},
	StageFailed:               {},
}

func canTransition(from, to Stage) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Session tracks one ViewFile run.
type Session struct {
	mu sync.RWMutex

	// ID identifies the run in logs.
	ID string
	// Stage is the current step.
	Stage Stage
	// Port is the local server port, once chosen.
	Port int
	// StagingDir is the staging directory, once created.
	StagingDir string
	// URL is the viewer URL handed to the browser.
	URL string
	// StartedAt is when the session was created.
	StartedAt time.Time
	// EndedAt is when the session reached a terminal stage.
	EndedAt time.Time
}

// NewSession creates a session in StageInit.
func NewSession() *Session {
	return &Session{
		ID:        id.Generate("view"),
		Stage:     StageInit,
		StartedAt: time.Now(),
	}
}

// TransitionTo moves the session to stage.
// Returns ErrInvalidTransition if the transition is not allowed.
func (s *Session) TransitionTo(stage Stage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !canTransition(s.Stage, stage) {
		return ErrInvalidTransition
	}
	s.Stage = stage
	if stage.IsTerminal() {
		s.EndedAt = time.Now()
	}
	return nil
}

// CurrentStage returns the current stage.
func (s *Session) CurrentStage() Stage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Stage
}

func (s *Session) set(fn func(*Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}
