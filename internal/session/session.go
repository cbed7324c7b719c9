// Package session drives one practice run: a queue of questions, the
// playback/answer state machine, and the persistent mistake and slow-response
// pools.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/qvreis/earpro/internal/model"
	"github.com/qvreis/earpro/internal/store"
)

// slowThreshold marks an answer as slow; slow entries stay in their pool
// until cleared by a review session.
const slowThreshold = 2 * time.Second

// Phase is the session's current state.
type Phase int

// Session phases. Playing covers the playback window of a question; the
// transition to WaitingAnswer fires when playback completes.
const (
	PhaseIdle Phase = iota
	PhasePlaying
	PhaseWaitingAnswer
	PhaseAnswered
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePlaying:
		return "playing"
	case PhaseWaitingAnswer:
		return "waiting_answer"
	case PhaseAnswered:
		return "answered"
	case PhaseFinished:
		return "finished"
	}
	return "unknown"
}

// Errors returned by session transitions.
var (
	ErrBusyPlaying = errors.New("playback already in progress")
	ErrFinished    = errors.New("session already finished")
	ErrNotWaiting  = errors.New("no answer expected in this phase")
	ErrNotAnswered = errors.New("current question not answered yet")
)

// Player schedules the notes of a question for playback and returns the
// playback duration in seconds.
type Player interface {
	Schedule(inst model.Instrument, notes []model.Pitch, mode model.PlayMode, dir model.Direction) (float64, error)
}

// Pools persists mistake and slow-response entries.
type Pools interface {
	AddToPool(ctx context.Context, pool store.Pool, entry model.PoolEntry) error
	RemoveFromPool(ctx context.Context, pool store.Pool, intervalID model.IntervalID, root model.Pitch) error
}

// Session runs one practice session over a fixed question queue. All methods
// are safe for concurrent use; the playback-completion callback runs on a
// timer goroutine.
type Session struct {
	mu sync.Mutex

	cfg     model.SessionConfig
	mode    model.SessionMode
	inst    model.Instrument
	queue   []model.Question
	index   int
	phase   Phase
	answer  *model.Answer
	results []model.QuestionResult

	startedAt  time.Time
	timerStart time.Time
	timerSet   bool

	// generation invalidates stale playback-completion callbacks when a
	// replay or abandon supersedes them.
	generation int64

	player Player
	pools  Pools
	logf   func(format string, args ...any)

	now   func() time.Time
	after func(d time.Duration, f func()) *time.Timer

	// onPhase, when set, is invoked (outside the lock) after every phase
	// change so a UI can refresh. cbQueue keeps deliveries in transition
	// order; cbBusy marks the single dispatching goroutine.
	onPhase func(Phase)
	cbQueue []Phase
	cbBusy  bool
}

// Option configures a Session.
type Option func(*Session)

// WithClock replaces the wall clock; used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithAfterFunc replaces the playback-completion timer; used by tests.
func WithAfterFunc(after func(d time.Duration, f func()) *time.Timer) Option {
	return func(s *Session) { s.after = after }
}

// WithPhaseCallback registers a listener for phase changes. Callbacks are
// delivered one at a time, in transition order, on a dispatch goroutine.
func WithPhaseCallback(fn func(Phase)) Option {
	return func(s *Session) { s.onPhase = fn }
}

// WithLogger sets the diagnostic logger for best-effort pool writes.
func WithLogger(logf func(format string, args ...any)) Option {
	return func(s *Session) { s.logf = logf }
}

// New creates a session over a prepared question queue.
func New(cfg model.SessionConfig, mode model.SessionMode, queue []model.Question, player Player, pools Pools, opts ...Option) *Session {
	inst, ok := model.InstrumentByID(cfg.Instrument)
	if !ok {
		inst, _ = model.InstrumentByID(model.InstrumentPiano)
	}
	s := &Session{
		cfg:    cfg,
		mode:   mode,
		inst:   inst,
		queue:  queue,
		phase:  PhaseIdle,
		player: player,
		pools:  pools,
		logf:   func(string, ...any) {},
		now:    time.Now,
		after:  time.AfterFunc,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startedAt = s.now()
	if len(queue) == 0 {
		s.phase = PhaseFinished
	}
	return s
}

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Mode returns the session mode.
func (s *Session) Mode() model.SessionMode { return s.mode }

// Current returns the active question. ok is false once the session is
// finished.
func (s *Session) Current() (model.Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index >= len(s.queue) {
		return model.Question{}, false
	}
	return s.queue[s.index], true
}

// Progress returns the zero-based question index and the queue length.
func (s *Session) Progress() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index, len(s.queue)
}

// CurrentAnswer returns the recorded answer for the active question, if any.
func (s *Session) CurrentAnswer() (model.Answer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.answer == nil {
		return model.Answer{}, false
	}
	return *s.answer, true
}

// ResponseElapsed returns the running response time for the active question.
// ok is false before the first playback completes and after the answer is in.
func (s *Session) ResponseElapsed() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.timerSet || s.answer != nil {
		return 0, false
	}
	return s.now().Sub(s.timerStart), true
}

// PlayQuestion schedules playback of the active question. It is valid from
// Idle (first play), WaitingAnswer, and Answered (replays); a replay does not
// restart the response timer. The phase moves to Playing for the playback
// duration and then settles back: WaitingAnswer when unanswered, Answered
// otherwise.
func (s *Session) PlayQuestion() error {
	s.mu.Lock()
	switch s.phase {
	case PhasePlaying:
		s.mu.Unlock()
		return ErrBusyPlaying
	case PhaseFinished:
		s.mu.Unlock()
		return ErrFinished
	}
	q := s.queue[s.index]
	prev := s.phase
	s.generation++
	gen := s.generation
	s.setPhaseLocked(PhasePlaying)
	s.mu.Unlock()

	dur, err := s.player.Schedule(s.inst, q.Notes[:], q.Direction.Mode(), q.Direction)
	if err != nil {
		s.mu.Lock()
		// Roll back so the question can be retried.
		if s.generation == gen && s.phase == PhasePlaying {
			s.setPhaseLocked(prev)
		}
		s.mu.Unlock()
		return err
	}

	s.after(time.Duration(dur*float64(time.Second)), func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.generation != gen || s.phase != PhasePlaying {
			return
		}
		s.settleLocked()
	})
	return nil
}

// settleLocked moves out of Playing and starts the response timer on the
// first entry into WaitingAnswer.
func (s *Session) settleLocked() {
	if s.answer != nil {
		s.setPhaseLocked(PhaseAnswered)
		return
	}
	if !s.timerSet {
		s.timerStart = s.now()
		s.timerSet = true
	}
	s.setPhaseLocked(PhaseWaitingAnswer)
}

// SubmitAnswer records the chosen interval for the active question, updates
// the pools, and moves to Answered. A second submit for the same question is
// a no-op returning the recorded answer.
func (s *Session) SubmitAnswer(ctx context.Context, chosen model.IntervalID) (model.Answer, error) {
	s.mu.Lock()
	if s.answer != nil {
		ans := *s.answer
		s.mu.Unlock()
		return ans, nil
	}
	if s.phase != PhaseWaitingAnswer {
		phase := s.phase
		s.mu.Unlock()
		if phase == PhaseFinished {
			return model.Answer{}, ErrFinished
		}
		return model.Answer{}, ErrNotWaiting
	}

	q := s.queue[s.index]
	var elapsed time.Duration
	if s.timerSet {
		elapsed = s.now().Sub(s.timerStart)
	}
	ans := model.Answer{
		ChosenID:  chosen,
		CorrectID: q.Interval.ID,
		IsCorrect: chosen == q.Interval.ID,
	}
	s.answer = &ans
	s.results = append(s.results, model.QuestionResult{
		IntervalID: q.Interval.ID,
		Root:       q.Root,
		Direction:  q.Direction,
		Correct:    ans.IsCorrect,
		ResponseMs: elapsed.Milliseconds(),
	})
	s.setPhaseLocked(PhaseAnswered)
	s.mu.Unlock()

	s.updatePools(ctx, q, ans, elapsed)
	return ans, nil
}

// updatePools applies pool side effects. Writes are best-effort: a failed
// write is logged but never blocks the session.
func (s *Session) updatePools(ctx context.Context, q model.Question, ans model.Answer, elapsed time.Duration) {
	if s.pools == nil {
		return
	}
	entry := model.PoolEntry{
		IntervalID: q.Interval.ID,
		Root:       q.Root,
		Direction:  q.Direction,
		AddedAt:    s.now(),
	}
	if ans.IsCorrect {
		// Answering the same item correctly clears an earlier mistake.
		if err := s.pools.RemoveFromPool(ctx, store.PoolMistakes, q.Interval.ID, q.Root); err != nil {
			s.logf("failed to clear mistake entry: %v\n", err)
		}
	} else {
		if err := s.pools.AddToPool(ctx, store.PoolMistakes, entry); err != nil {
			s.logf("failed to record mistake: %v\n", err)
		}
	}
	if elapsed > slowThreshold {
		if err := s.pools.AddToPool(ctx, store.PoolSlow, entry); err != nil {
			s.logf("failed to record slow response: %v\n", err)
		}
	}
}

// Advance moves to the next question. Valid only from Answered; the session
// finishes when the queue is exhausted.
func (s *Session) Advance() (finished bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseFinished {
		return true, ErrFinished
	}
	if s.phase != PhaseAnswered {
		return false, ErrNotAnswered
	}
	s.index++
	s.answer = nil
	s.timerSet = false
	s.generation++ // drop a straggling playback callback
	if s.index >= len(s.queue) {
		s.setPhaseLocked(PhaseFinished)
		return true, nil
	}
	s.setPhaseLocked(PhaseIdle)
	return false, nil
}

// Abandon ends the session early. Pending playback callbacks are invalidated
// and no pool writes happen; answered questions keep their recorded results.
func (s *Session) Abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseFinished {
		return
	}
	s.generation++
	s.setPhaseLocked(PhaseFinished)
}

// Results returns the recorded per-question outcomes so far.
func (s *Session) Results() []model.QuestionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.QuestionResult, len(s.results))
	copy(out, s.results)
	return out
}

// Record summarizes the session for the history store.
func (s *Session) Record() model.SessionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := model.SessionRecord{
		StartedAt:  s.startedAt,
		EndedAt:    s.now(),
		Mode:       s.mode,
		Instrument: s.cfg.Instrument,
		Questions:  len(s.results),
	}
	var sum int64
	for _, r := range s.results {
		if r.Correct {
			rec.Correct++
		}
		sum += r.ResponseMs
	}
	if len(s.results) > 0 {
		rec.AvgResponseMs = sum / int64(len(s.results))
	}
	return rec
}

func (s *Session) setPhaseLocked(p Phase) {
	s.phase = p
	if s.onPhase == nil {
		return
	}
	s.cbQueue = append(s.cbQueue, p)
	if s.cbBusy {
		return
	}
	s.cbBusy = true
	go s.drainPhaseCallbacks()
}

// drainPhaseCallbacks delivers queued phase changes one at a time so the
// listener observes them in transition order.
func (s *Session) drainPhaseCallbacks() {
	for {
		s.mu.Lock()
		if len(s.cbQueue) == 0 {
			s.cbBusy = false
			s.mu.Unlock()
			return
		}
		p := s.cbQueue[0]
		s.cbQueue = s.cbQueue[1:]
		s.mu.Unlock()
		s.onPhase(p)
	}
}
