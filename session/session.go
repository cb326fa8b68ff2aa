// Package session bounds a teleop operating period. A session ends when its duration elapses,
// when a heartbeat source stops beating within the heartbeat window, or when End is called.
package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"go.viam.com/teleop/logging"
	"go.viam.com/teleop/utils"
)

// Reasons a session ends.
const (
	ReasonExpired         = "duration elapsed"
	ReasonHeartbeatMissed = "heartbeat missed"
	ReasonEnded           = "ended"
)

const minCheckInterval = 5 * time.Millisecond

// anySource stands for every heartbeat until Expect names the sources.
const anySource = ""

// Options configure a session. Zero durations disable the corresponding limit.
type Options struct {
	Duration        time.Duration
	HeartbeatWindow time.Duration
	Clock           clock.Clock
}

// A Session is an operating period with an optional time limit and heartbeat requirement.
type Session struct {
	mu        sync.Mutex
	id        uuid.UUID
	clk       clock.Clock
	logger    logging.Logger
	started   time.Time
	deadlines map[string]time.Time
	window    time.Duration
	duration  time.Duration
	reason    string

	done    chan struct{}
	workers utils.StoppableWorkers
}

// New starts a new session now.
func New(opts Options, logger logging.Logger) *Session {
	return NewWithID(uuid.New(), opts, logger)
}

// NewWithID starts a new session with an ID.
func NewWithID(id uuid.UUID, opts Options, logger logging.Logger) *Session {
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}
	sess := &Session{
		id:       id,
		clk:      clk,
		logger:   logger,
		started:  clk.Now(),
		window:   opts.HeartbeatWindow,
		duration: opts.Duration,
		done:     make(chan struct{}),
	}
	sess.deadlines = map[string]time.Time{anySource: sess.started.Add(sess.window)}

	interval := sess.checkInterval()
	sess.workers = utils.NewStoppableWorkers()
	if interval > 0 {
		sess.workers.AddWorkers(utils.Periodic(clk, interval, func(ctx context.Context) bool {
			return sess.check()
		}))
	}
	logger.Infow("session started", "id", id.String(), "duration", opts.Duration, "heartbeat_window", opts.HeartbeatWindow)
	return sess
}

// checkInterval is the watchdog period: half of the tightest limit.
func (s *Session) checkInterval() time.Duration {
	var interval time.Duration
	for _, limit := range []time.Duration{s.duration, s.window} {
		if limit <= 0 {
			continue
		}
		if interval == 0 || limit/2 < interval {
			interval = limit / 2
		}
	}
	if interval > 0 && interval < minCheckInterval {
		interval = minCheckInterval
	}
	return interval
}

// check ends the session if a limit has passed and reports whether to keep watching.
func (s *Session) check() bool {
	now := s.clk.Now()
	s.mu.Lock()
	reason := ""
	var missed []string
	switch {
	case s.duration > 0 && !now.Before(s.started.Add(s.duration)):
		reason = ReasonExpired
	case s.window > 0:
		missed = s.lapsedLocked(now)
		if len(missed) > 0 {
			reason = ReasonHeartbeatMissed
		}
	}
	s.mu.Unlock()
	if reason == "" {
		return true
	}
	if len(missed) > 0 {
		s.logger.Warnw("heartbeat missed", "id", s.id.String(), "sources", missed, "window", s.window)
	}
	s.end(reason)
	return false
}

// lapsedLocked returns the sorted sources whose deadline is not after `now`.
func (s *Session) lapsedLocked(now time.Time) []string {
	var lapsed []string
	for source, deadline := range s.deadlines {
		if !deadline.After(now) {
			lapsed = append(lapsed, source)
		}
	}
	sort.Strings(lapsed)
	return lapsed
}

// ID returns the id of this session.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Expect replaces the heartbeat sources of the session. From now on every source must beat
// within the heartbeat window, each on its own, for the session to stay active.
func (s *Session) Expect(sources ...string) {
	if len(sources) == 0 {
		return
	}
	deadline := s.clk.Now().Add(s.window)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deadlines = make(map[string]time.Time, len(sources))
	for _, source := range sources {
		s.deadlines[source] = deadline
	}
}

// Heartbeat signals a heartbeat on behalf of every source.
func (s *Session) Heartbeat() {
	deadline := s.clk.Now().Add(s.window)
	s.mu.Lock()
	defer s.mu.Unlock()
	for source := range s.deadlines {
		s.deadlines[source] = deadline
	}
}

// HeartbeatFrom signals a heartbeat from one source. Sources that were not expected are ignored.
func (s *Session) HeartbeatFrom(source string) {
	deadline := s.clk.Now().Add(s.window)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.deadlines[source]; ok {
		s.deadlines[source] = deadline
	}
}

// Active reports whether the session has not ended and no limit has passed.
func (s *Session) Active() bool {
	select {
	case <-s.done:
		return false
	default:
	}
	now := s.clk.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.duration > 0 && !now.Before(s.started.Add(s.duration)) {
		return false
	}
	return s.window <= 0 || len(s.lapsedLocked(now)) == 0
}

// Done is closed when the session ends.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Reason returns why the session ended, or "" while it is running.
func (s *Session) Reason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// HeartbeatWindow returns the time window within which every source must beat.
func (s *Session) HeartbeatWindow() time.Duration {
	return s.window
}

// Deadline returns when this session expires unless the source due soonest beats again.
func (s *Session) Deadline() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	var earliest time.Time
	for _, deadline := range s.deadlines {
		if earliest.IsZero() || deadline.Before(earliest) {
			earliest = deadline
		}
	}
	return earliest
}

// End ends the session. Ending an ended session does nothing.
func (s *Session) End() {
	s.end(ReasonEnded)
	s.workers.Stop()
}

func (s *Session) end(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reason != "" {
		return
	}
	s.reason = reason
	close(s.done)
	s.logger.Infow("session ended", "id", s.id.String(), "reason", reason)
}
