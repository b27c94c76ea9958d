package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"sellerpilot-backend/internal/application/automation"
	"sellerpilot-backend/internal/config"
	"sellerpilot-backend/internal/models"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

var (
	// ErrRuleBusy means the rule already has a run in progress. The trigger
	// is dropped, never queued.
	ErrRuleBusy = errors.New("rule is already running")

	// ErrUnknownRule means the rule name is not one of the registered four.
	ErrUnknownRule = errors.New("unknown rule")
)

// JobStatus is the dashboard view of one rule's timer.
type JobStatus struct {
	Rule     string     `json:"rule"`
	Schedule string     `json:"schedule"`
	Running  bool       `json:"running"`
	LastRun  *time.Time `json:"last_run"`
	NextRun  *time.Time `json:"next_run"`
}

type ruleState struct {
	name     string
	expr     string
	schedule cron.Schedule

	// mu serializes executions of this rule. TryLock failing IS the
	// overlap signal; nothing ever waits on it.
	mu sync.Mutex

	stateMu sync.Mutex
	running bool
	lastRun *time.Time
	nextRun *time.Time
}

// Scheduler drives one independent timer per rule. A slow run of one rule
// never delays another rule's trigger; an overlapping trigger of the same
// rule is dropped and recorded as a skipped run.
type Scheduler struct {
	engine *automation.Engine
	rules  []*ruleState
	byName map[string]*ruleState

	clock  func() time.Time
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New parses every schedule expression up front; a parse failure here is a
// configuration fault and nothing gets registered.
func New(engine *automation.Engine, schedules config.ScheduleConfig) (*Scheduler, error) {
	s := &Scheduler{
		engine: engine,
		byName: make(map[string]*ruleState),
		clock:  time.Now,
	}
	for _, def := range []struct {
		name string
		expr string
	}{
		{models.RuleSync, schedules.Sync},
		{models.RuleStale, schedules.Stale},
		{models.RuleOffer, schedules.Offer},
		{models.RuleFeedback, schedules.Feedback},
	} {
		parsed, err := cron.ParseStandard(def.expr)
		if err != nil {
			return nil, fmt.Errorf("schedule for %s: %w", def.name, err)
		}
		st := &ruleState{name: def.name, expr: def.expr, schedule: parsed}
		s.rules = append(s.rules, st)
		s.byName[def.name] = st
	}
	return s, nil
}

// Start launches the rule timers.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	for _, st := range s.rules {
		s.wg.Add(1)
		go s.runLoop(ctx, st)
	}
	log.Info().Int("rules", len(s.rules)).Msg("Scheduler started")
}

// Stop halts the timers and waits for in-flight runs to finish. Runs are
// never cancelled midway; the scheduler only prevents new starts.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	log.Info().Msg("Scheduler stopped")
}

// TriggerNow runs a rule on demand, bypassing its timer but not its mutual
// exclusion: a concurrent run of the same rule reports busy and leaves a
// skipped audit row. The call is synchronous; the report is the finished
// run's summary.
func (s *Scheduler) TriggerNow(ctx context.Context, rule string) (*automation.Report, error) {
	st, ok := s.byName[rule]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRule, rule)
	}
	return s.attempt(ctx, st, models.RunTriggerManual)
}

// Jobs reports per-rule timer state for the dashboard.
func (s *Scheduler) Jobs() []JobStatus {
	out := make([]JobStatus, 0, len(s.rules))
	for _, st := range s.rules {
		st.stateMu.Lock()
		out = append(out, JobStatus{
			Rule:     st.name,
			Schedule: st.expr,
			Running:  st.running,
			LastRun:  st.lastRun,
			NextRun:  st.nextRun,
		})
		st.stateMu.Unlock()
	}
	return out
}

// runLoop sleeps until the rule's next fire time, launches the attempt, and
// recomputes. The attempt runs in its own goroutine so a long run does not
// stall the timer; an overlapping fire then fails the TryLock and is skipped.
func (s *Scheduler) runLoop(ctx context.Context, st *ruleState) {
	defer s.wg.Done()
	for {
		now := s.clock()
		next := st.schedule.Next(now)
		st.stateMu.Lock()
		st.nextRun = &next
		st.stateMu.Unlock()

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				// Runs use a fresh context: shutdown stops the
				// timers, not work already started.
				_, _ = s.attempt(context.Background(), st, models.RunTriggerSchedule)
			}()
		}
	}
}

func (s *Scheduler) attempt(ctx context.Context, st *ruleState, trigger string) (*automation.Report, error) {
	if !st.mu.TryLock() {
		s.engine.RecordSkipped(ctx, st.name, trigger)
		return nil, fmt.Errorf("%w: %s", ErrRuleBusy, st.name)
	}
	defer st.mu.Unlock()

	started := s.clock()
	st.stateMu.Lock()
	st.running = true
	st.lastRun = &started
	st.stateMu.Unlock()
	defer func() {
		st.stateMu.Lock()
		st.running = false
		st.stateMu.Unlock()
	}()

	return s.engine.Run(ctx, st.name, trigger)
}
