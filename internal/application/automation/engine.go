package automation

import (
	"context"
	"fmt"
	"time"

	"sellerpilot-backend/internal/config"
	"sellerpilot-backend/internal/marketplace"
	"sellerpilot-backend/internal/models"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Engine executes the four automation rules against the state store. It keeps
// no state between runs; every invocation rehydrates from the store, so an
// abrupt restart loses nothing.
type Engine struct {
	DB     *gorm.DB
	Client marketplace.Client
	Cfg    config.AutomationConfig

	// Now is the engine clock. Tests override it for cooldown and
	// time-window cases; nil means time.Now.
	Now func() time.Time
}

func New(db *gorm.DB, client marketplace.Client, cfg config.AutomationConfig) *Engine {
	return &Engine{DB: db, Client: client, Cfg: cfg}
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Run executes one rule end to end and appends its audit row. The row is
// written even when the rule body panics; the panic is converted to a failed
// run and not re-raised, so one broken rule never takes the scheduler down.
func (e *Engine) Run(ctx context.Context, rule, trigger string) (rep *Report, err error) {
	started := e.now()
	log.Info().Str("rule", rule).Str("trigger", trigger).Msg("Automation rule starting")

	defer func() {
		if rec := recover(); rec != nil {
			if rep == nil {
				rep = newReport(rule)
			}
			err = fmt.Errorf("rule %s panicked: %v", rule, rec)
		}
		finished := e.now()
		status := models.RunStatusFailed
		if err == nil && rep != nil {
			status = rep.Status()
		}
		e.appendRun(ctx, rep, trigger, status, err, started, finished)

		ev := log.Info()
		if status == models.RunStatusFailed {
			ev = log.Error().Err(err)
		}
		ev.Str("rule", rule).Str("status", status).
			Int("considered", considered(rep)).Int("acted_on", actedOn(rep)).Int("failed", failures(rep)).
			Dur("elapsed", finished.Sub(started)).Msg("Automation rule finished")
	}()

	switch rule {
	case models.RuleSync:
		rep, err = e.runSync(ctx)
	case models.RuleStale:
		rep, err = e.runStaleRelist(ctx)
	case models.RuleOffer:
		rep, err = e.runOffer(ctx)
	case models.RuleFeedback:
		rep, err = e.runFeedback(ctx)
	default:
		rep, err = newReport(rule), fmt.Errorf("unknown rule %q", rule)
	}
	return rep, err
}

// RecordSkipped appends the audit row for a run that was dropped because the
// same rule was still executing. StartedAt equals FinishedAt.
func (e *Engine) RecordSkipped(ctx context.Context, rule, trigger string) {
	now := e.now()
	run := models.AutomationRun{
		Rule:       rule,
		Trigger:    trigger,
		Status:     models.RunStatusSkipped,
		Error:      "previous run still in progress",
		StartedAt:  now,
		FinishedAt: now,
	}
	if err := e.DB.WithContext(ctx).Create(&run).Error; err != nil {
		log.Error().Err(err).Str("rule", rule).Msg("Failed to record skipped run")
	}
	log.Warn().Str("rule", rule).Str("trigger", trigger).Msg("Automation rule skipped: previous run still in progress")
}

func (e *Engine) appendRun(ctx context.Context, rep *Report, trigger, status string, runErr error, started, finished time.Time) {
	run := models.AutomationRun{
		Trigger:    trigger,
		Status:     status,
		StartedAt:  started,
		FinishedAt: finished,
	}
	if rep != nil {
		run.Rule = rep.Rule
		run.Considered = rep.Considered
		run.ActedOn = rep.ActedOn
		run.Failed = rep.Failed
		run.Detail = rep.detailJSON()
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	if err := e.DB.WithContext(ctx).Create(&run).Error; err != nil {
		log.Error().Err(err).Str("rule", run.Rule).Msg("Failed to persist automation run")
	}
}

func considered(rep *Report) int {
	if rep == nil {
		return 0
	}
	return rep.Considered
}

func actedOn(rep *Report) int {
	if rep == nil {
		return 0
	}
	return rep.ActedOn
}

func failures(rep *Report) int {
	if rep == nil {
		return 0
	}
	return rep.Failed
}
