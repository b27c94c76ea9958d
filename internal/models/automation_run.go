package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Automation rule names. These are the scheduler's unit of mutual exclusion
// and the Rule column of automation_runs.
const (
	RuleSync     = "sync"
	RuleStale    = "stale_relist"
	RuleOffer    = "offer"
	RuleFeedback = "feedback"
)

// RuleAccountDeletion audits compliance webhook purges. It has no schedule;
// rows appear only when the marketplace posts a deletion notice.
const RuleAccountDeletion = "account_deletion"

// Run statuses.
const (
	RunStatusSuccess = "success"
	RunStatusPartial = "partial"
	RunStatusFailed  = "failed"
	RunStatusSkipped = "skipped"
)

// Run triggers.
const (
	RunTriggerSchedule = "schedule"
	RunTriggerManual   = "manual"
	RunTriggerWebhook  = "webhook"
)

// AutomationRun is the audit row for one rule execution. It is written once,
// after the run finishes, and never updated. A run dropped because the same
// rule was still executing gets a row too, with status "skipped" and
// StartedAt == FinishedAt.
type AutomationRun struct {
	ID         uint           `gorm:"column:id;primaryKey" json:"id"`
	RunID      uuid.UUID      `gorm:"column:run_id;type:uuid;uniqueIndex" json:"run_id"`
	Rule       string         `gorm:"column:rule;index;not null" json:"rule"`
	Trigger    string         `gorm:"column:trigger;type:varchar(20);not null" json:"trigger"`
	Status     string         `gorm:"column:status;type:varchar(20);index;not null" json:"status"`
	Considered int            `gorm:"column:considered;not null;default:0" json:"considered"`
	ActedOn    int            `gorm:"column:acted_on;not null;default:0" json:"acted_on"`
	Failed     int            `gorm:"column:failed;not null;default:0" json:"failed"`
	Detail     datatypes.JSON `gorm:"column:detail" json:"detail"`
	Error      string         `gorm:"column:error" json:"error,omitempty"`
	StartedAt  time.Time      `gorm:"column:started_at;index;not null" json:"started_at"`
	FinishedAt time.Time      `gorm:"column:finished_at;not null" json:"finished_at"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (AutomationRun) TableName() string {
	return "automation_runs"
}

func (r *AutomationRun) BeforeCreate(tx *gorm.DB) error {
	if r.RunID == uuid.Nil {
		r.RunID = uuid.New()
	}
	return nil
}
