package automation

import (
	"encoding/json"

	"sellerpilot-backend/internal/models"

	"gorm.io/datatypes"
)

// Report summarizes one rule run. Considered counts the entities the rule
// looked at, ActedOn the entities it changed, Failed the entities whose
// processing failed in any way. Detail carries per-rule counters for the
// audit row.
type Report struct {
	Rule       string
	Considered int
	ActedOn    int
	Failed     int
	Detail     map[string]interface{}
}

func newReport(rule string) *Report {
	return &Report{Rule: rule, Detail: map[string]interface{}{}}
}

func (r *Report) count(key string) {
	n, _ := r.Detail[key].(int)
	r.Detail[key] = n + 1
}

func (r *Report) set(key string, v interface{}) {
	r.Detail[key] = v
}

// Status derives the run status from the counters. A run with failures but at
// least one completed action is partial; a run where nothing succeeded is
// failed.
func (r *Report) Status() string {
	switch {
	case r.Failed == 0:
		return models.RunStatusSuccess
	case r.ActedOn > 0:
		return models.RunStatusPartial
	default:
		return models.RunStatusFailed
	}
}

func (r *Report) detailJSON() datatypes.JSON {
	if len(r.Detail) == 0 {
		return nil
	}
	b, err := json.Marshal(r.Detail)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}
