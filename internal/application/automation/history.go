package automation

import (
	"context"
	"fmt"

	"sellerpilot-backend/internal/models"
)

const (
	defaultRunsPerPage = 50
	maxRunsPerPage     = 200
)

// RunPage is one page of the run audit feed, newest first.
type RunPage struct {
	Items   []models.AutomationRun `json:"items"`
	Total   int64                  `json:"total"`
	Page    int                    `json:"page"`
	PerPage int                    `json:"per_page"`
}

// History returns persisted runs for the dashboard, optionally filtered by
// rule, newest first.
func (e *Engine) History(ctx context.Context, rule string, page, perPage int) (*RunPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultRunsPerPage
	}
	if perPage > maxRunsPerPage {
		perPage = maxRunsPerPage
	}

	q := e.DB.WithContext(ctx).Model(&models.AutomationRun{})
	if rule != "" {
		q = q.Where("rule = ?", rule)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count runs: %w", err)
	}

	var items []models.AutomationRun
	if err := q.Order("started_at DESC").Limit(perPage).Offset((page - 1) * perPage).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("fetch runs: %w", err)
	}

	return &RunPage{Items: items, Total: total, Page: page, PerPage: perPage}, nil
}
