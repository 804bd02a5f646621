package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskSearchAnalytics = "search.analytics.record"

type SearchAnalyticsPayload struct {
	HouseholdID  string `json:"householdId"`
	UserID       string `json:"userId"`
	QueryLength  int    `json:"queryLength"`
	SearchMethod string `json:"searchMethod"`
	ResultCount  int    `json:"resultCount"`
	DurationMs   int64  `json:"durationMs"`
	Suggestion   bool   `json:"suggestion"`
}

func NewSearchAnalyticsTask(payload SearchAnalyticsPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSearchAnalytics, data), nil
}

func ParseSearchAnalyticsPayload(task *asynq.Task) (SearchAnalyticsPayload, error) {
	var payload SearchAnalyticsPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return SearchAnalyticsPayload{}, err
	}
	return payload, nil
}
