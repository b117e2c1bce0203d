package models

import (
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
)

// ErrMissingSchedule is returned when a scheduled workflow has no cron expression.
var ErrMissingSchedule = errors.New("scheduled workflow requires trigger_config.schedule")

// scheduleParser accepts the standard 5-field cron format (minute hour day month weekday).
var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSchedule parses a 5-field cron expression or a descriptor such as @hourly.
func ParseSchedule(expression string) (cron.Schedule, error) {
	if expression == "" {
		return nil, ErrMissingSchedule
	}

	schedule, err := scheduleParser.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expression, err)
	}

	return schedule, nil
}
