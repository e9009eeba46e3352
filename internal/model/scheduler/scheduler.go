// Package scheduler fires report triggers at the configured local hour:
// daily every day, weekly on the configured weekday, monthly on the last
// day of the month.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
	"max.ks1230/expenses-bot/internal/dates"
	"max.ks1230/expenses-bot/internal/logger"
	"max.ks1230/expenses-bot/internal/model/reports"
)

const tickInterval = time.Minute

type triggerProducer interface {
	ProduceTrigger(cadence string, at time.Time) error
}

type config interface {
	Timezone() string
	ReportHour() int
	WeeklyWeekday() time.Weekday
}

type Scheduler struct {
	producer triggerProducer
	loc      *time.Location
	hour     int
	weekday  time.Weekday
	fired    map[string]string // cadence -> day it last fired
}

func New(config config, producer triggerProducer) *Scheduler {
	return &Scheduler{
		producer: producer,
		loc:      dates.Location(config.Timezone()),
		hour:     config.ReportHour(),
		weekday:  config.WeeklyWeekday(),
		fired:    make(map[string]string),
	}
}

func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	logger.Info("Start report scheduler")
	for {
		select {
		case <-ctx.Done():
			logger.Info("Stop report scheduler")
			return
		case <-ticker.C:
			s.fireDue(time.Now().In(s.loc))
		}
	}
}

func (s *Scheduler) fireDue(at time.Time) {
	for _, cadence := range s.due(at) {
		if err := s.producer.ProduceTrigger(cadence, at); err != nil {
			logger.Error("failed to produce report trigger",
				zap.Error(err), zap.String("cadence", cadence))
			continue
		}
		s.fired[cadence] = dates.Day(at)
		logger.Info("produced report trigger", zap.String("cadence", cadence))
	}
}

// due lists the cadences to fire at this instant. Each cadence fires at
// most once per day, during the configured hour.
func (s *Scheduler) due(at time.Time) []string {
	if at.Hour() != s.hour {
		return nil
	}
	day := dates.Day(at)

	var res []string
	if s.fired[reports.CadenceDaily] != day {
		res = append(res, reports.CadenceDaily)
	}
	if at.Weekday() == s.weekday && s.fired[reports.CadenceWeekly] != day {
		res = append(res, reports.CadenceWeekly)
	}
	if dates.IsMonthEnd(at) && s.fired[reports.CadenceMonthly] != day {
		res = append(res, reports.CadenceMonthly)
	}
	return res
}
