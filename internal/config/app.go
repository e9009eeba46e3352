package config

import "time"

const (
	defaultTimezone = "Asia/Kolkata"
	defaultPort     = 3000
	defaultHour     = 21
)

type AppConfig struct {
	Secret        string `yaml:"access-secret"`
	TimezoneName  string `yaml:"timezone"`
	HTTPPort      int    `yaml:"http-port"`
	ReportHourVal int    `yaml:"report-hour"`
	WeeklyDayVal  int    `yaml:"weekly-report-day"`
}

func (s *AppConfig) AccessSecret() string {
	return s.Secret
}

func (s *AppConfig) Timezone() string {
	if s.TimezoneName == "" {
		return defaultTimezone
	}
	return s.TimezoneName
}

func (s *AppConfig) Port() int {
	if s.HTTPPort == 0 {
		return defaultPort
	}
	return s.HTTPPort
}

// ReportHour is the local hour at which every cadence fires.
func (s *AppConfig) ReportHour() int {
	if s.ReportHourVal == 0 {
		return defaultHour
	}
	return s.ReportHourVal
}

// WeeklyWeekday is the day of week for the weekly digest, 0 = Sunday.
func (s *AppConfig) WeeklyWeekday() time.Weekday {
	return time.Weekday(s.WeeklyDayVal % 7)
}
