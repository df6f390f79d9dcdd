// Package config loads application settings through viper.
package config

import (
	"fmt"

	"github.com/Veraticus/spice-sms/internal/common"
	"github.com/Veraticus/spice-sms/internal/forecast"
	"github.com/Veraticus/spice-sms/internal/pattern"
	"github.com/Veraticus/spice-sms/internal/similarity"
	"github.com/spf13/viper"
)

// Configuration keys.
const (
	KeyDatabasePath            = "database.path"
	KeyLogLevel                = "logging.level"
	KeyLogFormat               = "logging.format"
	KeySMSBackup               = "sms.backup"
	KeySMSSender               = "sms.sender"
	KeySimilarityThreshold     = "similarity.threshold"
	KeyClusterThreshold        = "pattern.cluster_threshold"
	KeyMinConfidence           = "pattern.min_confidence"
	KeyForecastHistoryMonths   = "forecast.history_months"
	KeyForecastRecentMonths    = "forecast.recent_months"
	KeyForecastGracePeriodDays = "forecast.grace_period_days"
	KeyDormantMatcher          = "forecast.dormant_matcher"
	KeyBudgetMonths            = "budget.months"
)

// DefaultDatabasePath is where the database lives unless configured otherwise.
const DefaultDatabasePath = "~/.local/share/spice/spice.db"

// Settings holds every tunable value.
type Settings struct {
	DatabasePath        string
	LogLevel            string
	LogFormat           string
	SMSBackup           string
	SMSSender           string
	SimilarityThreshold float64
	Pattern             pattern.Config
	Forecast            ForecastSettings
	BudgetMonths        int
}

// ForecastSettings configures the expense predictor.
type ForecastSettings struct {
	Matcher         string
	HistoryMonths   int
	RecentMonths    int
	GracePeriodDays int
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	opts := forecast.DefaultOptions()

	v.SetDefault(KeyDatabasePath, DefaultDatabasePath)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")
	v.SetDefault(KeySimilarityThreshold, similarity.DefaultThreshold)
	v.SetDefault(KeyClusterThreshold, pattern.DefaultClusterThreshold)
	v.SetDefault(KeyMinConfidence, pattern.DefaultMinConfidence)
	v.SetDefault(KeyForecastHistoryMonths, opts.HistoryMonths)
	v.SetDefault(KeyForecastRecentMonths, opts.RecentMonths)
	v.SetDefault(KeyForecastGracePeriodDays, opts.GracePeriodDays)
	v.SetDefault(KeyDormantMatcher, forecast.MatcherContains)
	v.SetDefault(KeyBudgetMonths, forecast.DefaultBudgetMonths)
}

// Load reads settings from v, filling in defaults, and validates them.
func Load(v *viper.Viper) (Settings, error) {
	SetDefaults(v)

	s := Settings{
		DatabasePath:        ExpandPath(v.GetString(KeyDatabasePath)),
		LogLevel:            v.GetString(KeyLogLevel),
		LogFormat:           v.GetString(KeyLogFormat),
		SMSBackup:           ExpandPath(v.GetString(KeySMSBackup)),
		SMSSender:           v.GetString(KeySMSSender),
		SimilarityThreshold: v.GetFloat64(KeySimilarityThreshold),
		Pattern: pattern.Config{
			ClusterThreshold: v.GetFloat64(KeyClusterThreshold),
			MinConfidence:    v.GetFloat64(KeyMinConfidence),
		},
		Forecast: ForecastSettings{
			Matcher:         v.GetString(KeyDormantMatcher),
			HistoryMonths:   v.GetInt(KeyForecastHistoryMonths),
			RecentMonths:    v.GetInt(KeyForecastRecentMonths),
			GracePeriodDays: v.GetInt(KeyForecastGracePeriodDays),
		},
		BudgetMonths: v.GetInt(KeyBudgetMonths),
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks that every value is in range.
func (s Settings) Validate() error {
	if s.DatabasePath == "" {
		return fmt.Errorf("%s must be set: %w", KeyDatabasePath, common.ErrInvalidConfig)
	}
	if _, err := common.ParseLevel(s.LogLevel); err != nil {
		return err
	}

	for key, value := range map[string]float64{
		KeySimilarityThreshold: s.SimilarityThreshold,
		KeyClusterThreshold:    s.Pattern.ClusterThreshold,
		KeyMinConfidence:       s.Pattern.MinConfidence,
	} {
		if value <= 0 || value > 1 {
			return fmt.Errorf("%s must be in (0, 1], got %v: %w", key, value, common.ErrInvalidConfig)
		}
	}

	for key, value := range map[string]int{
		KeyForecastHistoryMonths: s.Forecast.HistoryMonths,
		KeyForecastRecentMonths:  s.Forecast.RecentMonths,
		KeyBudgetMonths:          s.BudgetMonths,
	} {
		if value < 1 {
			return fmt.Errorf("%s must be at least 1, got %d: %w", key, value, common.ErrInvalidConfig)
		}
	}
	if s.Forecast.RecentMonths >= s.Forecast.HistoryMonths {
		return fmt.Errorf("%s must be less than %s: %w", KeyForecastRecentMonths, KeyForecastHistoryMonths, common.ErrInvalidConfig)
	}
	if s.Forecast.GracePeriodDays < 0 {
		return fmt.Errorf("%s must not be negative: %w", KeyForecastGracePeriodDays, common.ErrInvalidConfig)
	}

	if _, err := s.Matcher(); err != nil {
		return err
	}
	return nil
}

// Matcher builds the configured dormant-subscription matcher.
func (s Settings) Matcher() (forecast.MerchantMatcher, error) {
	m, err := forecast.ParseMatcher(s.Forecast.Matcher, s.SimilarityThreshold)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", KeyDormantMatcher, common.ErrInvalidConfig, err)
	}
	return m, nil
}

// ForecastOptions converts the settings into predictor options.
func (s Settings) ForecastOptions() (forecast.Options, error) {
	m, err := s.Matcher()
	if err != nil {
		return forecast.Options{}, err
	}
	return forecast.Options{
		Matcher:         m,
		HistoryMonths:   s.Forecast.HistoryMonths,
		RecentMonths:    s.Forecast.RecentMonths,
		GracePeriodDays: s.Forecast.GracePeriodDays,
	}, nil
}
