package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Limits are marketplace tunables that can change without a restart.
type Limits struct {
	Applications  ApplicationLimits `mapstructure:"applications"`
	Opportunities OpportunityLimits `mapstructure:"opportunities"`
}

type ApplicationLimits struct {
	TitleMaxLength        int `mapstructure:"titleMaxLength"`
	GoalLetterMaxLength   int `mapstructure:"goalLetterMaxLength"`
	ReferralCodeMaxLength int `mapstructure:"referralCodeMaxLength"`
	FeedbackMaxLength     int `mapstructure:"feedbackMaxLength"`
}

type OpportunityLimits struct {
	NameMaxLength   int `mapstructure:"nameMaxLength"`
	DefaultPageSize int `mapstructure:"defaultPageSize"`
	MaxPageSize     int `mapstructure:"maxPageSize"`
}

func DefaultLimits() Limits {
	return Limits{
		Applications: ApplicationLimits{
			TitleMaxLength:        200,
			GoalLetterMaxLength:   10000,
			ReferralCodeMaxLength: 64,
			FeedbackMaxLength:     5000,
		},
		Opportunities: OpportunityLimits{
			NameMaxLength:   200,
			DefaultPageSize: 20,
			MaxPageSize:     100,
		},
	}
}

type LimitsHolder struct {
	current atomic.Value // holds Limits
}

// NewStaticLimits returns a holder that never reloads.
func NewStaticLimits(limits Limits) *LimitsHolder {
	holder := &LimitsHolder{}
	holder.current.Store(limits)
	return holder
}

// NewLimitsHolder reads marketplace.yml and watches it for changes.
// Missing file means defaults.
func NewLimitsHolder(log *zap.Logger) (*LimitsHolder, error) {
	log = log.Named("config.limits")

	v := viper.New()
	v.SetConfigName("marketplace")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/dfund")
	v.AddConfigPath(".")

	v.SetEnvPrefix("DFUND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultLimits()
	v.SetDefault("limits.applications.titleMaxLength", defaults.Applications.TitleMaxLength)
	v.SetDefault("limits.applications.goalLetterMaxLength", defaults.Applications.GoalLetterMaxLength)
	v.SetDefault("limits.applications.referralCodeMaxLength", defaults.Applications.ReferralCodeMaxLength)
	v.SetDefault("limits.applications.feedbackMaxLength", defaults.Applications.FeedbackMaxLength)
	v.SetDefault("limits.opportunities.nameMaxLength", defaults.Opportunities.NameMaxLength)
	v.SetDefault("limits.opportunities.defaultPageSize", defaults.Opportunities.DefaultPageSize)
	v.SetDefault("limits.opportunities.maxPageSize", defaults.Opportunities.MaxPageSize)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileFound = false
	}

	var limits Limits
	if err := v.UnmarshalKey("limits", &limits); err != nil {
		return nil, err
	}
	if err := ValidateLimits(limits); err != nil {
		return nil, err
	}

	holder := NewStaticLimits(limits)
	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated Limits
		if err := v.UnmarshalKey("limits", &updated); err != nil {
			log.Warn("limits reload failed", zap.Error(err))
			return
		}
		if err := ValidateLimits(updated); err != nil {
			log.Warn("invalid limits ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("limits reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *LimitsHolder) Get() Limits {
	if h == nil {
		return DefaultLimits()
	}
	return h.current.Load().(Limits)
}

func ValidateLimits(l Limits) error {
	if l.Applications.TitleMaxLength <= 0 ||
		l.Applications.GoalLetterMaxLength <= 0 ||
		l.Applications.ReferralCodeMaxLength <= 0 ||
		l.Applications.FeedbackMaxLength <= 0 {
		return errors.New("limits.applications values must be positive")
	}
	if l.Opportunities.NameMaxLength <= 0 {
		return errors.New("limits.opportunities.nameMaxLength must be positive")
	}
	if l.Opportunities.DefaultPageSize <= 0 || l.Opportunities.MaxPageSize <= 0 {
		return errors.New("limits.opportunities page sizes must be positive")
	}
	if l.Opportunities.DefaultPageSize > l.Opportunities.MaxPageSize {
		return errors.New("limits.opportunities.defaultPageSize exceeds maxPageSize")
	}
	return nil
}
