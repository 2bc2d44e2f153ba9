package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// AgingBucket groups receivables by days past due. MaxDays nil means open ended.
type AgingBucket struct {
	Label   string `mapstructure:"label"`
	MinDays int    `mapstructure:"minDays"`
	MaxDays *int   `mapstructure:"maxDays"`
}

// Contains reports whether days past due falls inside the bucket.
func (b AgingBucket) Contains(days int) bool {
	if days < b.MinDays {
		return false
	}
	return b.MaxDays == nil || days <= *b.MaxDays
}

type ReportConfig struct {
	AgingBuckets []AgingBucket `mapstructure:"agingBuckets"`
}

func DefaultReportConfig() ReportConfig {
	return ReportConfig{
		AgingBuckets: []AgingBucket{
			{Label: "current", MinDays: 0, MaxDays: intPtr(0)},
			{Label: "1-30", MinDays: 1, MaxDays: intPtr(30)},
			{Label: "31-60", MinDays: 31, MaxDays: intPtr(60)},
			{Label: "61-90", MinDays: 61, MaxDays: intPtr(90)},
			{Label: "90+", MinDays: 91, MaxDays: nil},
		},
	}
}

func intPtr(v int) *int { return &v }

type ReportConfigHolder struct {
	current atomic.Pointer[ReportConfig]
}

// NewReportConfigHolder loads report.yml and keeps it fresh on file changes.
// Defaults apply when no file exists.
func NewReportConfigHolder(log *zap.Logger) (*ReportConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("report")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/bookkeeping")
	v.AddConfigPath(".")

	v.SetEnvPrefix("BOOKKEEPING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
		v.SetDefault("report.agingBuckets", DefaultReportConfig().AgingBuckets)
	}

	var cfg ReportConfig
	if err := v.UnmarshalKey("report", &cfg); err != nil {
		return nil, err
	}
	if err := ValidateReportConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticReportConfigHolder(cfg)
	if !fileFound {
		return holder, nil
	}

	log = log.Named("config.report")
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated ReportConfig
		if err := v.UnmarshalKey("report", &updated); err != nil {
			log.Warn("reload failed", zap.Error(err))
			return
		}
		if err := ValidateReportConfig(updated); err != nil {
			log.Warn("invalid config ignored", zap.Error(err))
			return
		}
		holder.current.Store(&updated)
		log.Info("reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

// NewStaticReportConfigHolder wraps a fixed configuration.
func NewStaticReportConfigHolder(cfg ReportConfig) *ReportConfigHolder {
	holder := &ReportConfigHolder{}
	holder.current.Store(&cfg)
	return holder
}

func (h *ReportConfigHolder) Get() ReportConfig {
	return *h.current.Load()
}

// ValidateReportConfig requires ordered, non-overlapping buckets starting at
// zero days with only the last one open ended.
func ValidateReportConfig(cfg ReportConfig) error {
	if len(cfg.AgingBuckets) == 0 {
		return errors.New("report.agingBuckets cannot be empty")
	}
	next := 0
	for i, b := range cfg.AgingBuckets {
		if strings.TrimSpace(b.Label) == "" {
			return fmt.Errorf("report.agingBuckets[%d]: label is required", i)
		}
		if b.MinDays != next {
			return fmt.Errorf("report.agingBuckets[%d]: expected minDays %d, got %d", i, next, b.MinDays)
		}
		if b.MaxDays == nil {
			if i != len(cfg.AgingBuckets)-1 {
				return fmt.Errorf("report.agingBuckets[%d]: only the last bucket may be open ended", i)
			}
			continue
		}
		if *b.MaxDays < b.MinDays {
			return fmt.Errorf("report.agingBuckets[%d]: maxDays below minDays", i)
		}
		next = *b.MaxDays + 1
	}
	if cfg.AgingBuckets[len(cfg.AgingBuckets)-1].MaxDays != nil {
		return errors.New("report.agingBuckets: last bucket must be open ended")
	}
	return nil
}
