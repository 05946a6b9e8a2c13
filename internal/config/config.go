// Package config loads function configuration from the environment.
//
// Values are read once in main and passed down explicitly; nothing below the
// cmd packages reads the environment directly.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultEnvironment    = "dev"
	DefaultFunctionName   = "unknown"
	DefaultProcessedTable = "ProcessedData"
	DefaultCPUThreshold   = 80.0
	DefaultRetentionDays  = 30
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "json"
)

// Config is the union of settings used by the Lambda functions in this module.
// Each function only reads the fields it needs.
type Config struct {
	Environment       string
	FunctionName      string
	AlertTopicARN     string
	ReportTopicARN    string
	DataBucket        string
	ProcessedTable    string
	MonitorInstanceID string
	CPUThreshold      float64
	RetentionDays     int
	LogLevel          string
	LogFormat         string
}

// Retention returns the cleanup age threshold as a duration.
func (c Config) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// Load reads the configuration from environment variables, applying defaults
// for anything unset or unparsable.
func Load() Config {
	return load(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("environment", DefaultEnvironment)
	v.SetDefault("aws_lambda_function_name", DefaultFunctionName)
	v.SetDefault("alert_topic_arn", "")
	v.SetDefault("report_topic_arn", "")
	v.SetDefault("data_bucket", "")
	v.SetDefault("processed_table", DefaultProcessedTable)
	v.SetDefault("monitor_instance_id", "")
	v.SetDefault("cpu_threshold", DefaultCPUThreshold)
	v.SetDefault("retention_days", DefaultRetentionDays)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("log_format", DefaultLogFormat)
	v.AutomaticEnv()
	return v
}

func load(v *viper.Viper) Config {
	cfg := Config{
		Environment:       stringOr(v, "environment", DefaultEnvironment),
		FunctionName:      stringOr(v, "aws_lambda_function_name", DefaultFunctionName),
		AlertTopicARN:     strings.TrimSpace(v.GetString("alert_topic_arn")),
		ReportTopicARN:    strings.TrimSpace(v.GetString("report_topic_arn")),
		DataBucket:        strings.TrimSpace(v.GetString("data_bucket")),
		ProcessedTable:    stringOr(v, "processed_table", DefaultProcessedTable),
		MonitorInstanceID: strings.TrimSpace(v.GetString("monitor_instance_id")),
		CPUThreshold:      v.GetFloat64("cpu_threshold"),
		RetentionDays:     v.GetInt("retention_days"),
		LogLevel:          stringOr(v, "log_level", DefaultLogLevel),
		LogFormat:         stringOr(v, "log_format", DefaultLogFormat),
	}
	if cfg.CPUThreshold <= 0 {
		cfg.CPUThreshold = DefaultCPUThreshold
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = DefaultRetentionDays
	}
	return cfg
}

// stringOr treats a variable that is set but blank the same as an unset one.
func stringOr(v *viper.Viper, key, def string) string {
	s := strings.TrimSpace(v.GetString(key))
	if s == "" {
		return def
	}
	return s
}
