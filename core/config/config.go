// Package config loads and validates the shell's YAML configuration.
package config

import (
	_ "embed"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"sigs.k8s.io/yaml"
)

//go:embed default/config.yaml
var defaultConfigData []byte

const (
	ConfigurationName = "config.yaml"

	// ReaperSignal reports child state changes as they happen via SIGCHLD.
	ReaperSignal = "signal"
	// ReaperPolling sweeps for child state changes once per prompt round.
	ReaperPolling = "polling"
)

type Config struct {
	Motd string `json:"motd"`

	// Reaper selects how child state changes are detected.
	Reaper string `json:"reaper" validate:"required,oneof=signal polling"`

	// PollIntervalMS is the per-round sleep, and in polling mode the bound
	// on child status reporting latency.
	PollIntervalMS int `json:"poll_interval_ms" validate:"gt=0"`

	// KillGraceMS is how long the shutdown sweep waits for its kill signals
	// to be delivered before the final reap.
	KillGraceMS int `json:"kill_grace_ms" validate:"gte=0"`

	// Pager is used by checkEnv when $PAGER is unset; PagerFallback is
	// retried when the default pager is unavailable.
	Pager         string `json:"pager" validate:"required"`
	PagerFallback string `json:"pager_fallback" validate:"required"`
}

// Validate the configuration for basic semantic errors.
func (c *Config) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})

	return validate.Struct(c)
}

// PollInterval is PollIntervalMS as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// KillGrace is KillGraceMS as a duration.
func (c *Config) KillGrace() time.Duration {
	return time.Duration(c.KillGraceMS) * time.Millisecond
}

// Default returns the embedded default configuration.
func Default() *Config {
	var out Config
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	return &out
}
