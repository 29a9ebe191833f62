package config

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
)

// Settings holds the live, runtime-changeable mining settings. All access goes
// through the accessors; ChangeSettings is the only mutation path and applies
// a whole batch atomically.
type Settings struct {
	mu sync.RWMutex

	targetDeadline     uint64
	submissionMaxRetry int
	miningIntensity    int
	maxPlotReaders     int
	logLevel           string
}

type settingValidator func(value string) error

// settingsSchema is the allowed domain for every changeable key. A submitted
// key outside this table rejects the whole batch.
var settingsSchema = map[string]settingValidator{
	"targetDeadline": func(v string) error {
		if _, err := strconv.ParseUint(v, 10, 64); err != nil {
			return fmt.Errorf("targetDeadline must be a non-negative integer")
		}
		return nil
	},
	"submissionMaxRetry": func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			return fmt.Errorf("submissionMaxRetry must be an integer between 1 and 100")
		}
		return nil
	},
	"miningIntensity": func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("miningIntensity must be a non-negative integer")
		}
		return nil
	},
	"maxPlotReaders": func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("maxPlotReaders must be a non-negative integer")
		}
		return nil
	},
	"logLevel": func(v string) error {
		switch v {
		case "debug", "info", "warn", "error":
			return nil
		}
		return fmt.Errorf("logLevel must be one of debug, info, warn, error")
	},
}

// NewSettings creates live settings seeded from the static config.
func NewSettings(cfg *Config) *Settings {
	return &Settings{
		targetDeadline:     cfg.TargetDeadline,
		submissionMaxRetry: cfg.SubmissionMaxRetry,
		maxPlotReaders:     0,
		logLevel:           cfg.LogLevel,
	}
}

func (s *Settings) TargetDeadline() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.targetDeadline
}

func (s *Settings) SubmissionMaxRetry() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.submissionMaxRetry
}

func (s *Settings) MiningIntensity() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.miningIntensity
}

func (s *Settings) MaxPlotReaders() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxPlotReaders
}

func (s *Settings) LogLevel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.logLevel
}

// Snapshot returns all settings as a string map, for rendering.
func (s *Settings) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]string{
		"targetDeadline":     strconv.FormatUint(s.targetDeadline, 10),
		"submissionMaxRetry": strconv.Itoa(s.submissionMaxRetry),
		"miningIntensity":    strconv.Itoa(s.miningIntensity),
		"maxPlotReaders":     strconv.Itoa(s.maxPlotReaders),
		"logLevel":           s.logLevel,
	}
}

// ChangeSettings validates every submitted key/value pair against the schema
// and applies the batch only if all entries validate. The first violation
// (in key order, for determinism) rejects the whole batch and nothing changes.
func (s *Settings) ChangeSettings(changes map[string]string) error {
	keys := make([]string, 0, len(changes))
	for key := range changes {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		validator, ok := settingsSchema[key]
		if !ok {
			return fmt.Errorf("unknown setting %q", key)
		}
		if err := validator(changes[key]); err != nil {
			return fmt.Errorf("invalid setting %q: %w", key, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		value := changes[key]
		switch key {
		case "targetDeadline":
			s.targetDeadline, _ = strconv.ParseUint(value, 10, 64)
		case "submissionMaxRetry":
			s.submissionMaxRetry, _ = strconv.Atoi(value)
		case "miningIntensity":
			s.miningIntensity, _ = strconv.Atoi(value)
		case "maxPlotReaders":
			s.maxPlotReaders, _ = strconv.Atoi(value)
		case "logLevel":
			s.logLevel = value
		}
	}
	return nil
}
