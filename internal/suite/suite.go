// Package suite loads declared check suites from YAML or JSON files and
// normalizes them into the CheckSpec list the runner consumes.
package suite

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/probegate/probegate/internal/domain"
)

type Suite struct {
	Name   string
	Checks []domain.CheckSpec
}

type fileDefaults struct {
	ExpectedStatus int   `mapstructure:"expectedStatus"`
	MaxDurationMS  int64 `mapstructure:"maxDurationMs"`
}

type fileCheck struct {
	ID             string            `mapstructure:"id"`
	Name           string            `mapstructure:"name"`
	URL            string            `mapstructure:"url"`
	Method         string            `mapstructure:"method"`
	Headers        map[string]string `mapstructure:"headers"`
	ExpectedStatus int               `mapstructure:"expectedStatus"`
	MaxDurationMS  int64             `mapstructure:"maxDurationMs"`
	Critical       bool              `mapstructure:"critical"`
}

type fileSuite struct {
	Name     string       `mapstructure:"name"`
	Defaults fileDefaults `mapstructure:"defaults"`
	Checks   []fileCheck  `mapstructure:"checks"`
}

// Load reads a suite file and applies per-suite defaults: missing
// expectedStatus becomes 200 (or the suite default), missing maxDurationMs
// becomes the fallback deadline. IDs are filled in positionally when absent
// and must be unique.
func Load(path string, fallbackDeadline time.Duration) (*Suite, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read suite file: %w", err)
	}

	var fs fileSuite
	if err := v.Unmarshal(&fs); err != nil {
		return nil, fmt.Errorf("parse suite file: %w", err)
	}
	if len(fs.Checks) == 0 {
		return nil, fmt.Errorf("suite %q declares no checks", path)
	}

	defStatus := fs.Defaults.ExpectedStatus
	if defStatus == 0 {
		defStatus = 200
	}
	defDeadline := fs.Defaults.MaxDurationMS
	if defDeadline == 0 {
		defDeadline = fallbackDeadline.Milliseconds()
	}

	seen := make(map[string]bool, len(fs.Checks))
	checks := make([]domain.CheckSpec, 0, len(fs.Checks))
	for i, fc := range fs.Checks {
		if strings.TrimSpace(fc.URL) == "" {
			return nil, fmt.Errorf("check %d: url is required", i+1)
		}

		id := strings.TrimSpace(fc.ID)
		if id == "" {
			id = fmt.Sprintf("check-%d", i+1)
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate check id %q", id)
		}
		seen[id] = true

		status := fc.ExpectedStatus
		if status == 0 {
			status = defStatus
		}
		deadline := fc.MaxDurationMS
		if deadline == 0 {
			deadline = defDeadline
		}
		if deadline <= 0 {
			return nil, fmt.Errorf("check %q: maxDurationMs must be positive, got %d", id, deadline)
		}

		method := strings.ToUpper(strings.TrimSpace(fc.Method))
		if method == "" {
			method = "GET"
		}

		name := fc.Name
		if name == "" {
			name = id
		}

		checks = append(checks, domain.CheckSpec{
			ID:             id,
			Name:           name,
			URL:            fc.URL,
			Method:         method,
			Headers:        fc.Headers,
			ExpectedStatus: status,
			MaxDurationMS:  deadline,
			Critical:       fc.Critical,
		})
	}

	return &Suite{Name: fs.Name, Checks: checks}, nil
}
