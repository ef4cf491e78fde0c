package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/probegate/probegate/internal/domain"
)

// Outcomes never exceed this much response body; the probe cares about the
// status line and timing, not the payload.
const maxBodyDrain = 1 << 20

// Prober executes a single declared check and settles it as an Outcome.
// Implementations never return an error: every failure mode is data.
type Prober interface {
	Probe(ctx context.Context, spec domain.CheckSpec) domain.Outcome
}

type HTTPProber struct {
	Client *http.Client
	Logger *zap.Logger
}

// NewHTTPProber builds a prober whose requests are bounded per invocation
// by the check's own deadline, so the client carries no global timeout.
func NewHTTPProber(logger *zap.Logger) *HTTPProber {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPProber{
		Client: &http.Client{},
		Logger: logger,
	}
}

func (p *HTTPProber) Probe(ctx context.Context, spec domain.CheckSpec) domain.Outcome {
	method := strings.ToUpper(strings.TrimSpace(spec.Method))
	if method == "" {
		method = http.MethodGet
	}

	o := domain.Outcome{
		ID:       spec.ID,
		Name:     spec.Name,
		Method:   method,
		URL:      spec.URL,
		Critical: spec.Critical,
	}

	hdr, warn := mergeHeaders(spec.Headers)
	if warn != "" {
		o.Warning = warn
		p.Logger.Warn("probe_headers_degraded",
			zap.String("check_id", spec.ID),
			zap.String("warning", warn),
		)
	}

	cctx, cancel := context.WithTimeout(ctx, spec.Deadline())
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(cctx, method, spec.URL, nil)
	if err != nil {
		o.ElapsedMS = elapsedMS(start)
		o.Message = "network error"
		p.Logger.Warn("probe_bad_request",
			zap.String("check_id", spec.ID),
			zap.String("url", spec.URL),
			zap.Error(err),
		)
		return o
	}
	req.Header = hdr

	resp, err := p.Client.Do(req)
	if err != nil {
		o.ElapsedMS = elapsedMS(start)
		o.Message = classifyTransport(ctx, err)
		p.Logger.Debug("probe_settled",
			zap.String("check_id", spec.ID),
			zap.String("message", o.Message),
			zap.Float64("elapsed_ms", o.ElapsedMS),
		)
		return o
	}
	defer resp.Body.Close()
	// Drain before the final timing read so slow bodies count against the bound.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyDrain))

	o.ObservedStatus = resp.StatusCode
	o.ElapsedMS = elapsedMS(start)

	switch {
	case resp.StatusCode != spec.ExpectedStatus:
		o.Message = fmt.Sprintf("status mismatch: expected %d, got %d", spec.ExpectedStatus, resp.StatusCode)
	case o.ElapsedMS > float64(spec.MaxDurationMS):
		o.Message = fmt.Sprintf("slow response: %.0fms exceeds %dms bound", o.ElapsedMS, spec.MaxDurationMS)
	default:
		o.Passed = true
		o.Message = "ok"
	}

	p.Logger.Debug("probe_settled",
		zap.String("check_id", spec.ID),
		zap.Int("status", o.ObservedStatus),
		zap.Bool("passed", o.Passed),
		zap.Float64("elapsed_ms", o.ElapsedMS),
		zap.String("message", o.Message),
	)
	return o
}

// classifyTransport names the failure class for a request that produced no
// status line. The per-probe deadline surfaces as context.DeadlineExceeded;
// a caller-driven abort surfaces as context.Canceled on the parent.
func classifyTransport(parent context.Context, err error) string {
	switch {
	case parent.Err() != nil && errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "network error"
	}
}

func elapsedMS(start time.Time) float64 {
	ms := time.Since(start).Seconds() * 1000
	if ms < 0 {
		return 0
	}
	return ms
}
