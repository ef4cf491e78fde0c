package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

type Slack struct {
	Webhook string
	Client  *http.Client
}

func NewSlack(webhook string) *Slack {
	if webhook == "" {
		return nil
	}
	return &Slack{
		Webhook: webhook,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type slackPayload struct {
	Text string `json:"text"`
}

func (s *Slack) Notify(ctx context.Context, a Alert) error {
	if s == nil || s.Webhook == "" {
		return errors.New("slack disabled")
	}
	if a.Report == nil {
		return errors.New("alert without report")
	}

	title := "🔴 Probe gate CRITICAL"
	if a.Recovered {
		title = "🟢 Probe gate recovered"
	}
	r := a.Report
	text := fmt.Sprintf(
		"*%s*\nSuite: %s\nRun: %s\nVerdict: %s\nPassed: %d/%d (%.2f%%)\nCritical failures: %d\nTotal elapsed: %.0f ms",
		title, a.Suite, a.RunID, r.Verdict, r.Passed, r.Total, r.PassRatePct, r.CriticalFailures, r.TotalElapsedMS,
	)

	body, _ := json.Marshal(slackPayload{Text: text})
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, s.Webhook, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return errors.New("slack non-2xx")
	}
	return nil
}
