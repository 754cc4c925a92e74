package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/coal/siterisk/internal/model"
	"github.com/coal/siterisk/internal/policy"
)

// WebhookSink POSTs scan reports to an HTTP endpoint.
type WebhookSink struct {
	url         string
	token       string
	trigger     string
	payload     string
	userAgent   string
	client      *http.Client
	backoffs    []time.Duration
	lastSkipped bool
}

// WebhookOptions configures a WebhookSink.
type WebhookOptions struct {
	URL string
	// Token is sent as a bearer token when non-empty.
	Token string
	// Trigger is "always" or "critical_only".
	Trigger string
	// Payload is "summary" or "full".
	Payload   string
	Timeout   time.Duration
	UserAgent string
}

// NewWebhookSink validates opts and builds the sink.
func NewWebhookSink(opts WebhookOptions) (*WebhookSink, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("webhook url is empty")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = policy.DefaultDispatchTimeout
	}
	if opts.Trigger == "" {
		opts.Trigger = policy.TriggerAlways
	}
	if opts.Payload == "" {
		opts.Payload = policy.PayloadFull
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "siterisk"
	}
	return &WebhookSink{
		url:       opts.URL,
		token:     opts.Token,
		trigger:   opts.Trigger,
		payload:   opts.Payload,
		userAgent: opts.UserAgent,
		client:    &http.Client{Timeout: opts.Timeout},
		backoffs:  []time.Duration{100 * time.Millisecond, 300 * time.Millisecond},
	}, nil
}

// Name implements ResultSink.
func (s *WebhookSink) Name() string { return "webhook:" + s.url }

// Skipped reports whether the last Write was suppressed by the trigger.
func (s *WebhookSink) Skipped() bool { return s.lastSkipped }

// SummaryPayload is the lightweight report body.
type SummaryPayload struct {
	Type           string               `json:"type"`
	ScanID         string               `json:"scan_id"`
	Timestamp      time.Time            `json:"timestamp"`
	TotalScore     int                  `json:"total_score"`
	SiteRiskIndex  float64              `json:"site_risk_index"`
	Classification model.Classification `json:"classification"`
	PluginsScanned int                  `json:"plugins_scanned"`
	RolesScanned   int                  `json:"roles_scanned"`
	AlertCount     int                  `json:"alert_count"`
	Alerts         []SummaryAlert       `json:"alerts"`
}

// SummaryAlert is an alert trimmed for the summary payload.
type SummaryAlert struct {
	Type        string         `json:"type"`
	Severity    model.Severity `json:"severity"`
	Component   string         `json:"component"`
	Description string         `json:"description"`
}

// BuildSummary creates the summary payload of res.
func BuildSummary(res *model.ScanResult) SummaryPayload {
	p := SummaryPayload{
		Type:           policy.PayloadSummary,
		ScanID:         res.ScanID,
		Timestamp:      res.StartedAt,
		TotalScore:     res.Summary.TotalRiskPoints,
		SiteRiskIndex:  res.Summary.Index,
		Classification: res.Summary.Classification,
		PluginsScanned: res.Summary.PluginsScanned,
		RolesScanned:   res.Summary.RolesScanned,
		AlertCount:     len(res.Alerts),
		Alerts:         make([]SummaryAlert, 0, len(res.Alerts)),
	}
	for _, a := range res.Alerts {
		p.Alerts = append(p.Alerts, SummaryAlert{
			Type:        a.Type,
			Severity:    a.Severity,
			Component:   a.Component,
			Description: a.Description,
		})
	}
	return p
}

// Write implements ResultSink. With the critical_only trigger a scan without
// alerts is not sent.
func (s *WebhookSink) Write(ctx context.Context, res *model.ScanResult) error {
	s.lastSkipped = false
	if res == nil {
		return nil
	}
	if s.trigger == policy.TriggerCriticalOnly && len(res.Alerts) == 0 {
		s.lastSkipped = true
		return nil
	}

	var body any = res
	if s.payload == policy.PayloadSummary {
		body = BuildSummary(res)
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < len(s.backoffs)+1; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", s.userAgent)
		if s.token != "" {
			req.Header.Set("Authorization", "Bearer "+s.token)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("post: %w", err)
		} else {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return nil
			}
			lastErr = fmt.Errorf("status %d body=%q", resp.StatusCode, truncateBody(respBody))
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return lastErr
			}
		}

		if attempt < len(s.backoffs) {
			timer := time.NewTimer(s.backoffs[attempt])
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}
	}

	return lastErr
}

// Close implements ResultSink.
func (s *WebhookSink) Close(context.Context) error {
	return nil
}

func truncateBody(b []byte) string {
	const limit = 100
	if len(b) <= limit {
		return string(b)
	}
	return string(b[:limit]) + "..."
}
