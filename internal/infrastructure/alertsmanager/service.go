package alertsmanager

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/arkade-os/bridged/internal/core/ports"
)

const (
	serviceName = "bridged"

	maxRetries = 5
)

type Alert struct {
	Labels      map[string]string `json:"labels"`
	Annotations map[string]string `json:"annotations"`
	StartsAt    time.Time         `json:"startsAt"`
}

type service struct {
	baseUrl    string
	httpClient *http.Client
	baseDelay  time.Duration
}

func NewService(alertManagerURL string) ports.Alerts {
	return &service{
		baseUrl: alertManagerURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseDelay: 100 * time.Millisecond,
	}
}

func (s *service) Publish(ctx context.Context, topic ports.Topic, message any) error {
	labels := map[string]string{
		"alertname": string(topic),
		"service":   serviceName,
		"severity":  "info",
	}

	desc := ""
	annotations := map[string]string{}
	switch topic {
	case ports.InconsistentState:
		annotations["firing_title"] = "🚨 Inconsistent State"
		m, ok := message.(ports.InconsistentStateAlert)
		if !ok {
			return fmt.Errorf("invalid message type: %T", message)
		}
		desc = formatInconsistentStateAlert(m)
		labels["severity"] = "critical"
		labels["key"] = m.Key
		if m.TransferId != "" {
			labels["transfer_id"] = m.TransferId
		}
	case ports.CapacityExhausted:
		annotations["firing_title"] = "⛽ Capacity Exhausted"
		m, ok := message.(ports.CapacityExhaustedAlert)
		if !ok {
			return fmt.Errorf("invalid message type: %T", message)
		}
		desc = formatCapacityExhaustedAlert(m)
		labels["severity"] = "warning"
		labels["key"] = m.Key
	default:
		annotations["firing_title"] = fmt.Sprintf("🔔 %s", topic)
		desc = formatGenericAlert(map[string]any{"event": message})
	}

	annotations["description"] = desc
	alert := Alert{
		Labels:      labels,
		Annotations: annotations,
		StartsAt:    time.Now(),
	}

	if err := s.sendAlert(ctx, alert); err != nil {
		return fmt.Errorf("failed to send alert to AlertManager: %w", err)
	}

	return nil
}

func (s *service) sendAlert(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal([]Alert{alert})
	if err != nil {
		return fmt.Errorf("failed to marshal alerts: %w", err)
	}

	for attempt := range maxRetries {
		req, err := http.NewRequestWithContext(ctx, "POST", s.baseUrl, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			if attempt < maxRetries-1 {
				if err := s.backoff(ctx, attempt); err != nil {
					return err
				}
				continue
			}
			return fmt.Errorf("failed to send alert after %d attempts: %w", maxRetries, err)
		}
		_ = resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}

		// Only server errors are retried.
		if resp.StatusCode >= 500 && attempt < maxRetries-1 {
			if err := s.backoff(ctx, attempt); err != nil {
				return err
			}
			continue
		}

		return fmt.Errorf(
			"failed to send alert to AlertManager with status %d after %d attempts",
			resp.StatusCode, attempt+1,
		)
	}

	return fmt.Errorf("failed to send alert after %d attempts", maxRetries)
}

// backoff waits 100ms, 200ms, 400ms... unless the context is done first.
func (s *service) backoff(ctx context.Context, attempt int) error {
	delay := s.baseDelay * time.Duration(1<<uint(attempt))
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func formatInconsistentStateAlert(data ports.InconsistentStateAlert) string {
	lines := make([]string, 0)
	lines = append(lines, fmt.Sprintf("*Operation:* `%s`", data.Operation))
	if data.TransferId != "" {
		lines = append(lines, fmt.Sprintf("*Transfer:* `%s`", data.TransferId))
	}
	lines = append(lines, fmt.Sprintf("*Key:* `%s`", data.Key))
	lines = append(lines, "\n*Counters:*")
	lines = append(lines, fmt.Sprintf("• Daily volume: %d", data.Volume))
	lines = append(lines, fmt.Sprintf("• Credit: %d", data.Credit))
	lines = append(lines, fmt.Sprintf("• Daily cap: %d", data.DailyCap))
	if data.Reason != "" {
		lines = append(lines, fmt.Sprintf("\n*Reason:* %s", data.Reason))
	}
	return strings.Join(lines, "\n")
}

func formatCapacityExhaustedAlert(data ports.CapacityExhaustedAlert) string {
	resetAt := time.Unix(data.LastReset, 0).Add(24 * time.Hour).UTC()
	lines := []string{
		fmt.Sprintf("*Key:* `%s`", data.Key),
		fmt.Sprintf("• Daily cap: %d", data.DailyCap),
		fmt.Sprintf("• Next reset: %s", resetAt.Format(time.RFC3339)),
	}
	return strings.Join(lines, "\n")
}

func formatGenericAlert(data map[string]any) string {
	lines := make([]string, 0)
	for key, value := range data {
		lines = append(lines, fmt.Sprintf("• %s: %v", key, value))
	}
	return strings.Join(lines, "\n")
}
