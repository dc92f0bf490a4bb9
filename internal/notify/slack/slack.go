// Package slack posts critical triage outcomes to Slack via incoming webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/esitriage/internal/esi"
)

const (
	maxSymptomsLen = 1500
	httpTimeout    = 10 * time.Second
)

// Notifier sends assessment entries to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
	logger     log.Logger
}

// New creates a new Slack notifier. If webhookURL is empty, Send is a no-op.
func New(webhookURL string, logger log.Logger) *Notifier {
	if logger == nil {
		logger = log.Nop()
	}
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
		logger:     logger,
	}
}

// Send posts one assessment to the configured Slack webhook.
// If no webhook URL is configured, it returns nil immediately.
func (n *Notifier) Send(ctx context.Context, submissionID string, e esi.Entry) error {
	if n.webhookURL == "" {
		return nil
	}

	msg := buildMessage(submissionID, e)

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}

	n.logger.Info(ctx, "slack notification sent", "submission_id", submissionID, "esi_level", int(e.Result.Level))
	return nil
}

func buildMessage(submissionID string, e esi.Entry) map[string]any {
	return map[string]any{
		"blocks": []map[string]any{
			headerBlock(e),
			{"type": "divider"},
			fieldsBlock(e),
			{"type": "divider"},
			actionsBlock(e),
			{"type": "divider"},
			contextBlock(submissionID, e),
		},
	}
}

func headerBlock(e esi.Entry) map[string]any {
	text := fmt.Sprintf("%s ESI %d %s: patient %s",
		levelEmoji(e.Result.Level), e.Result.Level, e.Result.Level.Label(), e.ID)

	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": text,
		},
	}
}

func fieldsBlock(e esi.Entry) map[string]any {
	d := e.Data
	fields := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Age:* %s", d.Age),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Gender:* %s", d.Gender),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Pulse:* %s bpm", d.PulseRate),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Consciousness:* %s", d.Consciousness),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Findings:* %s", findings(d)),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Symptoms:* %s", symptoms(d.AdditionalSymptoms)),
		},
	}

	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func actionsBlock(e esi.Entry) map[string]any {
	var b strings.Builder
	b.WriteString("*Recommended actions*\n")
	for _, a := range e.Result.Actions {
		b.WriteString("\n• ")
		b.WriteString(a)
	}

	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": b.String(),
		},
	}
}

func contextBlock(submissionID string, e esi.Entry) map[string]any {
	elements := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("esitriage • submission %s • %s", submissionID, e.Timestamp),
		},
	}

	return map[string]any{
		"type":     "context",
		"elements": elements,
	}
}

func findings(o esi.Observation) string {
	var parts []string
	if o.ChestPain {
		parts = append(parts, "chest pain")
	}
	if o.Fever {
		parts = append(parts, "fever")
	}
	if o.BreathingDifficulty {
		parts = append(parts, "breathing difficulty")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}

func symptoms(set esi.SymptomSet) string {
	codes := set.Codes()
	if len(codes) == 0 {
		return "none"
	}
	names := make([]string, len(codes))
	for i, c := range codes {
		names[i] = esi.SymptomName(c)
	}
	return truncate(strings.Join(names, ", "), maxSymptomsLen)
}

func levelEmoji(level esi.Level) string {
	switch {
	case level.Critical():
		return "\U0001f534" // red circle
	case level == esi.LevelUrgent:
		return "\U0001f7e1" // yellow circle
	default:
		return "\U0001f7e2" // green circle
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
