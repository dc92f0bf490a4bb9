// Package remotequeue reads the server-side assessment queue. It is a
// read-only view, independent of the local queue.
package remotequeue

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/linnemanlabs/esitriage/internal/esi"
)

//go:embed queue.schema.json
var schemaJSON string

// FetchFailed is the message carried by every ExchangeError.
const FetchFailed = "Failed to fetch queue from the server."

const maxBodyBytes = 4 << 20

// ExchangeError means the queue could not be fetched.
type ExchangeError struct {
	StatusCode int
	Err        error
}

func (e *ExchangeError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s (status %d)", FetchFailed, e.StatusCode)
	case e.Err != nil:
		return FetchFailed + " " + e.Err.Error()
	default:
		return FetchFailed
	}
}

func (e *ExchangeError) Unwrap() error { return e.Err }

// SchemaError means the server answered with a body that does not match the
// queue row contract.
type SchemaError struct {
	Problems []string
}

func (e *SchemaError) Error() string {
	return "queue response does not match schema: " + strings.Join(e.Problems, "; ")
}

// Reader performs one GET per Read against the server queue endpoint.
type Reader struct {
	url        string
	httpClient *http.Client
	schema     *gojsonschema.Schema
}

// NewReader creates a reader for url. A zero timeout leaves the request
// bounded only by the caller's context.
func NewReader(url string, timeout time.Duration) (*Reader, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile queue schema: %w", err)
	}
	return &Reader{
		url: url,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		schema: schema,
	}, nil
}

type wireRow struct {
	ID             int64     `json:"id"`
	PatientID      string    `json:"patient_id"`
	Age            *float64  `json:"age"`
	Gender         *string   `json:"gender"`
	PredictedESI   esi.Level `json:"predicted_esi"`
	AssessmentTime string    `json:"assessment_time"`
}

// Read fetches the server queue. Rows keep the server's order.
func (r *Reader) Read(ctx context.Context) ([]esi.RemoteRow, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req) //nolint:gosec // G704: url is from trusted config
	if err != nil {
		return nil, &ExchangeError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &ExchangeError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &ExchangeError{Err: fmt.Errorf("read response: %w", err)}
	}

	return r.decode(body)
}

func (r *Reader) decode(body []byte) ([]esi.RemoteRow, error) {
	result, err := r.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil, &SchemaError{Problems: []string{err.Error()}}
	}
	if !result.Valid() {
		problems := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			problems[i] = desc.String()
		}
		return nil, &SchemaError{Problems: problems}
	}

	var wire []wireRow
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, &SchemaError{Problems: []string{err.Error()}}
	}

	rows := make([]esi.RemoteRow, 0, len(wire))
	for i, w := range wire {
		at, err := ParseAssessmentTime(w.AssessmentTime)
		if err != nil {
			return nil, &SchemaError{Problems: []string{fmt.Sprintf("row %d: %v", i, err)}}
		}
		row := esi.RemoteRow{
			ID:             w.ID,
			PatientID:      w.PatientID,
			PredictedESI:   w.PredictedESI,
			AssessmentTime: at,
		}
		if w.Age != nil {
			row.Age = *w.Age
		}
		if w.Gender != nil {
			row.Gender = *w.Gender
		}
		rows = append(rows, row)
	}
	return rows, nil
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseAssessmentTime accepts RFC 3339 timestamps with or without a zone
// offset. Timestamps without an offset are read as UTC.
func ParseAssessmentTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02 15:04:05.999999999Z07:00", s); err == nil {
		return t, nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized assessment_time %q", s)
}
