package claude

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/linnemanlabs/esitriage/internal/esi"
	"github.com/linnemanlabs/esitriage/internal/predictor"
)

func TestFromSDKResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		text      string
		wantLevel int
		wantErr   bool
	}{
		{"bare json", `{"predicted_esi":2}`, 2, false},
		{"wrapped in prose", "Level follows.\n{\"predicted_esi\": 4}\n", 4, false},
		{"no json", "ESI 3", 0, true},
		{"broken json", `{"predicted_esi":}`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			msg := &anthropic.Message{
				Content:    []anthropic.ContentBlockUnion{{Type: "text", Text: tt.text}},
				StopReason: anthropic.StopReasonEndTurn,
			}
			resp, err := fromSDKResponse(msg)
			if tt.wantErr {
				var ce *predictor.ContractError
				if !errors.As(err, &ce) {
					t.Fatalf("err = %v, want *ContractError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("fromSDKResponse: %v", err)
			}
			if resp.PredictedESI == nil || *resp.PredictedESI != tt.wantLevel {
				t.Errorf("predicted = %v, want %d", resp.PredictedESI, tt.wantLevel)
			}
		})
	}
}

func TestFromSDKResponse_IgnoresNonTextBlocks(t *testing.T) {
	t.Parallel()

	msg := &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{
			{Type: "thinking", Text: "{not this}"},
			{Type: "text", Text: `{"predicted_esi":1}`},
		},
	}
	resp, err := fromSDKResponse(msg)
	if err != nil {
		t.Fatalf("fromSDKResponse: %v", err)
	}
	if *resp.PredictedESI != 1 {
		t.Errorf("predicted = %d, want 1", *resp.PredictedESI)
	}
}

func newTestServer(t *testing.T, status int, text string, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/messages") {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "test-key" {
			t.Errorf("api key header = %q", r.Header.Get("X-Api-Key"))
		}
		body, _ := io.ReadAll(r.Body)
		if seen != nil {
			_ = json.Unmarshal(body, seen)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"boom"}}`))
			return
		}
		reply, _ := json.Marshal(map[string]any{
			"id":            "msg_test",
			"type":          "message",
			"role":          "assistant",
			"model":         "test-model",
			"content":       []map[string]any{{"type": "text", "text": text}},
			"stop_reason":   "end_turn",
			"stop_sequence": nil,
			"usage":         map[string]any{"input_tokens": 10, "output_tokens": 5},
		})
		_, _ = w.Write(reply)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExchange_RoundTrip(t *testing.T) {
	t.Parallel()

	var seen map[string]any
	srv := newTestServer(t, http.StatusOK, `{"predicted_esi":3}`, &seen)
	c := New("test-key", "test-model", option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))

	g := predictor.NewGateway(c, nil, predictor.Hooks{})
	out, err := g.Predict(context.Background(), esi.Payload{"patientId": "p9", "fuo": 1})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if out.Level != esi.LevelUrgent {
		t.Errorf("level = %d, want 3", out.Level)
	}
	if seen["model"] != "test-model" {
		t.Errorf("model = %v, want test-model", seen["model"])
	}
	msgs, _ := seen["messages"].([]any)
	if len(msgs) != 1 {
		t.Fatalf("messages = %v, want one user message", seen["messages"])
	}
	if !strings.Contains(string(mustJSON(t, msgs[0])), `\"fuo\":1`) {
		t.Errorf("user message does not carry the features: %s", mustJSON(t, msgs[0]))
	}
}

func TestExchange_APIErrorIsExchangeError(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, http.StatusInternalServerError, "", nil)
	c := New("test-key", "test-model", option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))

	_, err := c.Exchange(context.Background(), esi.Payload{})
	var ee *predictor.ExchangeError
	if !errors.As(err, &ee) {
		t.Fatalf("err = %v, want *ExchangeError", err)
	}
	if ee.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", ee.StatusCode)
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return b
}
