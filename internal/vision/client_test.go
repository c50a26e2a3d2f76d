package vision

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"medcapture/internal/codec"
)

var testImage = codec.Encoded{
	Data:     []byte{0xff, 0xd8, 0xff, 0xd9},
	MIMEType: "image/jpeg",
	Width:    1,
	Height:   1,
	Size:     4,
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := NewClient(Config{BaseURL: server.URL + "/", Timeout: 5 * time.Second}, nil)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c
}

func TestAnalyze(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/vision-analyze" {
			t.Errorf("path = %s, want /api/vision-analyze", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %s", ct)
		}

		var payload analyzePayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
			return
		}
		if payload.Image != "data:image/jpeg;base64,/9j/2Q==" {
			t.Errorf("image = %q", payload.Image)
		}
		if payload.Kind != KindDrug || payload.Note != "taken twice daily" {
			t.Errorf("payload = %+v", payload)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Response{
			Success:   true,
			Kind:      KindDrug,
			HTML:      "<h3>Name</h3>",
			ModelUsed: "vision-model",
		})
	})

	resp, err := c.Analyze(context.Background(), Request{Image: testImage, Kind: KindDrug, Note: "taken twice daily"})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if resp.HTML != "<h3>Name</h3>" || resp.ModelUsed != "vision-model" || resp.Kind != KindDrug {
		t.Errorf("response = %+v", resp)
	}
}

func TestAnalyzeDefaultsKind(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var payload analyzePayload
		json.NewDecoder(r.Body).Decode(&payload)
		if payload.Kind != KindAuto {
			t.Errorf("kind = %q, want auto", payload.Kind)
		}
		json.NewEncoder(w).Encode(Response{Success: true, Kind: KindSkin})
	})

	if _, err := c.Analyze(context.Background(), Request{Image: testImage}); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
}

func TestAnalyzeErrors(t *testing.T) {
	t.Run("backend reports failure", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(Response{Success: false, Message: "analysis failed, retry later", Error: "timeout"})
		})

		resp, err := c.Analyze(context.Background(), Request{Image: testImage})
		if !errors.Is(err, ErrAnalysisFailed) {
			t.Fatalf("error = %v, want ErrAnalysisFailed", err)
		}
		if resp == nil || resp.Error != "timeout" {
			t.Errorf("response = %+v, want backend error detail", resp)
		}
	})

	t.Run("non-2xx status", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(Response{Success: false, Message: "upload a valid image"})
		})

		_, err := c.Analyze(context.Background(), Request{Image: testImage})
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("error = %v, want APIError", err)
		}
		if apiErr.StatusCode != http.StatusBadRequest || apiErr.Message != "upload a valid image" {
			t.Errorf("APIError = %+v", apiErr)
		}
		if apiErr.IsServerError() {
			t.Error("400 reported as server error")
		}
	})

	t.Run("plain text error body", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad gateway", http.StatusBadGateway)
		})

		_, err := c.Analyze(context.Background(), Request{Image: testImage})
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("error = %v, want APIError", err)
		}
		if apiErr.Message != "bad gateway" || !apiErr.IsServerError() {
			t.Errorf("APIError = %+v", apiErr)
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("{not json"))
		})

		if _, err := c.Analyze(context.Background(), Request{Image: testImage}); err == nil {
			t.Fatal("expected decode error")
		}
	})

	t.Run("empty image", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("request sent for empty image")
		})

		if _, err := c.Analyze(context.Background(), Request{}); err == nil {
			t.Fatal("expected error for empty image")
		}
	})
}

func TestNewClientNotConfigured(t *testing.T) {
	if _, err := NewClient(Config{BaseURL: "  "}, nil); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("error = %v, want ErrNotConfigured", err)
	}
}

func TestDataURL(t *testing.T) {
	got := DataURL(codec.Encoded{Data: []byte("hi")})
	if !strings.HasPrefix(got, "data:image/jpeg;base64,") {
		t.Errorf("DataURL without MIME type = %q", got)
	}
	if got := DataURL(codec.Encoded{Data: []byte("hi"), MIMEType: "image/png"}); got != "data:image/png;base64,aGk=" {
		t.Errorf("DataURL = %q", got)
	}
}

func TestParseKind(t *testing.T) {
	tests := map[string]Kind{
		"drug":    KindDrug,
		" Pill ":  KindDrug,
		"lab":     KindReport,
		"REPORT":  KindReport,
		"skin":    KindSkin,
		"":        KindAuto,
		"unknown": KindAuto,
	}
	for in, want := range tests {
		if got := ParseKind(in); got != want {
			t.Errorf("ParseKind(%q) = %q, want %q", in, got, want)
		}
	}
}
