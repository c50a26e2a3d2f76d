// Package vision forwards a compressed capture to the image understanding
// backend and returns its structured interpretation.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"medcapture/internal/codec"
	"medcapture/internal/httpc"
	"medcapture/internal/logger"
)

const analyzePath = "/api/vision-analyze"

// maxResponseSize bounds how much of a backend answer is read.
const maxResponseSize = 4 << 20

// Kind tells the backend what the photo shows.
type Kind string

const (
	KindAuto   Kind = "auto"
	KindDrug   Kind = "drug"   // medicine packaging
	KindReport Kind = "report" // lab or exam report
	KindSkin   Kind = "skin"   // skin condition or wound
)

// ParseKind maps user input, including common synonyms, onto a Kind.
// Anything unrecognised becomes KindAuto.
func ParseKind(s string) Kind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "drug", "medicine", "med", "pill", "box":
		return KindDrug
	case "report", "exam", "check", "lab":
		return KindReport
	case "skin", "wound":
		return KindSkin
	default:
		return KindAuto
	}
}

// Config configures the backend connection.
type Config struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type Request struct {
	Image codec.Encoded
	Kind  Kind
	Note  string
}

// Response mirrors the backend's JSON answer.
type Response struct {
	Success   bool   `json:"success"`
	Kind      Kind   `json:"kind,omitempty"`
	HTML      string `json:"html,omitempty"`
	ModelUsed string `json:"model_used,omitempty"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}

type analyzePayload struct {
	Image string `json:"image"`
	Kind  Kind   `json:"kind"`
	Note  string `json:"note,omitempty"`
}

type Client struct {
	baseURL string
	http    *http.Client
	logger  logger.Logger
}

// NewClient returns ErrNotConfigured when cfg.BaseURL is empty.
func NewClient(cfg Config, log logger.Logger) (*Client, error) {
	baseURL := strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, ErrNotConfigured
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		baseURL: baseURL,
		http:    httpc.NewClient(cfg.Timeout),
		logger:  log,
	}, nil
}

// Analyze sends the image and returns the backend's interpretation. The
// call is not retried.
func (c *Client) Analyze(ctx context.Context, req Request) (*Response, error) {
	if len(req.Image.Data) == 0 {
		return nil, fmt.Errorf("vision: empty image")
	}
	kind := req.Kind
	if kind == "" {
		kind = KindAuto
	}

	body, err := json.Marshal(analyzePayload{
		Image: DataURL(req.Image),
		Kind:  kind,
		Note:  req.Note,
	})
	if err != nil {
		return nil, fmt.Errorf("vision: marshal payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+analyzePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("vision: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Error("VisionClient", err, map[string]interface{}{"kind": string(kind)})
		return nil, fmt.Errorf("vision: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("vision: read response: %w", err)
	}

	var out Response
	decodeErr := json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(raw))
		if decodeErr == nil && out.Message != "" {
			msg = out.Message
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("vision: decode response: %w", decodeErr)
	}
	if !out.Success {
		c.logger.Warning("VisionClient", "backend reported failure", map[string]interface{}{
			"message": out.Message,
			"error":   out.Error,
		})
		return &out, fmt.Errorf("%w: %s", ErrAnalysisFailed, out.Message)
	}

	c.logger.Info("VisionClient", "image analyzed", map[string]interface{}{
		"kind":        string(out.Kind),
		"model":       out.ModelUsed,
		"image_bytes": req.Image.Size,
		"latency_ms":  time.Since(start).Milliseconds(),
	})
	return &out, nil
}

// DataURL renders an encoded image as data:<mime>;base64,<payload>.
func DataURL(img codec.Encoded) string {
	mime := img.MIMEType
	if mime == "" {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}
