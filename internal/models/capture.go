package models

import (
	"time"

	"medcapture/internal/pipeline"

	"github.com/google/uuid"
)

// Capture sources.
const (
	SourceUpload = "upload"
	SourceCamera = "camera"
)

// Capture is a processed photo as persisted: where both encodings live and
// the quality report taken at capture time.
type Capture struct {
	ID             string    `json:"id"`
	Source         string    `json:"source"`
	OriginalPath   string    `json:"-"`
	CompressedPath string    `json:"-"`
	Width          int       `json:"width"`
	Height         int       `json:"height"`
	OriginalSize   int       `json:"originalSize"`
	CompressedSize int       `json:"compressedSize"`
	Brightness     float64   `json:"brightness"`
	Contrast       float64   `json:"contrast"`
	Clarity        float64   `json:"clarity"`
	Overall        float64   `json:"overall"`
	IsGood         bool      `json:"isGood"`
	SuggestionKind string    `json:"suggestionKind"`
	SuggestionText string    `json:"suggestionText"`
	CreatedAt      time.Time `json:"createdAt"`
}

// NewCapture fills a record from a pipeline result. The storage paths are
// set by the caller once both encodings are written.
func NewCapture(source string, res *pipeline.Result) *Capture {
	q := res.Quality
	return &Capture{
		ID:             uuid.New().String(),
		Source:         source,
		Width:          res.Original.Width,
		Height:         res.Original.Height,
		OriginalSize:   res.Original.Size,
		CompressedSize: res.Compressed.Size,
		Brightness:     q.Brightness,
		Contrast:       q.Contrast,
		Clarity:        q.Clarity,
		Overall:        q.Overall,
		IsGood:         q.IsGood,
		SuggestionKind: string(q.Suggestion.Kind),
		SuggestionText: q.Suggestion.Text,
		CreatedAt:      time.Now().UTC(),
	}
}
