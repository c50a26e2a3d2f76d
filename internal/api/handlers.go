package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"medcapture/internal/codec"
	"medcapture/internal/database"
	"medcapture/internal/frame"
	"medcapture/internal/logger"
	"medcapture/internal/models"
	"medcapture/internal/pipeline"
	"medcapture/internal/quality"
	"medcapture/internal/storage"
	"medcapture/internal/vision"

	"github.com/go-chi/chi/v5"
)

// DefaultMaxUploadSize applies when App.MaxUploadSize is not set.
const DefaultMaxUploadSize = 20 << 20

// VisionAnalyzer forwards an image to the vision backend. *vision.Client
// implements it.
type VisionAnalyzer interface {
	Analyze(ctx context.Context, req vision.Request) (*vision.Response, error)
}

type App struct {
	Pipeline      *pipeline.Pipeline
	Storage       storage.Storage
	Captures      *database.CaptureRepository
	Vision        VisionAnalyzer // nil when no backend is configured
	Logger        logger.Logger
	MaxUploadSize int64
}

type imageInfo struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	Size   int `json:"size"`
}

type captureResponse struct {
	ID         string          `json:"id,omitempty"`
	Quality    quality.Report  `json:"quality"`
	Proceeded  bool            `json:"proceeded"`
	Advisory   *quality.Report `json:"advisory"`
	Original   imageInfo       `json:"original"`
	Compressed imageInfo       `json:"compressed"`
}

type errorResponse struct {
	Error      string              `json:"error"`
	Suggestion *quality.Suggestion `json:"suggestion,omitempty"`
}

func newCaptureResponse(id string, res *pipeline.Result) captureResponse {
	return captureResponse{
		ID:         id,
		Quality:    res.Quality,
		Proceeded:  res.Proceeded,
		Advisory:   res.Advisory,
		Original:   info(res.Original),
		Compressed: info(res.Compressed),
	}
}

func info(e codec.Encoded) imageInfo {
	return imageInfo{Width: e.Width, Height: e.Height, Size: e.Size}
}

func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

// CreateCaptureHandler processes an uploaded photo and stores both
// encodings together with its quality report.
func (app *App) CreateCaptureHandler(w http.ResponseWriter, r *http.Request) {
	res, ok := app.process(w, r)
	if !ok {
		return
	}

	capture := models.NewCapture(models.SourceUpload, res)
	if err := app.persist(r.Context(), capture, res); err != nil {
		app.log().Error("API", err, map[string]interface{}{"capture_id": capture.ID})
		app.writeError(w, http.StatusInternalServerError, "failed to store capture", nil)
		return
	}

	app.writeJSON(w, http.StatusCreated, newCaptureResponse(capture.ID, res))
}

// AnalyzeHandler runs the pipeline without persisting anything.
func (app *App) AnalyzeHandler(w http.ResponseWriter, r *http.Request) {
	res, ok := app.process(w, r)
	if !ok {
		return
	}
	app.writeJSON(w, http.StatusOK, newCaptureResponse("", res))
}

func (app *App) ListCapturesHandler(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			app.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer", nil)
			return
		}
		limit = n
	}

	captures, err := app.Captures.List(r.Context(), limit)
	if err != nil {
		app.log().Error("API", err, nil)
		app.writeError(w, http.StatusInternalServerError, "failed to list captures", nil)
		return
	}
	app.writeJSON(w, http.StatusOK, captures)
}

func (app *App) GetCaptureHandler(w http.ResponseWriter, r *http.Request) {
	capture, ok := app.lookup(w, r)
	if !ok {
		return
	}
	app.writeJSON(w, http.StatusOK, capture)
}

// CaptureImageHandler serves the compressed encoding, or the original with
// ?variant=original.
func (app *App) CaptureImageHandler(w http.ResponseWriter, r *http.Request) {
	capture, ok := app.lookup(w, r)
	if !ok {
		return
	}

	var name string
	switch r.URL.Query().Get("variant") {
	case "", "compressed":
		name = capture.CompressedPath
	case "original":
		name = capture.OriginalPath
	default:
		app.writeError(w, http.StatusBadRequest, "variant must be compressed or original", nil)
		return
	}

	f, err := app.Storage.Open(name)
	if err != nil {
		app.log().Error("API", err, map[string]interface{}{"capture_id": capture.ID, "file": name})
		app.writeError(w, http.StatusNotFound, "image file missing", nil)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "image/jpeg")
	http.ServeContent(w, r, name, capture.CreatedAt, f)
}

func (app *App) DeleteCaptureHandler(w http.ResponseWriter, r *http.Request) {
	capture, ok := app.lookup(w, r)
	if !ok {
		return
	}

	if err := app.Captures.Delete(r.Context(), capture.ID); err != nil && !errors.Is(err, database.ErrNotFound) {
		app.log().Error("API", err, map[string]interface{}{"capture_id": capture.ID})
		app.writeError(w, http.StatusInternalServerError, "failed to delete capture", nil)
		return
	}
	app.removeFiles(capture.ID, capture.OriginalPath, capture.CompressedPath)

	w.WriteHeader(http.StatusNoContent)
}

// VisionHandler sends the stored compressed image to the vision backend.
func (app *App) VisionHandler(w http.ResponseWriter, r *http.Request) {
	if app.Vision == nil {
		app.writeError(w, http.StatusServiceUnavailable, vision.ErrNotConfigured.Error(), nil)
		return
	}
	capture, ok := app.lookup(w, r)
	if !ok {
		return
	}

	data, err := app.readFile(capture.CompressedPath)
	if err != nil {
		app.log().Error("API", err, map[string]interface{}{"capture_id": capture.ID})
		app.writeError(w, http.StatusNotFound, "image file missing", nil)
		return
	}

	resp, err := app.Vision.Analyze(r.Context(), vision.Request{
		Image: codec.Encoded{
			Data:     data,
			MIMEType: "image/jpeg",
			Width:    capture.Width,
			Height:   capture.Height,
			Size:     len(data),
		},
		Kind: vision.ParseKind(r.URL.Query().Get("kind")),
		Note: r.URL.Query().Get("note"),
	})
	if err != nil {
		app.log().Error("API", err, map[string]interface{}{"capture_id": capture.ID})
		msg := "vision backend unavailable"
		var apiErr *vision.APIError
		if errors.Is(err, vision.ErrAnalysisFailed) && resp != nil && resp.Message != "" {
			msg = resp.Message
		} else if errors.As(err, &apiErr) && apiErr.Message != "" {
			msg = apiErr.Message
		}
		app.writeError(w, http.StatusBadGateway, msg, nil)
		return
	}

	app.writeJSON(w, http.StatusOK, resp)
}

// TimingsHandler reports the average duration of each pipeline stage in
// milliseconds.
func (app *App) TimingsHandler(w http.ResponseWriter, r *http.Request) {
	out := make(map[string]float64)
	for stage, d := range app.Pipeline.Timings() {
		out[stage] = float64(d.Microseconds()) / 1000
	}
	app.writeJSON(w, http.StatusOK, out)
}

// process reads the upload and runs the pipeline, writing the error
// response itself when it fails.
func (app *App) process(w http.ResponseWriter, r *http.Request) (*pipeline.Result, bool) {
	data, status, err := app.readUpload(w, r)
	if err != nil {
		app.writeError(w, status, err.Error(), nil)
		return nil, false
	}

	res, err := app.Pipeline.ProcessEncoded(r.Context(), data)
	if err != nil {
		var encErr *codec.EncodingError
		switch {
		case frame.IsInvalid(err):
			s := quality.Unanalyzable()
			app.writeError(w, http.StatusUnprocessableEntity, err.Error(), &s)
		case errors.As(err, &encErr):
			app.writeError(w, http.StatusInternalServerError, "failed to encode image", nil)
		default:
			app.log().Error("API", err, nil)
			app.writeError(w, http.StatusInternalServerError, "failed to process image", nil)
		}
		return nil, false
	}
	return res, true
}

// readUpload accepts multipart form data with an "image" field or a raw
// image body.
func (app *App) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, int, error) {
	limit := app.MaxUploadSize
	if limit <= 0 {
		limit = DefaultMaxUploadSize
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	var src io.Reader = r.Body
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(limit); err != nil {
			return nil, uploadErrorStatus(err), fmt.Errorf("invalid upload: %w", err)
		}
		file, _, err := r.FormFile("image")
		if err != nil {
			return nil, http.StatusBadRequest, fmt.Errorf("missing image field")
		}
		defer file.Close()
		src = file
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, uploadErrorStatus(err), fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, http.StatusBadRequest, fmt.Errorf("empty upload")
	}
	return data, 0, nil
}

func uploadErrorStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

// persist writes both encodings and inserts the record, removing the files
// again if a later step fails.
func (app *App) persist(ctx context.Context, capture *models.Capture, res *pipeline.Result) error {
	original, err := app.Storage.Save(res.Original.Data, ".jpg")
	if err != nil {
		return err
	}
	compressed, err := app.Storage.Save(res.Compressed.Data, ".jpg")
	if err != nil {
		app.removeFiles(capture.ID, original)
		return err
	}

	capture.OriginalPath = original
	capture.CompressedPath = compressed
	if err := app.Captures.Insert(ctx, capture); err != nil {
		app.removeFiles(capture.ID, original, compressed)
		return err
	}
	return nil
}

// removeFiles deletes stored files, logging the ones left behind.
func (app *App) removeFiles(captureID string, names ...string) {
	for _, name := range names {
		if err := app.Storage.Delete(name); err != nil {
			app.log().Warning("API", "failed to remove capture file", map[string]interface{}{
				"capture_id": captureID,
				"file":       name,
				"error":      err.Error(),
			})
		}
	}
}

func (app *App) lookup(w http.ResponseWriter, r *http.Request) (*models.Capture, bool) {
	id := chi.URLParam(r, "id")
	capture, err := app.Captures.Get(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		app.writeError(w, http.StatusNotFound, "capture not found", nil)
		return nil, false
	}
	if err != nil {
		app.log().Error("API", err, map[string]interface{}{"capture_id": id})
		app.writeError(w, http.StatusInternalServerError, "failed to load capture", nil)
		return nil, false
	}
	return capture, true
}

func (app *App) readFile(name string) ([]byte, error) {
	f, err := app.Storage.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (app *App) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		app.log().Error("API", err, nil)
	}
}

func (app *App) writeError(w http.ResponseWriter, status int, msg string, s *quality.Suggestion) {
	app.writeJSON(w, status, errorResponse{Error: msg, Suggestion: s})
}

func (app *App) log() logger.Logger {
	if app.Logger == nil {
		return logger.Nop()
	}
	return app.Logger
}
