package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/himanishpuri/AcousticMatch/pkg/acousticmatch"
	"github.com/himanishpuri/AcousticMatch/pkg/acousticmatch/audio"
	"github.com/himanishpuri/AcousticMatch/pkg/acousticmatch/correlation"
	"github.com/himanishpuri/AcousticMatch/pkg/acousticmatch/matcher"
	"github.com/himanishpuri/AcousticMatch/pkg/acousticmatch/metrics"
	"github.com/himanishpuri/AcousticMatch/pkg/acousticmatch/pcm"
	"github.com/himanishpuri/AcousticMatch/pkg/utils"
)

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service acousticmatch.Service
	config  *ServerConfig
	log     acousticmatch.Logger
	metrics *metrics.Metrics
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port             int
	DBPath           string
	TempDir          string
	SampleRate       int
	DownsampleFactor int
	MaxUploadBytes   int64
	AllowedOrigins   []string
}

// NewServer creates a new server instance
func NewServer(service acousticmatch.Service, config *ServerConfig, log acousticmatch.Logger, m *metrics.Metrics) *Server {
	return &Server{
		service: service,
		config:  config,
		log:     log,
		metrics: m,
	}
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// statusClientClosedRequest is the nginx convention for a request the
// client abandoned before the response was ready.
const statusClientClosedRequest = 499

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest
	case errors.Is(err, acousticmatch.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pcm.ErrEmptySignal),
		errors.Is(err, pcm.ErrInvalidParameter),
		errors.Is(err, correlation.ErrDivisionByZero):
		return http.StatusBadRequest
	case errors.Is(err, audio.ErrDecode),
		errors.Is(err, matcher.ErrIncomparable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, acousticmatch.ErrDownload):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondServiceError(w http.ResponseWriter, action string, err error) {
	code := statusFor(err)
	s.logServiceError(code, action, err)
	s.respondError(w, code, fmt.Sprintf("Failed to %s: %v", action, err))
}

func (s *Server) logServiceError(code int, action string, err error) {
	if code >= http.StatusInternalServerError {
		s.log.Errorf("Failed to %s: %v", action, err)
	} else {
		s.log.Warnf("Failed to %s: %v", action, err)
	}
}

// saveUpload copies the multipart file in field to TempDir. The caller
// removes the returned path.
func (s *Server) saveUpload(r *http.Request, field string) (string, string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return "", "", fmt.Errorf("%s file is required", field)
	}
	defer file.Close()

	if err := utils.MakeDir(s.config.TempDir); err != nil {
		return "", "", err
	}
	name := filepath.Base(header.Filename)
	tempFile := filepath.Join(s.config.TempDir, fmt.Sprintf("upload_%s_%s", utils.GenerateID()[:8], name))
	out, err := os.Create(tempFile)
	if err != nil {
		return "", "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		os.Remove(tempFile)
		return "", "", err
	}
	return tempFile, name, out.Close()
}

func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.log.Warnf("Failed to parse form: %v", err)
		s.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return false
	}
	return true
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"service": "AcousticMatch API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health":          "GET /health",
			"metrics":         "GET /api/health/metrics",
			"prometheus":      "GET /metrics",
			"recordings":      "GET /api/recordings",
			"addRecording":    "POST /api/recordings",
			"addYouTube":      "POST /api/recordings/youtube",
			"getRecording":    "GET /api/recordings/{id}",
			"deleteRecording": "DELETE /api/recordings/{id}",
			"match":           "POST /api/match",
			"compare":         "POST /api/compare",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleMetrics handles GET /api/health/metrics
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		s.log.Errorf("Failed to read corpus stats: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve metrics")
		return
	}

	s.respondJSON(w, http.StatusOK, MetricsResponse{
		Status:           "healthy",
		DatabasePath:     s.config.DBPath,
		RecordingCount:   stats.Recordings,
		TotalSamples:     stats.TotalSamples,
		SampleRate:       s.config.SampleRate,
		DownsampleFactor: s.config.DownsampleFactor,
	})
}

// handleListRecordings handles GET /api/recordings
func (s *Server) handleListRecordings(w http.ResponseWriter, r *http.Request) {
	recs, err := s.service.ListRecordings(r.Context())
	if err != nil {
		s.respondServiceError(w, "list recordings", err)
		return
	}

	dtos := make([]RecordingDTO, len(recs))
	for i := range recs {
		dtos[i] = toRecordingDTO(&recs[i])
	}
	s.respondJSON(w, http.StatusOK, ListRecordingsResponse{
		Recordings: dtos,
		Count:      len(dtos),
	})
}

// handleAddRecording handles POST /api/recordings (multipart upload with
// an "audio" file and optional "title" and "artist" fields)
func (s *Server) handleAddRecording(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	if !s.parseForm(w, r) {
		return
	}

	path, name, err := s.saveUpload(r, "audio")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer os.Remove(path)

	title := r.FormValue("title")
	if title == "" {
		title = utils.FileStem(name)
	}

	id, err := s.service.AddRecording(ctx, path, title, r.FormValue("artist"))
	if err != nil {
		s.respondServiceError(w, "add recording", err)
		return
	}
	rec, err := s.service.GetRecording(ctx, id)
	if err != nil {
		s.respondServiceError(w, "load recording", err)
		return
	}

	s.respondJSON(w, http.StatusCreated, AddRecordingResponse{
		Message:   "Recording added successfully",
		Recording: toRecordingDTO(rec),
	})
}

// handleAddYouTube handles POST /api/recordings/youtube
func (s *Server) handleAddYouTube(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	var req AddYouTubeRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		s.log.Warnf("Failed to decode request: %v", err)
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.log.Infof("Adding recording from YouTube URL: %s", req.YouTubeURL)
	id, err := s.service.AddYouTubeRecording(ctx, req.YouTubeURL, req.Title, req.Artist)
	if err != nil {
		s.respondServiceError(w, "add YouTube recording", err)
		return
	}
	rec, err := s.service.GetRecording(ctx, id)
	if err != nil {
		s.respondServiceError(w, "load recording", err)
		return
	}

	s.respondJSON(w, http.StatusCreated, AddRecordingResponse{
		Message:   "Recording added successfully",
		Recording: toRecordingDTO(rec),
	})
}

// handleGetRecording handles GET /api/recordings/{id}
func (s *Server) handleGetRecording(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := s.service.GetRecording(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, "get recording", err)
		return
	}
	s.respondJSON(w, http.StatusOK, toRecordingDTO(rec))
}

// handleDeleteRecording handles DELETE /api/recordings/{id}
func (s *Server) handleDeleteRecording(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.service.DeleteRecording(r.Context(), id); err != nil {
		s.respondServiceError(w, "delete recording", err)
		return
	}
	s.respondJSON(w, http.StatusOK, DeleteRecordingResponse{
		Message: "Recording deleted successfully",
		ID:      id,
	})
}

// handleMatchFile handles POST /api/match (multipart "audio" upload)
func (s *Server) handleMatchFile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	if !s.parseForm(w, r) {
		return
	}
	path, name, err := s.saveUpload(r, "audio")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer os.Remove(path)

	s.log.Infof("Matching uploaded file: %s", name)
	report, err := s.service.MatchFile(ctx, path)
	switch {
	case err == nil:
		s.respondJSON(w, http.StatusOK, toMatchResponse(report))
	case report != nil:
		// interrupted scan: the partial report goes out with the error status
		code := statusFor(err)
		s.logServiceError(code, "match", err)
		s.respondJSON(w, code, toMatchResponse(report))
	default:
		s.respondServiceError(w, "match", err)
	}
}

// handleCompare handles POST /api/compare (multipart "a" and "b" uploads,
// optional "mode" of full or valid)
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	if !s.parseForm(w, r) {
		return
	}

	mode := correlation.Full
	if m := r.FormValue("mode"); m != "" {
		var err error
		if mode, err = correlation.ParseMode(m); err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	pathA, _, err := s.saveUpload(r, "a")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer os.Remove(pathA)
	pathB, _, err := s.saveUpload(r, "b")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer os.Remove(pathB)

	score, err := s.service.CompareFiles(ctx, pathA, pathB, mode)
	if err != nil {
		s.respondServiceError(w, "compare", err)
		return
	}
	s.respondJSON(w, http.StatusOK, toCompareResponse(score))
}

// handleRecordings routes requests to /api/recordings
func (s *Server) handleRecordings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListRecordings(w, r)
	case http.MethodPost:
		s.handleAddRecording(w, r)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleRecording routes requests to /api/recordings/{id}
func (s *Server) handleRecording(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !utils.ValidID(id) {
		s.respondError(w, http.StatusBadRequest, "Invalid recording ID")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetRecording(w, r, id)
	case http.MethodDelete:
		s.handleDeleteRecording(w, r, id)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleMatch routes requests to /api/match
func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.handleMatchFile(w, r)
}

// handleCompareRoute routes requests to /api/compare
func (s *Server) handleCompareRoute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.handleCompare(w, r)
}
