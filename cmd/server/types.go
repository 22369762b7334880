package main

import (
	"fmt"
	"time"

	"github.com/himanishpuri/AcousticMatch/pkg/acousticmatch"
	"github.com/himanishpuri/AcousticMatch/pkg/acousticmatch/correlation"
	"github.com/himanishpuri/AcousticMatch/pkg/utils"
)

// RecordingDTO represents a stored recording in API responses
type RecordingDTO struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Artist      string    `json:"artist"`
	Source      string    `json:"source,omitempty"`
	SampleRate  int       `json:"sample_rate"`
	SampleCount int       `json:"sample_count"`
	DurationMs  int64     `json:"duration_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

func toRecordingDTO(r *acousticmatch.Recording) RecordingDTO {
	return RecordingDTO{
		ID:          r.ID,
		Title:       r.Title,
		Artist:      r.Artist,
		Source:      r.Source,
		SampleRate:  r.SampleRate,
		SampleCount: r.SampleCount,
		DurationMs:  r.Duration.Milliseconds(),
		CreatedAt:   r.CreatedAt,
	}
}

// ListRecordingsResponse is the response for GET /api/recordings
type ListRecordingsResponse struct {
	Recordings []RecordingDTO `json:"recordings"`
	Count      int            `json:"count"`
}

// AddRecordingResponse is the response for POST /api/recordings
type AddRecordingResponse struct {
	Message   string       `json:"message"`
	Recording RecordingDTO `json:"recording"`
}

// AddYouTubeRequest is the request body for POST /api/recordings/youtube.
// Title and artist default to the video's metadata.
type AddYouTubeRequest struct {
	YouTubeURL string `json:"youtube_url"`
	Title      string `json:"title,omitempty"`
	Artist     string `json:"artist,omitempty"`
}

func (r *AddYouTubeRequest) Validate() error {
	if r.YouTubeURL == "" {
		return fmt.Errorf("youtube_url is required")
	}
	if !utils.IsYouTubeURL(r.YouTubeURL) {
		return fmt.Errorf("youtube_url is not a YouTube video link: %s", r.YouTubeURL)
	}
	return nil
}

// DeleteRecordingResponse is the response for DELETE /api/recordings/{id}
type DeleteRecordingResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// CandidateDTO is one scored corpus entry in a match response
type CandidateDTO struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Artist string  `json:"artist"`
	Score  float64 `json:"score"`
	Error  string  `json:"error,omitempty"`
}

// MatchResponse is the response for POST /api/match. Best is omitted when
// no stored recording could be scored.
type MatchResponse struct {
	Matched    bool           `json:"matched"`
	Best       *RecordingDTO  `json:"best,omitempty"`
	BestScore  *float64       `json:"best_score,omitempty"`
	Candidates []CandidateDTO `json:"candidates"`
	Complete   bool           `json:"complete"`
	Factor     int            `json:"factor"`
	ElapsedMs  int64          `json:"elapsed_ms"`
}

func toMatchResponse(rep *acousticmatch.MatchReport) MatchResponse {
	resp := MatchResponse{
		Candidates: make([]CandidateDTO, len(rep.Candidates)),
		Complete:   rep.Complete,
		Factor:     rep.Factor,
		ElapsedMs:  rep.Elapsed.Milliseconds(),
	}
	// BestScore is -Inf without a winner, which JSON cannot carry.
	if rep.Best != nil {
		best := toRecordingDTO(rep.Best)
		score := rep.BestScore
		resp.Matched = true
		resp.Best = &best
		resp.BestScore = &score
	}
	for i, c := range rep.Candidates {
		resp.Candidates[i] = CandidateDTO(c)
	}
	return resp
}

// CompareResponse is the response for POST /api/compare
type CompareResponse struct {
	Mode       string  `json:"mode"`
	Normalized float64 `json:"normalized"`
	Confidence float64 `json:"confidence"`
	Peak       float64 `json:"peak"`
	PeakLag    int     `json:"peak_lag"`
	Legacy     float64 `json:"legacy"`
	Raw        float64 `json:"raw"`
}

func toCompareResponse(s correlation.Score) CompareResponse {
	return CompareResponse{
		Mode:       s.Mode.String(),
		Normalized: s.Normalized,
		Confidence: s.Confidence(),
		Peak:       s.Peak,
		PeakLag:    s.PeakLag,
		Legacy:     s.Legacy,
		Raw:        s.Raw,
	}
}

// MetricsResponse provides server health and corpus statistics
type MetricsResponse struct {
	Status           string `json:"status"`
	DatabasePath     string `json:"database_path"`
	RecordingCount   int64  `json:"recording_count"`
	TotalSamples     int64  `json:"total_samples"`
	SampleRate       int    `json:"sample_rate"`
	DownsampleFactor int    `json:"downsample_factor"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
