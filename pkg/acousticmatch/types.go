package acousticmatch

import (
	"encoding/json"
	"time"

	"github.com/himanishpuri/AcousticMatch/pkg/acousticmatch/audio"
	"github.com/himanishpuri/AcousticMatch/pkg/acousticmatch/pcm"
	"github.com/himanishpuri/AcousticMatch/pkg/acousticmatch/storage"
)

var (
	// ErrNotFound is returned for unknown recording ids.
	ErrNotFound = storage.ErrNotFound
	// ErrUnreadableSamples marks a stored recording whose sample blob is corrupt.
	ErrUnreadableSamples = storage.ErrUnreadableSamples
	// ErrDownload wraps failures to fetch a remote recording.
	ErrDownload = audio.ErrDownload
)

// Recording describes a stored reference without its samples.
type Recording struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Artist      string        `json:"artist"`
	Source      string        `json:"source,omitempty"`
	SampleRate  int           `json:"sample_rate"`
	SampleCount int           `json:"sample_count"`
	Duration    time.Duration `json:"duration_ns"`
	CreatedAt   time.Time     `json:"created_at"`
}

// StoredRecording pairs a recording with its decoded samples. Err is set
// when the stored samples could not be decoded.
type StoredRecording struct {
	Recording
	Signal pcm.Signal
	Err    error
}

// CandidateResult is one corpus entry's outcome in a match.
type CandidateResult struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Artist string  `json:"artist"`
	Score  float64 `json:"score"`
	Error  string  `json:"error,omitempty"`
}

func (c CandidateResult) Failed() bool { return c.Error != "" }

// MatchReport is the outcome of matching one query against the corpus.
// Best is nil when no candidate could be scored, and BestScore is then
// negative infinity.
type MatchReport struct {
	Best       *Recording        `json:"best,omitempty"`
	BestScore  float64           `json:"best_score"`
	Candidates []CandidateResult `json:"candidates"`
	// Complete is false when the scan was cancelled part way.
	Complete bool          `json:"complete"`
	Factor   int           `json:"factor"`
	Elapsed  time.Duration `json:"elapsed_ns"`
}

// MarshalJSON omits best_score when there is no best match, since JSON
// cannot carry negative infinity.
func (r MatchReport) MarshalJSON() ([]byte, error) {
	type report MatchReport
	out := struct {
		report
		BestScore *float64 `json:"best_score,omitempty"`
	}{report: report(r)}
	if r.Best != nil {
		out.BestScore = &r.BestScore
	}
	return json.Marshal(out)
}

// CorpusStats summarises the stored corpus.
type CorpusStats struct {
	Recordings   int64 `json:"recordings"`
	TotalSamples int64 `json:"total_samples"`
}
