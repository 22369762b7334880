package acousticmatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/himanishpuri/AcousticMatch/pkg/acousticmatch/audio"
	"github.com/himanishpuri/AcousticMatch/pkg/acousticmatch/correlation"
	"github.com/himanishpuri/AcousticMatch/pkg/acousticmatch/matcher"
	"github.com/himanishpuri/AcousticMatch/pkg/acousticmatch/metrics"
	"github.com/himanishpuri/AcousticMatch/pkg/acousticmatch/pcm"
	"github.com/himanishpuri/AcousticMatch/pkg/logger"
	"github.com/himanishpuri/AcousticMatch/pkg/utils"
)

const unknownArtist = "Unknown Artist"

// matchService is the default implementation of the Service interface.
type matchService struct {
	storage    Storage
	decoder    Decoder
	fetcher    Fetcher
	correlator correlation.Correlator
	metrics    *metrics.Metrics
	log        Logger
	config     *Config
}

func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.DefaultMetrics()
	}
	if cfg.Decoder == nil {
		cfg.Decoder = audio.NewDecoder(audio.DecoderConfig{
			SampleRate: cfg.SampleRate,
			TempDir:    cfg.TempDir,
			Timeout:    cfg.DecodeTimeout,
		})
	}

	if cfg.Fetcher == nil {
		cfg.Fetcher = audio.YouTubeFetcher{}
	}

	stor := cfg.Storage
	if stor == nil {
		var err error
		stor, err = NewSQLiteStorage(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage: %w", err)
		}
	}

	return &matchService{
		storage:    stor,
		decoder:    cfg.Decoder,
		fetcher:    cfg.Fetcher,
		correlator: correlation.Correlator{FFTThreshold: cfg.FFTThreshold},
		metrics:    cfg.Metrics,
		log:        cfg.Logger,
		config:     cfg,
	}, nil
}

// AddRecording decodes path and stores it as a reference. Missing title or
// artist are taken from the file's tags, then from its name.
func (s *matchService) AddRecording(ctx context.Context, path, title, artist string) (string, error) {
	s.log.Infof("Adding recording from %s", path)

	sig, err := s.decoder.Decode(ctx, path)
	if err != nil {
		return "", fmt.Errorf("decoding %s: %w", path, err)
	}

	if strings.TrimSpace(title) == "" || strings.TrimSpace(artist) == "" {
		title, artist = s.fillMetadata(ctx, path, title, artist)
	}

	id, err := s.store(ctx, Recording{Title: title, Artist: artist, Source: filepath.Base(path)}, sig)
	if err != nil {
		return "", err
	}
	s.metrics.RecordRecordingAdded(ctx, "file")
	return id, nil
}

// AddYouTubeRecording downloads the audio of a YouTube video into the temp
// directory and stores it. Missing title or artist come from the video.
func (s *matchService) AddYouTubeRecording(ctx context.Context, url, title, artist string) (string, error) {
	videoID, err := utils.ExtractYouTubeID(url)
	if err != nil {
		return "", fmt.Errorf("%w: %v", pcm.ErrInvalidParameter, err)
	}
	s.log.Infof("Downloading YouTube video %s", videoID)

	path, meta, err := s.fetcher.Fetch(ctx, url, s.config.TempDir)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", url, err)
	}
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.log.Warnf("Failed to remove download %s: %v", path, err)
		}
	}()

	sig, err := s.decoder.Decode(ctx, path)
	if err != nil {
		return "", fmt.Errorf("decoding %s: %w", url, err)
	}

	if strings.TrimSpace(title) == "" {
		title = meta.Title
	}
	if strings.TrimSpace(artist) == "" {
		artist = meta.Artist
	}
	if strings.TrimSpace(artist) == "" {
		artist = unknownArtist
	}

	id, err := s.store(ctx, Recording{Title: title, Artist: artist, Source: "youtube:" + videoID}, sig)
	if err != nil {
		return "", err
	}
	s.metrics.RecordRecordingAdded(ctx, "youtube")
	return id, nil
}

func (s *matchService) fillMetadata(ctx context.Context, path, title, artist string) (string, string) {
	meta, err := s.decoder.Metadata(ctx, path)
	if err != nil {
		s.log.Debugf("No tags for %s: %v", path, err)
		meta = &audio.Metadata{}
	}

	if strings.TrimSpace(title) == "" {
		title = meta.Title
	}
	if strings.TrimSpace(title) == "" {
		title = utils.FileStem(path)
	}
	if strings.TrimSpace(artist) == "" {
		artist = meta.Artist
	}
	if strings.TrimSpace(artist) == "" {
		artist = unknownArtist
	}
	return title, artist
}

func (s *matchService) AddSignal(ctx context.Context, title, artist string, sig pcm.Signal) (string, error) {
	if strings.TrimSpace(title) == "" {
		return "", fmt.Errorf("%w: title is required", pcm.ErrInvalidParameter)
	}
	if strings.TrimSpace(artist) == "" {
		artist = unknownArtist
	}

	id, err := s.store(ctx, Recording{Title: title, Artist: artist}, sig)
	if err != nil {
		return "", err
	}
	s.metrics.RecordRecordingAdded(ctx, "signal")
	return id, nil
}

func (s *matchService) store(ctx context.Context, rec Recording, sig pcm.Signal) (string, error) {
	if sig.IsEmpty() {
		return "", fmt.Errorf("recording %q: %w", rec.Title, pcm.ErrEmptySignal)
	}

	if sig.Peak() == 0 {
		s.log.Warnf("Recording %q is silent (peak 0)", rec.Title)
	}

	id, err := s.storage.PutRecording(ctx, rec, sig)
	if err != nil {
		return "", fmt.Errorf("failed to store recording: %w", err)
	}

	s.log.Infof("Stored recording %s: %s by %s (%s at %d Hz)",
		id, rec.Title, rec.Artist, sig.Duration().Round(time.Millisecond), sig.SampleRate())
	return id, nil
}

func (s *matchService) MatchFile(ctx context.Context, path string) (*MatchReport, error) {
	s.log.Infof("Matching audio: %s", path)

	query, err := s.decoder.Decode(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return s.Match(ctx, query)
}

// Match scans the stored corpus for the recording best aligned with query.
// On cancellation the partial report is returned together with ctx.Err().
func (s *matchService) Match(ctx context.Context, query pcm.Signal) (*MatchReport, error) {
	corpus, err := s.storage.Corpus(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading corpus: %w", err)
	}

	byID := make(map[string]*Recording, len(corpus))
	entries := make([]matcher.Entry, len(corpus))
	for i := range corpus {
		c := &corpus[i]
		byID[c.ID] = &c.Recording
		entries[i] = matcher.Entry{ID: c.ID, Signal: c.Signal, Err: c.Err}
	}
	s.log.Debugf("Scanning %d recordings with factor %d", len(entries), s.config.DownsampleFactor)

	start := time.Now()
	res, err := matcher.FindBestMatch(ctx, query, entries,
		matcher.WithFactor(s.config.DownsampleFactor),
		matcher.WithWorkers(s.config.Workers),
		matcher.WithObserver(func(cs matcher.CandidateScore) {
			s.observe(ctx, byID[cs.ID], cs)
		}),
	)
	elapsed := time.Since(start)
	if res == nil {
		return nil, err
	}
	s.metrics.RecordMatch(ctx, elapsed, res.Complete)

	report := &MatchReport{
		BestScore:  res.BestScore,
		Candidates: make([]CandidateResult, len(res.Candidates)),
		Complete:   res.Complete,
		Factor:     res.Factor,
		Elapsed:    elapsed,
	}
	for i, cs := range res.Candidates {
		rec := byID[cs.ID]
		report.Candidates[i] = CandidateResult{ID: cs.ID, Title: rec.Title, Artist: rec.Artist, Score: cs.Score}
		if cs.Err != nil {
			report.Candidates[i].Error = cs.Err.Error()
		}
	}
	if res.Found {
		best := *byID[res.BestID]
		report.Best = &best
		s.log.Infof("Best match %s: %s by %s (score %.0f)", best.ID, best.Title, best.Artist, res.BestScore)
	} else {
		s.log.Infof("No match among %d recordings", len(entries))
	}

	if err != nil {
		s.log.Warnf("Match interrupted after %d of %d candidates: %v", len(res.Candidates), len(entries), err)
		return report, err
	}
	return report, nil
}

func (s *matchService) observe(ctx context.Context, rec *Recording, cs matcher.CandidateScore) {
	reason := failureReason(cs.Err)
	s.metrics.RecordCandidate(ctx, reason)
	if cs.Err != nil {
		s.log.Warnf("Skipping %s (%s): %v", rec.Title, cs.ID, cs.Err)
		return
	}
	s.log.Debugf("Candidate %s (%s): %.0f", rec.Title, cs.ID, cs.Score)
}

func failureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, pcm.ErrEmptySignal):
		return "empty"
	case errors.Is(err, matcher.ErrIncomparable):
		return "incomparable"
	case errors.Is(err, ErrUnreadableSamples):
		return "unreadable"
	default:
		return "error"
	}
}

func (s *matchService) ScorePair(a, b pcm.Signal, mode correlation.Mode) (correlation.Score, error) {
	return s.correlator.ScorePair(a, b, mode)
}

// CompareFiles decodes both files and scores them against each other.
func (s *matchService) CompareFiles(ctx context.Context, pathA, pathB string, mode correlation.Mode) (correlation.Score, error) {
	a, err := s.decoder.Decode(ctx, pathA)
	if err != nil {
		return correlation.Score{}, fmt.Errorf("decoding %s: %w", pathA, err)
	}
	b, err := s.decoder.Decode(ctx, pathB)
	if err != nil {
		return correlation.Score{}, fmt.Errorf("decoding %s: %w", pathB, err)
	}
	if a.SampleRate() != b.SampleRate() {
		return correlation.Score{}, fmt.Errorf("%s at %d Hz vs %s at %d Hz: %w",
			pathA, a.SampleRate(), pathB, b.SampleRate(), matcher.ErrIncomparable)
	}

	score, err := s.ScorePair(a, b, mode)
	if err != nil {
		return correlation.Score{}, err
	}
	s.log.Infof("Compared %s and %s (%v): normalized %.4f, peak at lag %d",
		filepath.Base(pathA), filepath.Base(pathB), mode, score.Normalized, score.PeakLag)
	return score, nil
}

func (s *matchService) GetRecording(ctx context.Context, id string) (*Recording, error) {
	return s.storage.GetRecording(ctx, id)
}

func (s *matchService) ListRecordings(ctx context.Context) ([]Recording, error) {
	return s.storage.ListRecordings(ctx)
}

func (s *matchService) Stats(ctx context.Context) (*CorpusStats, error) {
	return s.storage.Stats(ctx)
}

func (s *matchService) DeleteRecording(ctx context.Context, id string) error {
	if err := s.storage.DeleteRecording(ctx, id); err != nil {
		return err
	}
	s.log.Infof("Deleted recording %s", id)
	return nil
}

// Close releases all resources held by the service.
func (s *matchService) Close() error {
	return s.storage.Close()
}
