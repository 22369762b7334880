package acousticmatch

import (
	"context"

	"github.com/himanishpuri/AcousticMatch/pkg/acousticmatch/audio"
	"github.com/himanishpuri/AcousticMatch/pkg/acousticmatch/correlation"
	"github.com/himanishpuri/AcousticMatch/pkg/acousticmatch/pcm"
)

type Service interface {
	AddRecording(ctx context.Context, path, title, artist string) (string, error)
	AddSignal(ctx context.Context, title, artist string, sig pcm.Signal) (string, error)
	AddYouTubeRecording(ctx context.Context, url, title, artist string) (string, error)
	MatchFile(ctx context.Context, path string) (*MatchReport, error)
	Match(ctx context.Context, query pcm.Signal) (*MatchReport, error)
	ScorePair(a, b pcm.Signal, mode correlation.Mode) (correlation.Score, error)
	CompareFiles(ctx context.Context, pathA, pathB string, mode correlation.Mode) (correlation.Score, error)
	GetRecording(ctx context.Context, id string) (*Recording, error)
	ListRecordings(ctx context.Context) ([]Recording, error)
	DeleteRecording(ctx context.Context, id string) error
	Stats(ctx context.Context) (*CorpusStats, error)
	Close() error
}

// Storage persists reference recordings. Corpus must return entries in the
// same order on every call.
type Storage interface {
	PutRecording(ctx context.Context, rec Recording, sig pcm.Signal) (string, error)
	Corpus(ctx context.Context) ([]StoredRecording, error)
	GetRecording(ctx context.Context, id string) (*Recording, error)
	ListRecordings(ctx context.Context) ([]Recording, error)
	DeleteRecording(ctx context.Context, id string) error
	Stats(ctx context.Context) (*CorpusStats, error)
	Close() error
}

type Decoder interface {
	Decode(ctx context.Context, path string) (pcm.Signal, error)
	Metadata(ctx context.Context, path string) (*audio.Metadata, error)
}

// Fetcher downloads a remote recording into outDir and returns the local
// path. The caller removes the file.
type Fetcher interface {
	Fetch(ctx context.Context, url, outDir string) (string, *audio.RemoteMetadata, error)
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
