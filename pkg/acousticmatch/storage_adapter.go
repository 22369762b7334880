package acousticmatch

import (
	"context"

	"github.com/himanishpuri/AcousticMatch/pkg/acousticmatch/pcm"
	"github.com/himanishpuri/AcousticMatch/pkg/acousticmatch/storage"
)

// storageAdapter adapts storage.DBClient to the Storage interface.
type storageAdapter struct {
	db *storage.DBClient
}

// NewSQLiteStorage opens (or creates) a SQLite recording store at dbPath.
func NewSQLiteStorage(dbPath string) (Storage, error) {
	db, err := storage.NewDBClientWithPath(dbPath)
	if err != nil {
		return nil, err
	}
	return &storageAdapter{db: db}, nil
}

func toRecording(row *storage.Recording) Recording {
	return Recording{
		ID:          row.ID,
		Title:       row.Title,
		Artist:      row.Artist,
		Source:      row.Source,
		SampleRate:  row.SampleRate,
		SampleCount: row.SampleCount,
		Duration:    row.Duration(),
		CreatedAt:   row.CreatedAt,
	}
}

func (s *storageAdapter) PutRecording(ctx context.Context, rec Recording, sig pcm.Signal) (string, error) {
	row := &storage.Recording{
		ID:        rec.ID,
		Title:     rec.Title,
		Artist:    rec.Artist,
		Source:    rec.Source,
		CreatedAt: rec.CreatedAt,
	}
	row.SetSignal(sig)
	return s.db.PutRecording(ctx, row)
}

func (s *storageAdapter) Corpus(ctx context.Context) ([]StoredRecording, error) {
	rows, err := s.db.AllRecordings(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]StoredRecording, len(rows))
	for i := range rows {
		out[i].Recording = toRecording(&rows[i])
		out[i].Signal, out[i].Err = rows[i].Signal()
	}
	return out, nil
}

func (s *storageAdapter) GetRecording(ctx context.Context, id string) (*Recording, error) {
	row, err := s.db.GetRecording(ctx, id)
	if err != nil {
		return nil, err
	}
	rec := toRecording(row)
	return &rec, nil
}

func (s *storageAdapter) ListRecordings(ctx context.Context) ([]Recording, error) {
	rows, err := s.db.ListRecordings(ctx)
	if err != nil {
		return nil, err
	}

	recs := make([]Recording, len(rows))
	for i := range rows {
		recs[i] = toRecording(&rows[i])
	}
	return recs, nil
}

func (s *storageAdapter) DeleteRecording(ctx context.Context, id string) error {
	return s.db.DeleteRecording(ctx, id)
}

func (s *storageAdapter) Stats(ctx context.Context) (*CorpusStats, error) {
	n, err := s.db.CountRecordings(ctx)
	if err != nil {
		return nil, err
	}
	samples, err := s.db.TotalSamples(ctx)
	if err != nil {
		return nil, err
	}
	return &CorpusStats{Recordings: n, TotalSamples: samples}, nil
}

func (s *storageAdapter) Close() error {
	return s.db.Close()
}
