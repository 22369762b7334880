//go:build !js && !wasm

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/himanishpuri/AcousticMatch/pkg/acousticmatch/pcm"
	"github.com/himanishpuri/AcousticMatch/pkg/utils"
)

const (
	DefaultDBFile = "acousticmatch.sqlite3"
	EnvDBPath     = "ACOUSTICMATCH_DB_PATH"
)

const errDBClientNil = "db client is nil"

var (
	// ErrNotFound is returned for ids with no stored recording.
	ErrNotFound = errors.New("recording not found")
	// ErrUnreadableSamples wraps a sample blob that does not decode.
	ErrUnreadableSamples = errors.New("unreadable samples")
)

type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

// Recording is one stored reference signal. Samples holds the
// little-endian int16 encoding produced by pcm.Encode.
type Recording struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Title       string    `gorm:"index:idx_recording_meta,priority:1" json:"title"`
	Artist      string    `gorm:"index:idx_recording_meta,priority:2" json:"artist"`
	Source      string    `json:"source"`
	SampleRate  int       `json:"sample_rate"`
	SampleCount int       `json:"sample_count"`
	Samples     []byte    `gorm:"type:blob" json:"-"`
	CreatedAt   time.Time `gorm:"index:idx_recording_created" json:"created_at"`
}

// Signal decodes the stored samples.
func (r *Recording) Signal() (pcm.Signal, error) {
	sig, err := pcm.Decode(r.Samples, r.SampleRate)
	if err != nil {
		return pcm.Signal{}, fmt.Errorf("recording %s: %w: %w", r.ID, ErrUnreadableSamples, err)
	}
	return sig, nil
}

// SetSignal replaces the stored samples and derived columns.
func (r *Recording) SetSignal(s pcm.Signal) {
	r.Samples = pcm.Encode(s)
	r.SampleRate = s.SampleRate()
	r.SampleCount = s.Len()
}

func (r *Recording) Duration() time.Duration {
	if r.SampleRate <= 0 {
		return 0
	}
	return time.Duration(int64(r.SampleCount) * int64(time.Second) / int64(r.SampleRate))
}

func NewDBClient() (*DBClient, error) {
	dbPath := os.Getenv(EnvDBPath)
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	return NewDBClientWithPath(dbPath)
}

func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := utils.MakeDir(dir); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_pragma=busy_timeout(5000)"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Recording{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *DBClient) check() error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	return nil
}

// PutRecording inserts rec, assigning an ID and creation time when unset.
func (c *DBClient) PutRecording(ctx context.Context, rec *Recording) (string, error) {
	if err := c.check(); err != nil {
		return "", err
	}
	if rec.ID == "" {
		rec.ID = utils.GenerateID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if err := c.DB.WithContext(ctx).Create(rec).Error; err != nil {
		return "", fmt.Errorf("creating recording: %w", err)
	}
	return rec.ID, nil
}

// AllRecordings loads every recording with samples, oldest first. The order
// is stable across calls so it can serve as corpus order.
func (c *DBClient) AllRecordings(ctx context.Context) ([]Recording, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	var rows []Recording
	if err := c.DB.WithContext(ctx).Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("loading recordings: %w", err)
	}
	return rows, nil
}

// ListRecordings is AllRecordings without the sample blobs.
func (c *DBClient) ListRecordings(ctx context.Context) ([]Recording, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	var rows []Recording
	err := c.DB.WithContext(ctx).
		Omit("samples").
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("listing recordings: %w", err)
	}
	return rows, nil
}

func (c *DBClient) GetRecording(ctx context.Context, id string) (*Recording, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	var rec Recording
	err := c.DB.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying recording %s: %w", id, err)
	}
	return &rec, nil
}

func (c *DBClient) DeleteRecording(ctx context.Context, id string) error {
	if err := c.check(); err != nil {
		return err
	}
	return c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&Recording{})
		if res.Error != nil {
			return fmt.Errorf("deleting recording %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil
	})
}

func (c *DBClient) CountRecordings(ctx context.Context) (int64, error) {
	if err := c.check(); err != nil {
		return 0, err
	}
	var n int64
	if err := c.DB.WithContext(ctx).Model(&Recording{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting recordings: %w", err)
	}
	return n, nil
}

// TotalSamples sums sample_count over every stored recording.
func (c *DBClient) TotalSamples(ctx context.Context) (int64, error) {
	if err := c.check(); err != nil {
		return 0, err
	}
	var n int64
	err := c.DB.WithContext(ctx).Model(&Recording{}).
		Select("COALESCE(SUM(sample_count), 0)").Scan(&n).Error
	if err != nil {
		return 0, fmt.Errorf("summing samples: %w", err)
	}
	return n, nil
}
