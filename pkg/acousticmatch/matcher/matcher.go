// Package matcher ranks a corpus of reference signals against a query by
// raw time-domain correlation.
package matcher

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/himanishpuri/AcousticMatch/pkg/acousticmatch/correlation"
	"github.com/himanishpuri/AcousticMatch/pkg/acousticmatch/pcm"
)

// DefaultFactor is the decimation applied to query and candidates when the
// caller does not choose one.
const DefaultFactor = 100

// ErrIncomparable marks a candidate whose sample rate differs from the
// query. Raw correlation magnitudes at different rates cannot be ranked.
var ErrIncomparable = errors.New("incomparable sample rate")

// Entry is one corpus member. A non-nil Err marks an entry whose samples
// could not be loaded; it is recorded as that candidate's failure unchanged.
type Entry struct {
	ID     string
	Signal pcm.Signal
	Err    error
}

// CandidateScore is the outcome for one corpus entry. Err is set when the
// candidate could not be scored; such a candidate never wins.
type CandidateScore struct {
	ID    string
	Score float64
	Err   error
}

func (c CandidateScore) Failed() bool { return c.Err != nil }

// Result is the outcome of a corpus scan.
type Result struct {
	BestID    string
	Found     bool
	BestScore float64
	// Candidates holds every scanned entry in corpus order.
	Candidates []CandidateScore
	// Complete is false when the scan was cancelled before every entry ran.
	Complete bool
	Factor   int
}

type options struct {
	factor   int
	workers  int
	observer func(CandidateScore)
}

type Option func(*options)

// WithFactor sets the downsample factor shared by query and candidates.
func WithFactor(factor int) Option {
	return func(o *options) {
		o.factor = factor
	}
}

// WithWorkers bounds how many candidates are scored concurrently.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithObserver registers a hook called once per scanned candidate, in
// corpus order, after scoring has finished.
func WithObserver(fn func(CandidateScore)) Option {
	return func(o *options) {
		o.observer = fn
	}
}

// FindBestMatch scores every entry against query and returns the best one.
//
// A failing candidate is recorded and skipped. Ties keep the first entry in
// corpus order whatever order the workers finish in. If ctx is cancelled the
// partial result is returned with Complete == false alongside ctx.Err().
func FindBestMatch(ctx context.Context, query pcm.Signal, corpus []Entry, opts ...Option) (*Result, error) {
	o := options{factor: DefaultFactor, workers: runtime.NumCPU()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers < 1 {
		o.workers = 1
	}

	if o.factor < 1 {
		return nil, fmt.Errorf("%w: downsample factor must be >= 1, got %d", pcm.ErrInvalidParameter, o.factor)
	}
	if query.IsEmpty() {
		return nil, fmt.Errorf("query: %w", pcm.ErrEmptySignal)
	}

	q, err := pcm.Downsample(query, o.factor)
	if err != nil {
		return nil, err
	}

	slots := make([]slot, len(corpus))

	g := new(errgroup.Group)
	g.SetLimit(o.workers)
	for i := range corpus {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			slots[i] = slot{done: true, score: scoreCandidate(q, query.SampleRate(), corpus[i], o.factor)}
			return nil
		})
	}
	_ = g.Wait()

	res := reduce(slots, o.observer)
	res.Factor = o.factor
	if !res.Complete {
		return res, ctx.Err()
	}
	return res, nil
}

type slot struct {
	done  bool
	score CandidateScore
}

func scoreCandidate(q pcm.Signal, queryRate int, e Entry, factor int) CandidateScore {
	cs := CandidateScore{ID: e.ID}

	if e.Err != nil {
		cs.Err = fmt.Errorf("candidate %s: %w", e.ID, e.Err)
		return cs
	}
	if e.Signal.IsEmpty() {
		cs.Err = fmt.Errorf("candidate %s: %w", e.ID, pcm.ErrEmptySignal)
		return cs
	}
	if e.Signal.SampleRate() != queryRate {
		cs.Err = fmt.Errorf("candidate %s at %d Hz vs query at %d Hz: %w",
			e.ID, e.Signal.SampleRate(), queryRate, ErrIncomparable)
		return cs
	}

	c, err := pcm.Downsample(e.Signal, factor)
	if err != nil {
		cs.Err = fmt.Errorf("candidate %s: %w", e.ID, err)
		return cs
	}
	score, err := correlation.RawScore(q, c)
	if err != nil {
		cs.Err = fmt.Errorf("candidate %s: %w", e.ID, err)
		return cs
	}
	cs.Score = score
	return cs
}

// reduce is the single writer over the running maximum. It walks slots in
// corpus order so strict > keeps the first of equal scores.
func reduce(slots []slot, observer func(CandidateScore)) *Result {
	res := &Result{
		BestScore:  math.Inf(-1),
		Candidates: make([]CandidateScore, 0, len(slots)),
		Complete:   true,
	}

	for _, s := range slots {
		if !s.done {
			res.Complete = false
			continue
		}
		res.Candidates = append(res.Candidates, s.score)
		if observer != nil {
			observer(s.score)
		}
		if s.score.Failed() {
			continue
		}
		if !res.Found || s.score.Score > res.BestScore {
			res.Found = true
			res.BestID = s.score.ID
			res.BestScore = s.score.Score
		}
	}
	return res
}
