// Package results records finished content on the external bus.
//
// A Recorder listens for top-level "completed" and "answered" statements
// and stores one Result per content id, the way a host would post user
// statistics when content is finished.
package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/randalmurphal/h5pruntime/pkg/h5p/event"
	"github.com/randalmurphal/h5pruntime/pkg/h5p/observability"
	"github.com/randalmurphal/h5pruntime/pkg/h5p/storage"
	"github.com/randalmurphal/h5pruntime/pkg/h5p/xapi"
)

// ErrNotSubscribed indicates Close was called on a recorder that is not
// listening.
var ErrNotSubscribed = errors.New("recorder is not subscribed")

// Result is one finished piece of content.
type Result struct {
	ContentID int64     `json:"contentId"`
	Score     float64   `json:"score"`
	MaxScore  float64   `json:"maxScore"`
	Opened    time.Time `json:"opened"`
	Finished  time.Time `json:"finished"`
	// Time is the number of seconds between Opened and Finished.
	Time int64 `json:"time"`
}

// Config configures a Recorder.
type Config struct {
	// Store holds results in storage.ScopeResults. Required.
	Store storage.Store

	Logger  *slog.Logger
	Metrics observability.MetricsRecorder

	// Now defaults to time.Now.
	Now func() time.Time
}

// Recorder stores results of finished content.
type Recorder struct {
	store   storage.Store
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	now     func() time.Time

	mu       sync.Mutex
	opened   map[int64]time.Time
	bus      *event.Bus
	listener event.ListenerID
}

// NewRecorder creates a recorder. It does nothing until Subscribe is called.
func NewRecorder(cfg Config) *Recorder {
	r := &Recorder{
		store:   cfg.Store,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		now:     cfg.Now,
		opened:  make(map[int64]time.Time),
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.metrics == nil {
		r.metrics = observability.NoopMetrics{}
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Subscribe starts listening for xAPI statements on bus.
func (r *Recorder) Subscribe(bus *event.Bus) error {
	id, err := bus.On(xapi.EventType, r.Handle)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.bus, r.listener = bus, id
	r.mu.Unlock()
	return nil
}

// Close stops listening.
func (r *Recorder) Close() error {
	r.mu.Lock()
	bus, id := r.bus, r.listener
	r.bus = nil
	r.mu.Unlock()
	if bus == nil {
		return ErrNotSubscribed
	}
	bus.Off(xapi.EventType, id)
	return nil
}

// MarkOpened records when content was opened. Its signature matches
// runtime.Config.OnOpened.
func (r *Recorder) MarkOpened(contentID int64, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opened[contentID] = at
}

// Handle stores a result for top-level completed or answered statements
// that carry a score.
func (r *Recorder) Handle(evt *event.Event) {
	x, ok := xapi.FromEvent(evt)
	if !ok {
		return
	}
	if verb := x.Verb(); verb != xapi.VerbCompleted && verb != xapi.VerbAnswered {
		return
	}
	if _, hasParent := x.Lookup("context", "contextActivities", "parent"); hasParent {
		return
	}
	contentID, ok := x.ContentID()
	if !ok {
		return
	}
	score, ok := x.Score()
	if !ok {
		return
	}
	maxScore, _ := x.MaxScore()

	if err := r.record(contentID, score, maxScore); err != nil {
		observability.LogStateSaveError(r.logger, contentID, "", "save result", err)
		return
	}
	observability.LogCompletion(r.logger, contentID, score, maxScore)
	if maxScore > 0 {
		r.metrics.RecordCompletion(context.Background(), score/maxScore)
	}
}

func (r *Recorder) record(contentID int64, score, maxScore float64) error {
	finished := r.now()

	r.mu.Lock()
	opened, ok := r.opened[contentID]
	r.mu.Unlock()
	if !ok {
		opened = finished
	}

	res := Result{
		ContentID: contentID,
		Score:     score,
		MaxScore:  maxScore,
		Opened:    opened,
		Finished:  finished,
		Time:      int64(finished.Sub(opened).Round(time.Second) / time.Second),
	}
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return r.store.Save(storage.ScopeResults, strconv.FormatInt(contentID, 10), data)
}

// Result returns the stored result for contentID.
// It returns storage.ErrNotFound when the content has not been finished.
func (r *Recorder) Result(contentID int64) (Result, error) {
	data, err := r.store.Load(storage.ScopeResults, strconv.FormatInt(contentID, 10))
	if err != nil {
		return Result{}, err
	}
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return Result{}, fmt.Errorf("decode result %d: %w", contentID, err)
	}
	return res, nil
}

// Results returns every stored result ordered by content id.
func (r *Recorder) Results() ([]Result, error) {
	infos, err := r.store.List(storage.ScopeResults)
	if err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(infos))
	for _, info := range infos {
		id, err := strconv.ParseInt(info.Key, 10, 64)
		if err != nil {
			continue
		}
		res, err := r.Result(id)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	slices.SortFunc(out, func(a, b Result) int {
		switch {
		case a.ContentID < b.ContentID:
			return -1
		case a.ContentID > b.ContentID:
			return 1
		}
		return 0
	})
	return out, nil
}
