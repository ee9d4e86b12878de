// Package config loads host settings for the runtime from YAML or JSON.
//
// Settings play the role of the host integration object: where content
// lives, who the user is, which content is registered and where user data
// is stored.
//
//	site_url: https://example.org
//	save_frequency: 30
//	user:
//	  name: Ada
//	  mail: ada@example.org
//	contents:
//	  cid-1:
//	    url: https://example.org/node/1
//	    title: Week 1
//	storage:
//	  driver: sqlite
//	  path: h5p.db
//	log:
//	  level: debug
//	  format: json
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/randalmurphal/h5pruntime/pkg/h5p/observability"
	"github.com/randalmurphal/h5pruntime/pkg/h5p/storage"
	"github.com/randalmurphal/h5pruntime/pkg/h5p/xapi"
)

// Storage drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ErrInvalidSettings wraps every validation failure.
var ErrInvalidSettings = errors.New("invalid settings")

// Settings are the host settings.
type Settings struct {
	SiteURL      string `yaml:"site_url" json:"site_url"`
	URL          string `yaml:"url" json:"url"`
	LibrariesURL string `yaml:"libraries_url" json:"libraries_url"`

	// SaveFrequency in seconds. Zero disables user state.
	SaveFrequency int `yaml:"save_frequency" json:"save_frequency"`

	User     *xapi.User                  `yaml:"user" json:"user"`
	Contents map[string]xapi.ContentInfo `yaml:"contents" json:"contents"`

	Storage StorageSettings `yaml:"storage" json:"storage"`
	Log     LogSettings     `yaml:"log" json:"log"`

	// Metrics enables OpenTelemetry instruments on the global provider.
	Metrics bool `yaml:"metrics" json:"metrics"`
}

// StorageSettings select the user data store.
type StorageSettings struct {
	Driver string `yaml:"driver" json:"driver"`
	Path   string `yaml:"path" json:"path"`
}

// LogSettings configure the logger.
type LogSettings struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// Default returns settings with every default applied.
func Default() Settings {
	var s Settings
	s.applyDefaults()
	return s
}

func (s *Settings) applyDefaults() {
	if s.SiteURL == "" {
		s.SiteURL = "http://localhost"
	}
	s.SiteURL = strings.TrimRight(s.SiteURL, "/")
	if s.URL == "" {
		s.URL = s.SiteURL + "/h5p"
	}
	if s.Storage.Driver == "" {
		s.Storage.Driver = DriverMemory
	}
	if s.Log.Level == "" {
		s.Log.Level = "info"
	}
	if s.Log.Format == "" {
		s.Log.Format = FormatText
	}
}

// Validate checks the settings.
func (s Settings) Validate() error {
	var errs []error
	if s.SaveFrequency < 0 {
		errs = append(errs, fmt.Errorf("save_frequency must not be negative, got %d", s.SaveFrequency))
	}
	switch s.Storage.Driver {
	case DriverMemory:
	case DriverSQLite:
		if s.Storage.Path == "" {
			errs = append(errs, errors.New("storage.path is required for sqlite"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", s.Storage.Driver))
	}
	if _, err := parseLevel(s.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if s.Log.Format != FormatText && s.Log.Format != FormatJSON {
		errs = append(errs, fmt.Errorf("unknown log format %q", s.Log.Format))
	}
	for key := range s.Contents {
		id, ok := strings.CutPrefix(key, "cid-")
		if _, err := strconv.ParseInt(id, 10, 64); !ok || err != nil {
			errs = append(errs, fmt.Errorf("content key %q is not cid-<id>", key))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, errors.Join(errs...))
	}
	return nil
}

// OpenStore opens the configured user data store.
func (s Settings) OpenStore() (storage.Store, error) {
	switch s.Storage.Driver {
	case DriverSQLite:
		store, err := storage.NewSQLiteStore(s.Storage.Path)
		if err != nil {
			return nil, err
		}
		return store, nil
	case DriverMemory, "":
		return storage.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("%w: unknown storage driver %q", ErrInvalidSettings, s.Storage.Driver)
}

// Environment builds the xAPI environment around store.
func (s Settings) Environment(store storage.Store) *xapi.Environment {
	return &xapi.Environment{
		SiteURL:  s.SiteURL,
		Contents: s.Contents,
		User:     s.User,
		Store:    store,
	}
}

// NewLogger creates a logger writing to w.
func (s Settings) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(s.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if s.Log.Format == FormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// MetricsRecorder returns OpenTelemetry metrics when enabled.
func (s Settings) MetricsRecorder() observability.MetricsRecorder {
	if !s.Metrics {
		return observability.NoopMetrics{}
	}
	return observability.NewMetricsRecorder()
}

// SpanManager returns OpenTelemetry tracing when metrics are enabled.
func (s Settings) SpanManager() observability.SpanManager {
	if !s.Metrics {
		return observability.NoopSpanManager{}
	}
	return observability.NewSpanManager()
}

func parseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", name)
	}
	return level, nil
}
