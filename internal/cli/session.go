package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/h5pruntime/pkg/h5p/column"
	"github.com/randalmurphal/h5pruntime/pkg/h5p/config"
	"github.com/randalmurphal/h5pruntime/pkg/h5p/contenttypes"
	"github.com/randalmurphal/h5pruntime/pkg/h5p/event"
	"github.com/randalmurphal/h5pruntime/pkg/h5p/results"
	"github.com/randalmurphal/h5pruntime/pkg/h5p/runtime"
	"github.com/randalmurphal/h5pruntime/pkg/h5p/storage"
)

// session is everything one command needs to run content.
type session struct {
	settings config.Settings
	logger   *slog.Logger
	store    storage.Store
	bus      *event.Bus
	runtime  *runtime.Runtime
	recorder *results.Recorder
}

func loadSettings(cmd *cobra.Command) (config.Settings, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.Default(), nil
	}
	s, err := config.FromFile(path)
	if err != nil {
		return config.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return s, nil
}

// openSession wires settings, storage, the bus, the recorder and a runtime
// with every built-in content type registered.
func openSession(settings config.Settings, logOut io.Writer) (*session, error) {
	logger := settings.NewLogger(logOut)

	store, err := settings.OpenStore()
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	metrics := settings.MetricsRecorder()
	bus := event.NewBus(event.BusConfig{Metrics: metrics})
	env := settings.Environment(store)

	rec := results.NewRecorder(results.Config{Store: store, Logger: logger, Metrics: metrics})
	if err := rec.Subscribe(bus); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("subscribe recorder: %w", err)
	}

	rt := runtime.New(runtime.Config{
		Bus:           bus,
		Env:           env,
		URL:           settings.URL,
		LibrariesURL:  settings.LibrariesURL,
		SaveFrequency: settings.SaveFrequency,
		Logger:        logger,
		Metrics:       metrics,
		Spans:         settings.SpanManager(),
		OnOpened:      rec.MarkOpened,
	})
	if err := registerAll(rt); err != nil {
		_ = store.Close()
		return nil, err
	}

	return &session{
		settings: settings,
		logger:   logger,
		store:    store,
		bus:      bus,
		runtime:  rt,
		recorder: rec,
	}, nil
}

func registerAll(rt *runtime.Runtime) error {
	if err := contenttypes.Register(rt); err != nil {
		return fmt.Errorf("register content types: %w", err)
	}
	if err := column.Register(rt); err != nil {
		return fmt.Errorf("register column: %w", err)
	}
	return nil
}

func (s *session) Close() error {
	_ = s.recorder.Close()
	return s.store.Close()
}
