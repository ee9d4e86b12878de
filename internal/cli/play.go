package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/h5pruntime/pkg/h5p/event"
	"github.com/randalmurphal/h5pruntime/pkg/h5p/runtime"
	"github.com/randalmurphal/h5pruntime/pkg/h5p/storage"
	"github.com/randalmurphal/h5pruntime/pkg/h5p/xapi"
)

type playOptions struct {
	contentPath string
	contentID   int64
	answersPath string
	render      bool
}

func newPlayCommand() *cobra.Command {
	opts := &playOptions{}
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Instantiate content, apply answers and print xAPI statements",
		Long: `Instantiate content from a JSON descriptor such as

  {"library": "H5P.Column 1.16", "params": {"content": [...]}}

then apply the answers file, if any, print each xAPI statement that reaches
the external bus as a JSON line, save the user state and print the result.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPlay(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.contentPath, "content", "", "content descriptor (JSON)")
	cmd.Flags().Int64Var(&opts.contentID, "content-id", 1, "content id")
	cmd.Flags().StringVar(&opts.answersPath, "answers", "", "answers file (YAML)")
	cmd.Flags().BoolVar(&opts.render, "render", false, "print the rendered content tree")
	_ = cmd.MarkFlagRequired("content")
	return cmd
}

func runPlay(cmd *cobra.Command, opts *playOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	raw, err := os.ReadFile(opts.contentPath)
	if err != nil {
		return fmt.Errorf("read content: %w", err)
	}
	desc, err := runtime.ParseDescriptor(raw)
	if err != nil {
		return err
	}
	var script Script
	if opts.answersPath != "" {
		if script, err = loadScript(opts.answersPath); err != nil {
			return err
		}
	}

	s, err := openSession(settings, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.Close()

	enc := json.NewEncoder(out)
	if _, err := s.bus.On(xapi.EventType, func(evt *event.Event) {
		if x, ok := xapi.FromEvent(evt); ok {
			if err := enc.Encode(x.Statement()); err != nil {
				s.logger.Warn("statement not written", "verb", x.Verb(), "error", err)
			}
		}
	}); err != nil {
		return err
	}

	root := runtime.NewElement("h5p-content")
	inst, err := s.runtime.NewRunnable(ctx, desc, opts.contentID, runtime.AttachTo(root), runtime.Standalone())
	if err != nil {
		return err
	}

	if err := script.apply(inst); err != nil {
		return err
	}

	if settings.SaveFrequency > 0 {
		if err := s.runtime.SaveState(ctx, inst); err != nil {
			s.logger.Warn("state not saved", "error", err)
		}
	}

	if opts.render {
		if err := root.Render(out); err != nil {
			return err
		}
	}

	res, err := s.recorder.Result(opts.contentID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		fmt.Fprintf(out, "result: content %d not finished\n", opts.contentID)
	case err != nil:
		return err
	default:
		fmt.Fprintf(out, "result: content %d scored %g/%g in %ds\n", res.ContentID, res.Score, res.MaxScore, res.Time)
	}
	return nil
}
