package record

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/remoteaudio/internal/app"
	"github.com/tphakala/remoteaudio/internal/audiocore"
	"github.com/tphakala/remoteaudio/internal/audiocore/pcm"
	"github.com/tphakala/remoteaudio/internal/audiocore/remote"
	"github.com/tphakala/remoteaudio/internal/conf"
	"github.com/tphakala/remoteaudio/internal/errors"
	"github.com/tphakala/remoteaudio/internal/logger"
)

// Options are the flags of the record command.
type Options struct {
	Out      string        // WAV file to write, empty discards
	Signal   string        // "silence" or "tone"
	Duration time.Duration // 0 records until interrupted
}

// Command creates the record command.
func Command(settings *conf.Settings) *cobra.Command {
	opts := Options{Signal: "silence"}

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record from the virtual input device",
		Long: "Record opens a stream on the virtual input device and drains it every period. " +
			"The device produces silence unless --signal tone is given.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, peak, err := Run(cmd.Context(), settings, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "recorded %d frames in %d periods (%s), %d overflows, peak %.3f\n",
				res.Stats.Frames, res.Stats.Periods, res.Elapsed.Round(time.Millisecond), res.Stats.Overflows, peak)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "Write the recording to this WAV file")
	cmd.Flags().StringVar(&opts.Signal, "signal", opts.Signal, "What the input device produces: silence or tone")
	cmd.Flags().Float64Var(&settings.Audio.Tone, "tone", settings.Audio.Tone, "Tone frequency in Hz for --signal tone")
	cmd.Flags().DurationVar(&opts.Duration, "duration", 0, "Stop after this long, 0 records until interrupted")

	return cmd
}

// Run records according to settings and opts until ctx is done. It returns the
// stream result and the peak level recorded.
func Run(ctx context.Context, settings *conf.Settings, opts Options) (app.Result, float64, error) {
	sc, err := remote.StreamConfigFromSettings(&settings.Audio, "record")
	if err != nil {
		return app.Result{}, 0, err
	}

	var appOpts []app.Option
	switch opts.Signal {
	case "", "silence":
	case "tone":
		appOpts = append(appOpts, app.WithCaptureSource(func(sc audiocore.StreamConfig) pcm.Source {
			return pcm.NewTone(sc, settings.Audio.Tone, 0.5)
		}))
	default:
		return app.Result{}, 0, errors.Newf("unknown signal %q", opts.Signal).
			Category(errors.CategoryValidation).
			Build()
	}

	a, err := app.New(settings, appOpts...)
	if err != nil {
		return app.Result{}, 0, err
	}

	var (
		counter *pcm.Counter
		wav     *pcm.WAVSink
		res     app.Result
	)
	err = a.Run(ctx, func(ctx context.Context) error {
		var err error
		res, err = a.Record(ctx, func(sc audiocore.StreamConfig) (pcm.Sink, error) {
			counter = pcm.Discard(sc)
			if opts.Out == "" {
				return counter, nil
			}
			w, err := pcm.CreateWAV(opts.Out, sc)
			if err != nil {
				return nil, err
			}
			wav = w
			return pcm.Tee(counter, w), nil
		}, sc, opts.Duration)
		return err
	})

	if wav != nil {
		if closeErr := wav.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		} else {
			GetLogger().Info("recording written", logger.String("path", opts.Out), logger.Int("frames", wav.Frames()))
		}
	}

	var peak float64
	if counter != nil {
		peak = counter.Peak()
	}
	return res, peak, err
}
