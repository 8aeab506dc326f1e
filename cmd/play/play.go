package play

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

// Options are the flags of the play command.
type Options struct {
	File      string        // WAV file to loop instead of the tone
	Amplitude float64       // tone amplitude, 0..1
	Duration  time.Duration // 0 plays until interrupted
	Tap       string        // WAV file receiving what the engine consumed
}

// Command creates the play command.
func Command(settings *conf.Settings) *cobra.Command {
	opts := Options{Amplitude: 0.5}

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a test tone or a WAV file into the virtual output device",
		Long: "Play opens a stream on the virtual output device and keeps it fed until interrupted. " +
			"The frames the engine consumes can be written to a WAV file with --tap.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := Run(cmd.Context(), settings, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "played %d frames in %d periods (%s), %d underflows\n",
				res.Stats.Frames, res.Stats.Periods, res.Elapsed.Round(time.Millisecond), res.Stats.Underflows)
			return nil
		},
	}

	cmd.Flags().Float64Var(&settings.Audio.Tone, "tone", settings.Audio.Tone, "Test tone frequency in Hz")
	cmd.Flags().Float64Var(&opts.Amplitude, "amplitude", opts.Amplitude, "Test tone amplitude between 0 and 1")
	cmd.Flags().StringVar(&opts.File, "file", "", "Loop this WAV file instead of the test tone")
	cmd.Flags().DurationVar(&opts.Duration, "duration", 0, "Stop after this long, 0 plays until interrupted")
	cmd.Flags().StringVar(&opts.Tap, "tap", "", "Write the frames consumed by the engine to this WAV file")

	return cmd
}

// Run plays according to settings and opts until ctx is done.
func Run(ctx context.Context, settings *conf.Settings, opts Options) (app.Result, error) {
	sc, err := remote.StreamConfigFromSettings(&settings.Audio, "play")
	if err != nil {
		return app.Result{}, err
	}

	log := GetLogger()
	var tap *pcm.WAVSink
	var appOpts []app.Option
	if opts.Tap != "" {
		appOpts = append(appOpts, app.WithPlaybackTap(func(sc audiocore.StreamConfig) pcm.Sink {
			sink, err := pcm.CreateWAV(opts.Tap, sc)
			if err != nil {
				log.Warn("playback tap disabled", logger.String("path", opts.Tap), logger.Error(err))
				return nil
			}
			tap = sink
			return sink
		}))
	}

	a, err := app.New(settings, appOpts...)
	if err != nil {
		return app.Result{}, err
	}

	var res app.Result
	err = a.Run(ctx, func(ctx context.Context) error {
		var err error
		res, err = a.Play(ctx, sourceFor(settings, opts), sc, opts.Duration)
		return err
	})

	if tap != nil {
		if closeErr := tap.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		} else {
			log.Info("playback tap written", logger.String("path", opts.Tap), logger.Int("frames", tap.Frames()))
		}
	}
	return res, err
}

func sourceFor(settings *conf.Settings, opts Options) app.SourceFunc {
	return func(sc audiocore.StreamConfig) (pcm.Source, error) {
		if opts.File != "" {
			return pcm.OpenWAV(opts.File, sc)
		}
		return pcm.NewTone(sc, settings.Audio.Tone, opts.Amplitude), nil
	}
}
