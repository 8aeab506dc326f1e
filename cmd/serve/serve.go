// Package serve implements the long running mode: the backend with its status
// server, heartbeat monitor and optional background streams.
package serve

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tphakala/remoteaudio/internal/app"
	"github.com/tphakala/remoteaudio/internal/audiocore"
	"github.com/tphakala/remoteaudio/internal/audiocore/pcm"
	"github.com/tphakala/remoteaudio/internal/audiocore/remote"
	"github.com/tphakala/remoteaudio/internal/buildinfo"
	"github.com/tphakala/remoteaudio/internal/conf"
	"github.com/tphakala/remoteaudio/internal/logger"
)

// Options are the flags of the serve command.
type Options struct {
	Play     bool          // keep a tone playing on the output device
	Record   bool          // keep the input device drained
	Duration time.Duration // 0 serves until interrupted
}

// Command creates the serve command.
func Command(settings *conf.Settings, info *buildinfo.Context) *cobra.Command {
	var opts Options

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the backend with its status server",
		Long: "Serve keeps the backend running with the HTTP status server enabled. " +
			"Streams can be kept open in the background with --play and --record.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(cmd.Context(), settings, info, opts)
		},
	}

	cmd.Flags().StringVar(&settings.WebServer.Listen, "listen", settings.WebServer.Listen, "Status server listen address")
	cmd.Flags().BoolVar(&opts.Play, "play", false, "Keep a test tone playing on the output device")
	cmd.Flags().BoolVar(&opts.Record, "record", false, "Keep a stream recording from the input device")
	cmd.Flags().DurationVar(&opts.Duration, "duration", 0, "Stop after this long, 0 serves until interrupted")

	return cmd
}

// Run serves until ctx is done or opts.Duration elapsed.
func Run(ctx context.Context, settings *conf.Settings, info *buildinfo.Context, opts Options) error {
	sc, err := remote.StreamConfigFromSettings(&settings.Audio, "serve")
	if err != nil {
		return err
	}

	a, err := app.New(settings, app.WithStatusServer())
	if err != nil {
		return err
	}

	log := GetLogger()
	log.Info("serving",
		logger.String("version", info.String()),
		logger.String("listen", settings.WebServer.Listen),
		logger.Bool("heartbeat", a.Backend.Heartbeat() != nil),
		logger.Bool("play", opts.Play),
		logger.Bool("record", opts.Record))

	return a.Run(ctx, func(ctx context.Context) error {
		if opts.Duration > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, opts.Duration)
			defer cancel()
		}

		g, ctx := errgroup.WithContext(ctx)
		if opts.Play {
			g.Go(func() error {
				res, err := a.Play(ctx, func(sc audiocore.StreamConfig) (pcm.Source, error) {
					return pcm.NewTone(sc, settings.Audio.Tone, 0.5), nil
				}, sc, 0)
				log.Info("background playback stopped", logger.String("result", summary(res)))
				return err
			})
		}
		if opts.Record {
			g.Go(func() error {
				res, err := a.Record(ctx, func(sc audiocore.StreamConfig) (pcm.Sink, error) {
					return pcm.Discard(sc), nil
				}, sc, 0)
				log.Info("background recording stopped", logger.String("result", summary(res)))
				return err
			})
		}
		g.Go(func() error {
			<-ctx.Done()
			return nil
		})
		return g.Wait()
	})
}

func summary(res app.Result) string {
	return fmt.Sprintf("%d frames in %d periods, %d underflows, %d overflows",
		res.Stats.Frames, res.Stats.Periods, res.Stats.Underflows, res.Stats.Overflows)
}
