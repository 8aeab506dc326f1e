// Package peer implements a heartbeat peer that keeps a running backend's
// diagnostics flowing and prints what it receives.
package peer

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/remoteaudio/internal/conf"
	"github.com/tphakala/remoteaudio/internal/heartbeat"
	"github.com/tphakala/remoteaudio/internal/logger"
)

// Command creates the peer command.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		addr     string
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "peer",
		Short: "Act as the heartbeat peer of a running backend",
		Long: "Peer pings the heartbeat address of a running backend and prints every " +
			"diagnostic datagram sent back, prefixed with the time it arrived.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = settings.Heartbeat.Listen
			}
			return Run(cmd.Context(), addr, interval, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Heartbeat address of the backend, defaults to the heartbeat listen setting")
	cmd.Flags().DurationVar(&interval, "interval", heartbeat.DefaultPingInterval, "Ping interval")

	return cmd
}

// Run pings addr until ctx is done and writes each diagnostic to w.
func Run(ctx context.Context, addr string, interval time.Duration, w io.Writer) error {
	c, err := heartbeat.Dial(addr, interval)
	if err != nil {
		return err
	}

	log := GetLogger()
	log.Info("pinging heartbeat monitor",
		logger.String("addr", addr),
		logger.String("local", c.LocalAddr().String()),
		logger.Duration("interval", interval))

	var received int
	err = c.Run(ctx, func(msg []byte) {
		received++
		fmt.Fprintf(w, "%s %s\n", time.Now().Format("15:04:05.000"), msg)
	})
	log.Info("heartbeat peer stopped", logger.Int("received", received))
	return err
}
