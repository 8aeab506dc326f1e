package heartbeat

import (
	"context"
	"net"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tphakala/remoteaudio/internal/errors"
	"github.com/tphakala/remoteaudio/internal/logger"
)

const (
	// DefaultPingInterval is how often a Client announces itself
	DefaultPingInterval = 500 * time.Millisecond

	// PingMessage is the payload a Client sends
	PingMessage = "PING"

	// clientBufferSize fits one Ethernet payload
	clientBufferSize = 1400
)

// Client is the peer side of the heartbeat channel. It keeps a Monitor's
// peer alive and receives the diagnostic datagrams sent back.
type Client struct {
	conn     net.Conn
	interval time.Duration
	log      logger.Logger
}

// Dial connects a client to a monitor address.
func Dial(addr string, interval time.Duration) (*Client, error) {
	if interval <= 0 {
		interval = DefaultPingInterval
	}
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryNetwork).
			Context("addr", addr).
			Build()
	}
	return &Client{
		conn:     conn,
		interval: interval,
		log:      GetLogger().With(logger.String("remote", addr)),
	}, nil
}

// LocalAddr returns the client socket address.
func (c *Client) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// Run pings until ctx is done, passing each received datagram to onMessage.
// The slice is only valid during the call. Run closes the connection on return.
func (c *Client) Run(ctx context.Context, onMessage func(msg []byte)) error {
	defer func() { _ = c.conn.Close() }()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.ping(ctx) })
	g.Go(func() error { return c.receive(ctx, onMessage) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (c *Client) ping(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		if _, err := c.conn.Write([]byte(PingMessage)); err != nil {
			// the monitor may not be up yet
			c.log.Debug("ping failed", logger.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) receive(ctx context.Context, onMessage func([]byte)) error {
	buf := make([]byte, clientBufferSize)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(readTimeout))
		n, err := c.conn.Read(buf)
		if err != nil {
			var netErr net.Error
			switch {
			case errors.As(err, &netErr) && netErr.Timeout():
			case errors.Is(err, net.ErrClosed):
				return ctx.Err()
			default:
				// connection refused is reported on connected UDP sockets until the monitor binds
				c.log.Debug("receive failed", logger.Error(err))
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(readTimeout):
				}
			}
			continue
		}
		if onMessage != nil {
			onMessage(buf[:n])
		}
	}
}
