package remote

import (
	"time"

	"github.com/tphakala/remoteaudio/internal/audiocore"
	"github.com/tphakala/remoteaudio/internal/logger"
)

// captureStream simulates a sound card producing frames at the nominal rate.
type captureStream struct {
	stream

	readCB     func(audiocore.InStream, int, int)
	overflowCB func(audiocore.InStream)
	errorCB    func(audiocore.InStream, error)

	source func([]byte)
}

type inCallbackView struct {
	*captureStream
}

func (inCallbackView) Destroy() error { return audiocore.ErrReentrantDestroy }

var _ audiocore.InStream = (*captureStream)(nil)

// Start launches the capture goroutine.
func (c *captureStream) Start() error {
	return c.start(c.run)
}

// Destroy stops the goroutine and releases the stream.
func (c *captureStream) Destroy() error {
	return c.destroy(audiocore.AimInput)
}

// BeginRead leases frameCount filled frames. The frames leave the ring when
// the lease begins.
func (c *captureStream) BeginRead(frameCount int) ([]audiocore.ChannelArea, error) {
	c.leaseMu.Lock()
	defer c.leaseMu.Unlock()

	if err := c.beginLease(frameCount); err != nil {
		return nil, err
	}
	if got := c.ring.Read(c.staging[:frameCount*c.bpf]); got < frameCount {
		// short read leaves silence in the tail of the lease
		clear(c.staging[got*c.bpf : frameCount*c.bpf])
	}
	return c.leaseAreas(frameCount), nil
}

// EndRead releases the leased frames.
func (c *captureStream) EndRead() error {
	c.leaseMu.Lock()
	defer c.leaseMu.Unlock()

	_, err := c.endLease()
	return err
}

func (c *captureStream) offer(frames int) bool {
	c.setFramesLeft(frames)
	return c.invoke(func() { c.readCB(inCallbackView{c}, 0, frames) })
}

func (c *captureStream) overflow() bool {
	c.overflows.Add(1)
	c.metrics.RecordOverflow(c.device.ID)
	c.log.Debug("capture overflow", logger.Uint64("overflows", c.overflows.Load()))
	if c.overflowCB == nil {
		return true
	}
	return c.invoke(func() { c.overflowCB(inCallbackView{c}) })
}

func (c *captureStream) run() {
	timer := time.NewTimer(time.Hour)
	timer.Stop()

	clock := NewPeriodClock(time.Now(), c.period)
	var consumed int64
	wasPaused := false
	for {
		_, wait := clock.Next(time.Now())
		c.sleep(timer, wait)
		if c.loadState() == stateAborting {
			return
		}
		now := time.Now()
		clock.Tick(now)

		if c.paused.Load() {
			wasPaused = true
			consumed = 0
			clock.Reset(now)
			continue
		}
		if wasPaused {
			wasPaused = false
			clock.Reset(now)
			continue
		}

		c.periods.Add(1)
		free := int64(c.ring.FreeFrames())
		toKill := framesIn(clock.Elapsed(now), c.cfg.SampleRate) - consumed
		wrote, err := c.ring.AdvanceWrite(int(min(toKill, free)), c.source)
		if err != nil {
			c.log.Warn("capture ring write failed", logger.Error(err))
		}
		consumed += int64(wrote)
		c.frames.Add(uint64(wrote))
		c.metrics.RecordPeriod(c.device.ID, wrote)

		if toKill > free {
			if !c.overflow() {
				return
			}
			consumed = 0
			clock.Reset(now)
		}

		fill := c.ring.FillFrames()
		c.metrics.RecordBufferLatency(c.device.ID, durationOf(fill, c.cfg.SampleRate))
		if fill > 0 {
			if !c.offer(fill) {
				return
			}
		}
	}
}
