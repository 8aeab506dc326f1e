package remote

import (
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/tphakala/remoteaudio/internal/audiocore"
	"github.com/tphakala/remoteaudio/internal/logger"
)

// diagnosticPrefix starts every playback diagnostic datagram.
const diagnosticPrefix = "Time: "

// playbackStream simulates a sound card consuming frames at the nominal rate.
type playbackStream struct {
	stream

	writeCB     func(audiocore.OutStream, int, int)
	underflowCB func(audiocore.OutStream)
	errorCB     func(audiocore.OutStream, error)

	clearRequested atomic.Bool
	tap            func([]byte)

	beacon  Beacon
	limiter *rate.Limiter
	diag    []byte
}

// outCallbackView is handed to client callbacks. Destroy from inside a
// callback would deadlock on the goroutine join, so it is rejected.
type outCallbackView struct {
	*playbackStream
}

func (outCallbackView) Destroy() error { return audiocore.ErrReentrantDestroy }

var _ audiocore.OutStream = (*playbackStream)(nil)

// Start launches the playback goroutine.
func (p *playbackStream) Start() error {
	return p.start(p.run)
}

// Destroy stops the goroutine and releases the stream.
func (p *playbackStream) Destroy() error {
	return p.destroy(audiocore.AimOutput)
}

// ClearBuffer asks the engine to drop buffered frames at the next period.
// Requests made while a write lease is open are applied after EndWrite.
func (p *playbackStream) ClearBuffer() error {
	if p.gone() {
		return audiocore.ErrStreamDestroyed
	}
	p.clearRequested.Store(true)
	return nil
}

// BeginWrite leases frameCount frames of the offered free space.
func (p *playbackStream) BeginWrite(frameCount int) ([]audiocore.ChannelArea, error) {
	p.leaseMu.Lock()
	defer p.leaseMu.Unlock()

	if err := p.beginLease(frameCount); err != nil {
		return nil, err
	}
	return p.leaseAreas(frameCount), nil
}

// EndWrite commits the leased frames to the ring.
func (p *playbackStream) EndWrite() error {
	p.leaseMu.Lock()
	defer p.leaseMu.Unlock()

	n, err := p.endLease()
	if err != nil {
		return err
	}
	return p.ring.Write(p.staging[:n*p.bpf])
}

// applyClear empties the ring unless a write lease is open.
func (p *playbackStream) applyClear() bool {
	p.leaseMu.Lock()
	defer p.leaseMu.Unlock()

	if p.leaseActive || !p.clearRequested.CompareAndSwap(true, false) {
		return false
	}
	p.ring.Clear()
	p.framesLeft = 0
	return true
}

// offer publishes free frames and asks the client to fill them.
func (p *playbackStream) offer(frames int) bool {
	p.setFramesLeft(frames)
	return p.invoke(func() { p.writeCB(outCallbackView{p}, 0, frames) })
}

func (p *playbackStream) underflow() bool {
	p.underflows.Add(1)
	p.metrics.RecordUnderflow(p.device.ID)
	p.log.Debug("playback underflow", logger.Uint64("underflows", p.underflows.Load()))
	if p.underflowCB == nil {
		return true
	}
	return p.invoke(func() { p.underflowCB(outCallbackView{p}) })
}

// sendDiagnostic reports the elapsed phase time to a live peer.
func (p *playbackStream) sendDiagnostic(now time.Time, elapsed time.Duration) {
	if p.beacon == nil || !p.beacon.PeerAlive(now) {
		return
	}
	if p.limiter != nil && !p.limiter.AllowN(now, 1) {
		return
	}
	p.diag = append(p.diag[:0], diagnosticPrefix...)
	p.diag = strconv.AppendFloat(p.diag, elapsed.Seconds(), 'f', 6, 64)
	err := p.beacon.SendDiagnostic(p.diag)
	if err != nil {
		p.log.Warn("diagnostic send failed", logger.Error(err))
	}
	p.metrics.RecordDiagnostic(err)
}

func (p *playbackStream) run() {
	timer := time.NewTimer(time.Hour)
	timer.Stop()

	clock := NewPeriodClock(time.Now(), p.period)
	if !p.offer(p.ring.FreeFrames()) {
		return
	}

	var consumed int64
	wasPaused := false
	for {
		_, wait := clock.Next(time.Now())
		p.sleep(timer, wait)
		if p.loadState() == stateAborting {
			return
		}
		now := time.Now()
		clock.Tick(now)

		if p.clearRequested.Load() && p.applyClear() {
			p.log.Debug("playback buffer cleared")
			consumed = 0
			clock.Reset(now)
			if !p.offer(p.ring.FreeFrames()) {
				return
			}
			continue
		}

		if p.paused.Load() {
			wasPaused = true
			consumed = 0
			clock.Reset(now)
			continue
		}
		if wasPaused {
			// realign the phase on resume
			wasPaused = false
			clock.Reset(now)
			continue
		}

		p.periods.Add(1)
		elapsed := clock.Elapsed(now)
		p.sendDiagnostic(now, elapsed)

		fill := int64(p.ring.FillFrames())
		toKill := framesIn(elapsed, p.cfg.SampleRate) - consumed
		read := p.ring.AdvanceRead(int(min(toKill, fill)), p.tap)
		consumed += int64(read)
		p.frames.Add(uint64(read))
		p.metrics.RecordPeriod(p.device.ID, read)

		if toKill > fill {
			if !p.underflow() {
				return
			}
			consumed = 0
			clock.Reset(now)
		}

		p.metrics.RecordBufferLatency(p.device.ID, durationOf(p.ring.FillFrames(), p.cfg.SampleRate))
		if free := p.ring.FreeFrames(); free > 0 {
			if !p.offer(free) {
				return
			}
		}
	}
}
