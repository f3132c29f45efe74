// Package transmitter schedules SV frame transmission at a fixed sample
// rate, optionally running a concurrent GOOSE listener that can cut a run
// short.
package transmitter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gridstream/sv92/comtrade"
	"github.com/gridstream/sv92/config"
	"github.com/gridstream/sv92/goose"
	"github.com/gridstream/sv92/socket"
	"github.com/gridstream/sv92/sv"
	"github.com/gridstream/sv92/timer"
)

// ProgressFunc is invoked every progressInterval successful sends.
type ProgressFunc func(packetsSent uint64, elapsed time.Duration)

// Transmitter owns one run's state: stream identity, frame source, sockets,
// and statistics. It is not safe for concurrent Run calls, but Stats/Stop
// may be called from another goroutine while Run is in flight.
type Transmitter struct {
	RunID uuid.UUID

	state  sv.StreamState
	source FrameSource

	txSocket socket.Socket
	rxSocket socket.Socket // nil when GOOSE monitoring is disabled
	listener *goose.Listener

	progressInterval uint32
	onProgress       ProgressFunc
	recorder         *FrameRecorder
	AlignToWallClock bool

	stats  Stats
	mu     sync.Mutex
	cancel context.CancelFunc
	err    string
}

// ConfigurePhasor sets up a synthetic phasor-injection run.
func (t *Transmitter) ConfigurePhasor(cfg config.PhasorConfig, txSocket, rxSocket socket.Socket) error {
	if err := t.configureNetwork(cfg.Network, cfg.Goose, txSocket, rxSocket); err != nil {
		return err
	}
	t.source = NewPhasorSource(cfg.Phasors, cfg.NominalFreqHz)
	t.progressInterval = cfg.ProgressInterval
	return nil
}

// ConfigureComtradeReplay sets up a COMTRADE-sourced replay run: loads and
// resamples the file, then wires the resulting matrix as the frame source.
func (t *Transmitter) ConfigureComtradeReplay(cfg config.ComtradeReplayConfig, txSocket, rxSocket socket.Socket) error {
	if err := t.configureNetwork(cfg.Network, cfg.Goose, txSocket, rxSocket); err != nil {
		return err
	}
	if err := cfg.ChannelMapping.Validate(); err != nil {
		t.err = err.Error()
		return err
	}

	var parser comtrade.Parser
	if err := parser.Load(cfg.CfgFilePath, cfg.DatFilePath); err != nil {
		t.err = err.Error()
		return fmt.Errorf("transmitter: load comtrade file: %w", err)
	}

	pconfig := parser.Config()
	for _, entry := range cfg.ChannelMapping {
		if _, ok := pconfig.AnalogChannelByName(entry.ComtradeName); !ok {
			err := fmt.Errorf("transmitter: channel mapping references unknown comtrade channel %q", entry.ComtradeName)
			t.err = err.Error()
			return err
		}
	}

	matrix := make([][]float64, len(pconfig.AnalogChannels))
	for i := range matrix {
		matrix[i] = make([]float64, len(parser.Samples()))
	}
	for s, sample := range parser.Samples() {
		for ch, v := range sample.Analog {
			matrix[ch][s] = v
		}
	}

	inputRate := pconfig.SampleRateAt(0)
	resampled := comtrade.Resample(matrix, inputRate, float64(cfg.Network.SampleRateHz))

	t.source = NewComtradeSource(pconfig, resampled, cfg.ChannelMapping, cfg.LoopPlayback)
	t.progressInterval = cfg.ProgressInterval
	return nil
}

func (t *Transmitter) configureNetwork(net config.NetworkConfig, gooseCfg config.GooseStopConfig, txSocket, rxSocket socket.Socket) error {
	t.RunID = uuid.New()
	t.txSocket = txSocket
	t.rxSocket = rxSocket
	t.AlignToWallClock = true

	if err := txSocket.Open(net.Interface); err != nil {
		t.err = err.Error()
		return fmt.Errorf("transmitter: open tx socket: %w", err)
	}

	srcMAC := net.SrcMAC
	if srcMAC == "" || srcMAC == "00:00:00:00:00:00" {
		srcMAC = txSocket.MACAddress()
	}

	t.state = sv.StreamState{
		DstMAC: net.DstMAC, SrcMAC: srcMAC,
		VLANID: net.VLANID, VLANPriority: net.VLANPriority,
		AppID: net.AppID, SvID: net.SvID, SmpRate: net.SampleRateHz,
		ConfRev: 1, SmpSynch: 1,
	}
	if err := t.state.Validate(); err != nil {
		t.err = err.Error()
		return fmt.Errorf("transmitter: %w", err)
	}

	if gooseCfg.Enabled {
		if rxSocket == nil {
			err := fmt.Errorf("transmitter: goose monitoring enabled without an rx socket")
			t.err = err.Error()
			return err
		}
		if err := rxSocket.Open(net.Interface); err != nil {
			t.err = err.Error()
			return fmt.Errorf("transmitter: open rx socket: %w", err)
		}
		t.listener = goose.New(rxSocket, goose.StopCondition{GoCBRefContains: gooseCfg.GoCBRefContains})
	}

	return nil
}

// SetProgressCallback registers a callback invoked every ProgressInterval
// successful sends.
func (t *Transmitter) SetProgressCallback(fn ProgressFunc) { t.onProgress = fn }

// SetRecorder attaches an optional gzip frame recorder for diagnostics.
func (t *Transmitter) SetRecorder(r *FrameRecorder) { t.recorder = r }

// Stats returns a snapshot-safe view of the run's counters.
func (t *Transmitter) Stats() *Stats { return &t.stats }

// LastError returns the last configuration/runtime error message.
func (t *Transmitter) LastError() string { return t.err }

// Stop requests cancellation of an in-flight Run. Safe to call concurrently,
// including from a signal handler goroutine.
func (t *Transmitter) Stop() {
	t.mu.Lock()
	cancel := t.cancel
	t.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Run blocks until ctx is cancelled, Stop is called, the GOOSE stop
// condition fires, or (non-looping COMTRADE replay only) the source is
// exhausted. It always closes the sockets it opened before returning.
func (t *Transmitter) Run(ctx context.Context) error {
	defer t.txSocket.Close()
	if t.rxSocket != nil {
		defer t.rxSocket.Close()
	}
	if t.recorder != nil {
		defer t.recorder.Close()
	}

	runCtx, cancel := context.WithCancel(ctx)
	t.mu.Lock()
	t.cancel = cancel
	t.mu.Unlock()
	defer cancel()

	var wg sync.WaitGroup
	if t.listener != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			t.listener.Run(runCtx, cancel)
		}()
	}

	t.stats.StartTime = time.Now()
	log.Info().Str("run_id", t.RunID.String()).Str("sv_id", t.state.SvID).
		Uint16("sample_rate", t.state.SmpRate).Msg("transmission starting")

	period := time.Second / time.Duration(t.state.SmpRate)

	var pt timer.PeriodicTimer
	if t.AlignToWallClock {
		now := time.Now()
		nextSecond := now.Truncate(time.Second).Add(time.Second)
		select {
		case <-runCtx.Done():
			t.finish(runCtx)
			wg.Wait()
			return nil
		case <-time.After(time.Until(nextSecond)):
		}
		pt.StartAt(nextSecond.Add(period))
	} else {
		pt.StartPeriod(period)
	}

	failureStreak := 0
loop:
	for {
		select {
		case <-runCtx.Done():
			break loop
		default:
		}

		samples, exhausted := t.source.Next(&t.state)
		if exhausted {
			break loop
		}

		now := time.Now()
		var qualities [sv.NumChannels]uint32
		frame, err := sv.BuildFrame(&t.state, samples, qualities)
		if err != nil {
			t.err = err.Error()
			break loop
		}

		if _, err := t.txSocket.Send(frame); err != nil {
			t.stats.PacketsFailed.Add(1)
			failureStreak++
			if failureStreak%100 == 1 {
				log.Warn().Err(err).Uint64("failed", t.stats.PacketsFailed.Load()).Msg("send failed")
			}
		} else {
			failureStreak = 0
			sent := t.stats.PacketsSent.Add(1)
			if t.recorder != nil {
				_ = t.recorder.Record(now, frame)
			}
			if t.onProgress != nil && t.progressInterval > 0 && sent%uint64(t.progressInterval) == 0 {
				t.onProgress(sent, time.Since(t.stats.StartTime))
			}
		}

		t.state.Advance()
		pt.WaitPeriod(period)
	}

	t.finish(runCtx)
	cancel()
	wg.Wait()
	return nil
}

func (t *Transmitter) finish(runCtx context.Context) {
	t.stats.EndTime = time.Now()
	if t.listener != nil {
		if result := t.listener.LastResult(); result.Stopped {
			t.stats.setGooseStop(result.Reason)
		}
	}
	log.Info().Str("run_id", t.RunID.String()).
		Uint64("sent", t.stats.PacketsSent.Load()).
		Uint64("failed", t.stats.PacketsFailed.Load()).
		Float64("avg_hz", t.stats.AverageRate()).
		Msg("transmission finished")
}
