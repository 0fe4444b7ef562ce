// Package audio owns the audio input device: device selection, reading,
// resampling to the capture rate and PCM conversion.
package audio

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
)

// Source refs understood by SelectDevice besides a device-name fragment.
const (
	RefDefault = "default"
	RefMic     = "mic"
	RefSystem  = "system"
)

// Source opens capture streams for a source ref.
type Source interface {
	Open(ctx context.Context, ref string) (Stream, error)
}

// Stream delivers frames until closed. Frames is closed once the stream has
// released its device.
type Stream interface {
	Frames() <-chan Frame
	Device() string
	Close() error
}

// DeviceConfig configures portaudio capture.
type DeviceConfig struct {
	SampleRate      int
	FramesPerBuffer int
	Queue           int
	Excluded        []string
}

// DeviceSource captures from portaudio input devices.
type DeviceSource struct {
	cfg      DeviceConfig
	initOnce sync.Once
	initErr  error
}

// NewDeviceSource creates a portaudio-backed source. The library is
// initialized on the first Open.
func NewDeviceSource(cfg DeviceConfig) *DeviceSource {
	if cfg.FramesPerBuffer <= 0 {
		cfg.FramesPerBuffer = 1024
	}
	if cfg.Queue <= 0 {
		cfg.Queue = 64
	}
	return &DeviceSource{cfg: cfg}
}

// Open selects the device for ref and starts reading from it.
func (s *DeviceSource) Open(ctx context.Context, ref string) (Stream, error) {
	s.initOnce.Do(func() { s.initErr = portaudio.Initialize() })
	if s.initErr != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", s.initErr)
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	dev, err := SelectDevice(devices, ref, s.cfg.Excluded)
	if err != nil {
		return nil, err
	}

	buf := make([]float32, s.cfg.FramesPerBuffer)
	stream, rs, err := s.openStream(dev, buf)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", dev.Name, err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		if rs != nil {
			_ = rs.Close()
		}
		return nil, fmt.Errorf("start %q: %w", dev.Name, err)
	}

	devCtx, cancel := context.WithCancel(ctx)
	ds := &deviceStream{
		stream: stream,
		rs:     rs,
		device: dev.Name,
		frames: make(chan Frame, s.cfg.Queue),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go ds.run(devCtx, buf)

	slog.Info("started audio capture", "device", dev.Name, "ref", ref, "resampled", rs != nil)
	return ds, nil
}

// openStream opens dev at the capture rate, falling back to the device's
// native rate plus a resampler when the device refuses.
func (s *DeviceSource) openStream(dev *portaudio.DeviceInfo, buf []float32) (*portaudio.Stream, *resampler, error) {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: 1,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      float64(s.cfg.SampleRate),
		FramesPerBuffer: len(buf),
	}

	stream, err := portaudio.OpenStream(params, buf)
	if err == nil {
		return stream, nil, nil
	}
	if dev.DefaultSampleRate <= 0 || dev.DefaultSampleRate == float64(s.cfg.SampleRate) {
		return nil, nil, err
	}

	slog.Debug("device refused capture rate, resampling", "device", dev.Name,
		"native", dev.DefaultSampleRate, "target", s.cfg.SampleRate, "error", err)
	params.SampleRate = dev.DefaultSampleRate
	stream, err = portaudio.OpenStream(params, buf)
	if err != nil {
		return nil, nil, err
	}
	rs, err := newResampler(dev.DefaultSampleRate, float64(s.cfg.SampleRate))
	if err != nil {
		_ = stream.Close()
		return nil, nil, err
	}
	return stream, rs, nil
}

// Close releases the portaudio library.
func (s *DeviceSource) Close() error {
	if s.initErr != nil {
		return nil
	}
	return portaudio.Terminate()
}

type deviceStream struct {
	stream    *portaudio.Stream
	rs        *resampler
	device    string
	frames    chan Frame
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

func (d *deviceStream) Frames() <-chan Frame { return d.frames }
func (d *deviceStream) Device() string       { return d.device }

// Close stops reading and waits for the device to be released. Safe to call
// more than once.
func (d *deviceStream) Close() error {
	d.closeOnce.Do(func() {
		d.cancel()
		<-d.done
	})
	return nil
}

func (d *deviceStream) run(ctx context.Context, buf []float32) {
	defer close(d.done)
	defer close(d.frames)
	defer d.release()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := d.stream.Read(); err != nil {
			if err == portaudio.InputOverflowed {
				continue
			}
			slog.Debug("audio read error", "device", d.device, "error", err)
			return
		}

		data := append([]float32(nil), buf...)
		if d.rs != nil {
			var err error
			if data, err = d.rs.Process(data); err != nil {
				slog.Warn("resample failed", "device", d.device, "error", err)
				return
			}
			if len(data) == 0 {
				continue
			}
		}

		select {
		case d.frames <- Frame{Data: data, Device: d.device, Timestamp: time.Now().UnixNano()}:
		default:
			slog.Debug("audio queue full, dropping frame", "device", d.device)
		}
	}
}

func (d *deviceStream) release() {
	_ = d.stream.Stop()
	_ = d.stream.Close()
	if d.rs != nil {
		_ = d.rs.Close()
	}
	slog.Info("released audio device", "device", d.device)
}

// SelectDevice picks the input device for ref: the best microphone for
// "default"/"mic"/"", the first loopback device for "system", otherwise the
// first device whose name contains ref.
func SelectDevice(devices []*portaudio.DeviceInfo, ref string, excluded []string) (*portaudio.DeviceInfo, error) {
	var inputs []*portaudio.DeviceInfo
	for _, dev := range devices {
		if dev == nil || dev.MaxInputChannels < 1 || isExcluded(dev.Name, excluded) {
			continue
		}
		inputs = append(inputs, dev)
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no input devices available")
	}

	switch strings.ToLower(ref) {
	case "", RefDefault, RefMic:
		var best *portaudio.DeviceInfo
		for _, dev := range inputs {
			if classifyDevice(dev.Name) != "user" {
				continue
			}
			if best == nil || preferDevice(dev.Name, best.Name) {
				best = dev
			}
		}
		if best != nil {
			return best, nil
		}
		for _, dev := range inputs {
			if classifyDevice(dev.Name) != "system" {
				return dev, nil
			}
		}
		return nil, fmt.Errorf("no microphone available")
	case RefSystem:
		for _, dev := range inputs {
			if classifyDevice(dev.Name) == "system" {
				return dev, nil
			}
		}
		return nil, fmt.Errorf("no loopback device available")
	default:
		for _, dev := range inputs {
			if containsIgnoreCase(dev.Name, ref) {
				return dev, nil
			}
		}
		return nil, fmt.Errorf("no input device matches %q", ref)
	}
}

func classifyDevice(name string) string {
	for _, kw := range []string{"blackhole", "vb-cable", "loopback", "monitor", "soundflower"} {
		if containsIgnoreCase(name, kw) {
			return "system"
		}
	}
	for _, kw := range []string{"microphone", "input", "mic", "built-in"} {
		if containsIgnoreCase(name, kw) {
			return "user"
		}
	}
	return ""
}

func isExcluded(name string, excluded []string) bool {
	for _, ex := range excluded {
		if containsIgnoreCase(name, ex) {
			return true
		}
	}
	return false
}

// preferDevice reports whether name beats current: built-in mics win over
// external or virtual ones.
func preferDevice(name, current string) bool {
	for _, p := range []string{"macbook", "built-in"} {
		if containsIgnoreCase(name, p) && !containsIgnoreCase(current, p) {
			return true
		}
	}
	return false
}

func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
