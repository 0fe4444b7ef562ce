package audio

import (
	"testing"

	"github.com/gordonklaus/portaudio"
)

func TestClassifyDevice(t *testing.T) {
	tests := []struct {
		name     string
		device   string
		expected string
	}{
		{"blackhole", "BlackHole 2ch", "system"},
		{"vb-cable", "VB-Cable", "system"},
		{"loopback", "Loopback Audio", "system"},
		{"monitor", "Monitor of Built-in Audio", "system"},
		{"soundflower", "Soundflower (2ch)", "system"},
		{"microphone", "Built-in Microphone", "user"},
		{"mic short", "External Mic", "user"},
		{"input", "Line Input", "user"},
		{"speakers", "External Speakers", ""},
		{"hdmi", "HDMI Output", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyDevice(tt.device); got != tt.expected {
				t.Errorf("classifyDevice(%q) = %q, want %q", tt.device, got, tt.expected)
			}
		})
	}
}

func TestContainsIgnoreCase(t *testing.T) {
	tests := []struct {
		s        string
		substr   string
		expected bool
	}{
		{"BlackHole 2ch", "blackhole", true},
		{"blackhole", "BLACKHOLE", true},
		{"Built-in Microphone", "MICROPHONE", true},
		{"External Speakers", "blackhole", false},
		{"", "test", false},
		{"test", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.s+"_"+tt.substr, func(t *testing.T) {
			if got := containsIgnoreCase(tt.s, tt.substr); got != tt.expected {
				t.Errorf("containsIgnoreCase(%q, %q) = %v, want %v", tt.s, tt.substr, got, tt.expected)
			}
		})
	}
}

func TestSelectDevice(t *testing.T) {
	usb := &portaudio.DeviceInfo{Name: "USB Microphone", MaxInputChannels: 1}
	builtin := &portaudio.DeviceInfo{Name: "MacBook Pro Microphone", MaxInputChannels: 1}
	blackhole := &portaudio.DeviceInfo{Name: "BlackHole 2ch", MaxInputChannels: 2}
	speakers := &portaudio.DeviceInfo{Name: "MacBook Pro Speakers", MaxOutputChannels: 2}
	iphone := &portaudio.DeviceInfo{Name: "iPhone Microphone", MaxInputChannels: 1}
	interfaceIn := &portaudio.DeviceInfo{Name: "Scarlett 2i2", MaxInputChannels: 2}

	devices := []*portaudio.DeviceInfo{usb, speakers, blackhole, iphone, builtin, interfaceIn}

	tests := []struct {
		name     string
		devices  []*portaudio.DeviceInfo
		ref      string
		excluded []string
		want     *portaudio.DeviceInfo
		wantErr  bool
	}{
		{"default prefers built-in mic", devices, "default", nil, builtin, false},
		{"empty ref is default", devices, "", nil, builtin, false},
		{"mic alias", devices, "MIC", nil, builtin, false},
		{"system picks loopback", devices, "system", nil, blackhole, false},
		{"name fragment", devices, "scarlett", nil, interfaceIn, false},
		{"excluded device is skipped", devices, "iphone", []string{"iphone"}, nil, true},
		{"output-only never matches", devices, "speakers", nil, nil, true},
		{"no loopback", []*portaudio.DeviceInfo{usb}, "system", nil, nil, true},
		{"unclassified fallback", []*portaudio.DeviceInfo{blackhole, interfaceIn}, "default", nil, interfaceIn, false},
		{"no inputs", []*portaudio.DeviceInfo{speakers}, "default", nil, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectDevice(tt.devices, tt.ref, tt.excluded)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SelectDevice error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("SelectDevice = %v, want %v", deviceName(got), deviceName(tt.want))
			}
		})
	}
}

func deviceName(d *portaudio.DeviceInfo) string {
	if d == nil {
		return "<nil>"
	}
	return d.Name
}

func TestResamplerDownsamples(t *testing.T) {
	rs, err := newResampler(48000, 16000)
	if err != nil {
		t.Fatalf("newResampler: %v", err)
	}
	defer rs.Close()

	frame := make([]float32, 4800)
	for i := range frame {
		frame[i] = 0.25
	}

	total := 0
	for i := 0; i < 10; i++ {
		out, err := rs.Process(frame)
		if err != nil {
			t.Fatalf("Process: %v", err)
		}
		total += len(out)
	}

	// 48000 input samples at 3:1 is 16000, minus whatever the filter holds back.
	if total < 12000 || total > 16000 {
		t.Errorf("resampled %d samples, want roughly 16000", total)
	}
}
