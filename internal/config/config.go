// Package config handles engine configuration.
//
// Values are resolved in order: built-in defaults, an optional YAML file
// named by CONFIG_FILE, then environment variables (a .env file in the
// working directory is loaded into the environment first).
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Transcription backend names.
const (
	BackendDemo       = "demo"
	BackendAssemblyAI = "assemblyai"
	BackendOpenAI     = "openai"
	BackendGRPC       = "grpc"
	BackendWhisper    = "whisper"
)

type Config struct {
	HTTPAddr      string              `yaml:"http_addr"`
	LogLevel      string              `yaml:"log_level"`
	Capture       CaptureConfig       `yaml:"capture"`
	Session       SessionConfig       `yaml:"session"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Summary       SummaryConfig       `yaml:"summary"`
	Broadcast     BroadcastConfig     `yaml:"broadcast"`
	Archive       ArchiveConfig       `yaml:"archive"`
}

type CaptureConfig struct {
	Source          string        `yaml:"source"`
	SampleRate      int           `yaml:"sample_rate"`
	ChunkSeconds    float64       `yaml:"chunk_seconds"`
	MinFlushSeconds float64       `yaml:"min_flush_seconds"`
	StatusInterval  time.Duration `yaml:"status_interval"`
	FramesPerBuffer int           `yaml:"frames_per_buffer"`
	FrameQueue      int           `yaml:"frame_queue"`
	ExcludedDevices []string      `yaml:"excluded_devices"`
}

type SessionConfig struct {
	RestartGrace time.Duration `yaml:"restart_grace"`
}

type TranscriptionConfig struct {
	Backend           string        `yaml:"backend"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	AssemblyAIKey     string        `yaml:"assemblyai_key"`
	AssemblyAIBaseURL string        `yaml:"assemblyai_base_url"`
	PollInterval      time.Duration `yaml:"poll_interval"`
	PollAttempts      int           `yaml:"poll_attempts"`
	OpenAIKey         string        `yaml:"openai_key"`
	OpenAIBaseURL     string        `yaml:"openai_base_url"`
	OpenAIModel       string        `yaml:"openai_model"`
	InferenceAddr     string        `yaml:"inference_addr"`
	WhisperModel      string        `yaml:"whisper_model"`
}

type SummaryConfig struct {
	URL      string        `yaml:"url"`
	APIKey   string        `yaml:"api_key"`
	Timeout  time.Duration `yaml:"timeout"`
	MinChars int           `yaml:"min_chars"`
}

type BroadcastConfig struct {
	ExcludeSource bool          `yaml:"exclude_source"`
	WebhookURL    string        `yaml:"webhook_url"`
	SendTimeout   time.Duration `yaml:"send_timeout"`
	SurfaceQueue  int           `yaml:"surface_queue"`
}

type ArchiveConfig struct {
	Path       string        `yaml:"path"`
	BatchSize  int           `yaml:"batch_size"`
	FlushDelay time.Duration `yaml:"flush_delay"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		HTTPAddr: ":8000",
		LogLevel: "info",
		Capture: CaptureConfig{
			Source:          "default",
			SampleRate:      16000,
			ChunkSeconds:    1.0,
			MinFlushSeconds: 1.0,
			StatusInterval:  2 * time.Second,
			FramesPerBuffer: 1024,
			FrameQueue:      64,
			ExcludedDevices: []string{"iphone", "teams"},
		},
		Session: SessionConfig{RestartGrace: 500 * time.Millisecond},
		Transcription: TranscriptionConfig{
			RequestTimeout:    30 * time.Second,
			AssemblyAIBaseURL: "https://api.assemblyai.com/v2",
			PollInterval:      time.Second,
			PollAttempts:      30,
			OpenAIBaseURL:     "https://api.openai.com/v1",
			OpenAIModel:       "whisper-1",
		},
		Summary: SummaryConfig{
			URL:      "https://api-inference.huggingface.co/models/facebook/bart-large-cnn",
			Timeout:  30 * time.Second,
			MinChars: 50,
		},
		Broadcast: BroadcastConfig{
			SendTimeout:  5 * time.Second,
			SurfaceQueue: 32,
		},
		Archive: ArchiveConfig{
			BatchSize:  20,
			FlushDelay: 2 * time.Second,
		},
	}
}

// Load resolves configuration from defaults, CONFIG_FILE and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env file: %w", err)
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.HTTPAddr = getEnv("HTTP_ADDR", c.HTTPAddr)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.Capture.Source = getEnv("CAPTURE_SOURCE", c.Capture.Source)
	c.Capture.SampleRate = getEnvInt("SAMPLE_RATE", c.Capture.SampleRate)
	c.Capture.ChunkSeconds = getEnvFloat("CHUNK_SECONDS", c.Capture.ChunkSeconds)
	c.Capture.MinFlushSeconds = getEnvFloat("MIN_FLUSH_SECONDS", c.Capture.MinFlushSeconds)
	c.Capture.StatusInterval = getEnvDuration("STATUS_INTERVAL", c.Capture.StatusInterval)
	c.Capture.FramesPerBuffer = getEnvInt("FRAMES_PER_BUFFER", c.Capture.FramesPerBuffer)
	c.Capture.FrameQueue = getEnvInt("FRAME_QUEUE", c.Capture.FrameQueue)
	c.Capture.ExcludedDevices = getEnvList("EXCLUDED_AUDIO_DEVICES", c.Capture.ExcludedDevices)

	c.Session.RestartGrace = getEnvDuration("RESTART_GRACE", c.Session.RestartGrace)

	t := &c.Transcription
	t.Backend = getEnv("TRANSCRIPTION_BACKEND", t.Backend)
	t.RequestTimeout = getEnvDuration("TRANSCRIPTION_TIMEOUT", t.RequestTimeout)
	t.AssemblyAIKey = getEnv("ASSEMBLYAI_API_KEY", t.AssemblyAIKey)
	t.AssemblyAIBaseURL = getEnv("ASSEMBLYAI_BASE_URL", t.AssemblyAIBaseURL)
	t.PollInterval = getEnvDuration("POLL_INTERVAL", t.PollInterval)
	t.PollAttempts = getEnvInt("POLL_ATTEMPTS", t.PollAttempts)
	t.OpenAIKey = getEnv("OPENAI_API_KEY", t.OpenAIKey)
	t.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", t.OpenAIBaseURL)
	t.OpenAIModel = getEnv("OPENAI_MODEL", t.OpenAIModel)
	t.InferenceAddr = getEnv("INFERENCE_ADDR", t.InferenceAddr)
	t.WhisperModel = getEnv("WHISPER_MODEL", t.WhisperModel)

	c.Summary.URL = getEnv("SUMMARY_URL", c.Summary.URL)
	c.Summary.APIKey = getEnv("SUMMARY_API_KEY", c.Summary.APIKey)
	c.Summary.Timeout = getEnvDuration("SUMMARY_TIMEOUT", c.Summary.Timeout)
	c.Summary.MinChars = getEnvInt("SUMMARY_MIN_CHARS", c.Summary.MinChars)

	c.Broadcast.ExcludeSource = getEnvBool("BROADCAST_EXCLUDE_SOURCE", c.Broadcast.ExcludeSource)
	c.Broadcast.WebhookURL = getEnv("NOTIFY_WEBHOOK_URL", c.Broadcast.WebhookURL)
	c.Broadcast.SendTimeout = getEnvDuration("BROADCAST_SEND_TIMEOUT", c.Broadcast.SendTimeout)
	c.Broadcast.SurfaceQueue = getEnvInt("SURFACE_QUEUE", c.Broadcast.SurfaceQueue)

	c.Archive.Path = getEnv("ARCHIVE_PATH", c.Archive.Path)
	c.Archive.BatchSize = getEnvInt("ARCHIVE_BATCH_SIZE", c.Archive.BatchSize)
	c.Archive.FlushDelay = getEnvDuration("ARCHIVE_FLUSH_DELAY", c.Archive.FlushDelay)
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Capture.SampleRate <= 0:
		return fmt.Errorf("sample rate must be positive, got %d", c.Capture.SampleRate)
	case c.Capture.ChunkSeconds <= 0:
		return fmt.Errorf("chunk duration must be positive, got %v", c.Capture.ChunkSeconds)
	case c.Capture.ChunkSamples() <= 0:
		return fmt.Errorf("chunk of %vs at %d Hz holds no samples", c.Capture.ChunkSeconds, c.Capture.SampleRate)
	case c.Capture.MinFlushSeconds < 0:
		return fmt.Errorf("min flush duration must not be negative, got %v", c.Capture.MinFlushSeconds)
	case c.Transcription.PollAttempts <= 0:
		return fmt.Errorf("poll attempts must be positive, got %d", c.Transcription.PollAttempts)
	case c.Transcription.PollInterval < 0:
		return fmt.Errorf("poll interval must not be negative, got %v", c.Transcription.PollInterval)
	}

	switch c.Transcription.Backend {
	case "", BackendDemo, BackendAssemblyAI, BackendOpenAI, BackendGRPC, BackendWhisper:
	default:
		return fmt.Errorf("unknown transcription backend %q", c.Transcription.Backend)
	}
	return nil
}

// ResolvedBackend returns the configured backend, or picks one from the
// credentials present. Demo is used when nothing is configured.
func (t TranscriptionConfig) ResolvedBackend() string {
	switch {
	case t.Backend != "":
		return t.Backend
	case t.AssemblyAIKey != "":
		return BackendAssemblyAI
	case t.OpenAIKey != "":
		return BackendOpenAI
	case t.InferenceAddr != "":
		return BackendGRPC
	case t.WhisperModel != "":
		return BackendWhisper
	default:
		return BackendDemo
	}
}

// ChunkSamples is the number of samples per full chunk.
func (c CaptureConfig) ChunkSamples() int {
	return int(float64(c.SampleRate) * c.ChunkSeconds)
}

// MinFlushSamples is the smallest remainder submitted on a forced flush.
func (c CaptureConfig) MinFlushSamples() int {
	return int(float64(c.SampleRate) * c.MinFlushSeconds)
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getEnvList(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if t := strings.TrimSpace(p); t != "" {
				result = append(result, t)
			}
		}
		return result
	}
	return def
}
