// Package config provides configuration management for the Narravid server.
// Configuration is loaded from environment variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	// Default values
	DefaultPort           = 3001
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "json"
	DefaultDataDir        = ".narravid"
	DefaultFrameRate      = 1.0  // frames extracted per second
	DefaultMaxDuration    = 90.0 // only the first N seconds of a video are processed
	DefaultDiffThreshold  = 0.25
	DefaultBatchSize      = 5
	DefaultRetentionHours = 24
	DefaultMaxUploadMB    = 500
	DefaultAudioBitrate   = "64k"
	DefaultVisionModel    = "gpt-4o-mini"
	DefaultSummaryModel   = "gpt-4o-mini"

	// Environment variable names
	EnvPort           = "NARRAVID_PORT"
	EnvLogLevel       = "NARRAVID_LOG_LEVEL"
	EnvLogFormat      = "NARRAVID_LOG_FORMAT"
	EnvDataDir        = "NARRAVID_DATA_DIR"
	EnvFrameRate      = "NARRAVID_FRAME_RATE"
	EnvMaxDuration    = "NARRAVID_MAX_DURATION"
	EnvDiffThreshold  = "NARRAVID_FRAME_DIFF_THRESHOLD"
	EnvBatchSize      = "NARRAVID_BATCH_SIZE"
	EnvCacheEnabled   = "NARRAVID_CACHE_ENABLED"
	EnvRetentionHours = "NARRAVID_RETENTION_HOURS"
	EnvMaxUploadMB    = "NARRAVID_MAX_UPLOAD_MB"
	EnvAudioBitrate   = "NARRAVID_AUDIO_BITRATE"
	EnvRetainFrames   = "NARRAVID_RETAIN_FRAMES"
	EnvVisionModel    = "NARRAVID_VISION_MODEL"
	EnvSummaryModel   = "NARRAVID_SUMMARY_MODEL"
	EnvOpenAIKey      = "OPENAI_API_KEY"
	EnvOpenAIBaseURL  = "OPENAI_BASE_URL"

	// Database filename
	DBFilename = "narravid.db"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	LogFormat() string
	DataDir() string
	DBPath() string

	FramesDir() string
	OutputDir() string
	AudioDir() string
	CacheDir() string
	UploadsDir() string
	DownloadsDir() string

	FrameRate() float64
	FrameInterval() float64
	MaxDuration() float64
	DiffThreshold() float64
	BatchSize() int
	CacheEnabled() bool
	RetentionMaxAge() time.Duration
	MaxUploadBytes() int64
	AudioBitrate() string
	RetainFrames() bool

	OpenAIKey() string
	OpenAIBaseURL() string
	VisionModel() string
	SummaryModel() string
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port           int
	logLevel       string
	logFormat      string
	dataDir        string
	frameRate      float64
	maxDuration    float64
	diffThreshold  float64
	batchSize      int
	cacheEnabled   bool
	retentionHours int
	maxUploadMB    int64
	audioBitrate   string
	retainFrames   bool
	visionModel    string
	summaryModel   string
	openAIKey      string
	openAIBaseURL  string
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:           DefaultPort,
		logLevel:       DefaultLogLevel,
		logFormat:      DefaultLogFormat,
		dataDir:        defaultDataDir(),
		frameRate:      DefaultFrameRate,
		maxDuration:    DefaultMaxDuration,
		diffThreshold:  DefaultDiffThreshold,
		batchSize:      DefaultBatchSize,
		cacheEnabled:   true,
		retentionHours: DefaultRetentionHours,
		maxUploadMB:    DefaultMaxUploadMB,
		audioBitrate:   DefaultAudioBitrate,
		visionModel:    DefaultVisionModel,
		summaryModel:   DefaultSummaryModel,
	}

	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}
	if lf := os.Getenv(EnvLogFormat); lf != "" {
		if lf != "json" && lf != "text" {
			return nil, fmt.Errorf("invalid %s: must be json or text", EnvLogFormat)
		}
		cfg.logFormat = lf
	}
	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	if fr := os.Getenv(EnvFrameRate); fr != "" {
		rate, err := strconv.ParseFloat(fr, 64)
		if err != nil || rate <= 0 {
			return nil, fmt.Errorf("invalid %s: must be a positive number", EnvFrameRate)
		}
		cfg.frameRate = rate
	}

	if md := os.Getenv(EnvMaxDuration); md != "" {
		dur, err := strconv.ParseFloat(md, 64)
		if err != nil || dur <= 0 {
			return nil, fmt.Errorf("invalid %s: must be a positive number", EnvMaxDuration)
		}
		cfg.maxDuration = dur
	}

	if th := os.Getenv(EnvDiffThreshold); th != "" {
		threshold, err := strconv.ParseFloat(th, 64)
		if err != nil || threshold < 0 || threshold > 1 {
			return nil, fmt.Errorf("invalid %s: must be in [0,1]", EnvDiffThreshold)
		}
		cfg.diffThreshold = threshold
	}

	if bs := os.Getenv(EnvBatchSize); bs != "" {
		size, err := strconv.Atoi(bs)
		if err != nil || size < 1 {
			return nil, fmt.Errorf("invalid %s: must be a positive integer", EnvBatchSize)
		}
		cfg.batchSize = size
	}

	if ce := os.Getenv(EnvCacheEnabled); ce != "" {
		enabled, err := strconv.ParseBool(ce)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvCacheEnabled, err)
		}
		cfg.cacheEnabled = enabled
	}

	if rh := os.Getenv(EnvRetentionHours); rh != "" {
		hours, err := strconv.Atoi(rh)
		if err != nil || hours < 1 {
			return nil, fmt.Errorf("invalid %s: must be a positive integer", EnvRetentionHours)
		}
		cfg.retentionHours = hours
	}

	if mu := os.Getenv(EnvMaxUploadMB); mu != "" {
		mb, err := strconv.ParseInt(mu, 10, 64)
		if err != nil || mb < 1 {
			return nil, fmt.Errorf("invalid %s: must be a positive integer", EnvMaxUploadMB)
		}
		cfg.maxUploadMB = mb
	}

	if ab := os.Getenv(EnvAudioBitrate); ab != "" {
		cfg.audioBitrate = ab
	}

	if rf := os.Getenv(EnvRetainFrames); rf != "" {
		retain, err := strconv.ParseBool(rf)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvRetainFrames, err)
		}
		cfg.retainFrames = retain
	}

	if vm := os.Getenv(EnvVisionModel); vm != "" {
		cfg.visionModel = vm
	}
	if sm := os.Getenv(EnvSummaryModel); sm != "" {
		cfg.summaryModel = sm
	}

	cfg.openAIKey = os.Getenv(EnvOpenAIKey)
	cfg.openAIBaseURL = os.Getenv(EnvOpenAIBaseURL)

	return cfg, nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// LogFormat returns the log output format (json or text)
func (c *EnvConfig) LogFormat() string {
	return c.logFormat
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// FramesDir returns the directory holding per-session frame sets
func (c *EnvConfig) FramesDir() string {
	return filepath.Join(c.dataDir, "frames")
}

// OutputDir returns the directory holding persisted result records
func (c *EnvConfig) OutputDir() string {
	return filepath.Join(c.dataDir, "output")
}

// AudioDir returns the directory holding extracted audio files
func (c *EnvConfig) AudioDir() string {
	return filepath.Join(c.dataDir, "audio")
}

// CacheDir returns the description cache directory
func (c *EnvConfig) CacheDir() string {
	return filepath.Join(c.dataDir, "cache")
}

// UploadsDir returns the directory holding uploaded video files
func (c *EnvConfig) UploadsDir() string {
	return filepath.Join(c.dataDir, "uploads")
}

// DownloadsDir returns the directory holding downloaded videos
func (c *EnvConfig) DownloadsDir() string {
	return filepath.Join(c.dataDir, "downloads")
}

// FrameRate returns the sampling rate in frames per second
func (c *EnvConfig) FrameRate() float64 {
	return c.frameRate
}

// FrameInterval returns the interval between sampled frames in seconds
func (c *EnvConfig) FrameInterval() float64 {
	return 1 / c.frameRate
}

// MaxDuration returns the number of seconds of video to process
func (c *EnvConfig) MaxDuration() float64 {
	return c.maxDuration
}

// DiffThreshold returns the significance filter threshold in [0,1]
func (c *EnvConfig) DiffThreshold() float64 {
	return c.diffThreshold
}

// BatchSize returns the number of frames analyzed concurrently
func (c *EnvConfig) BatchSize() int {
	return c.batchSize
}

// CacheEnabled reports whether the description cache is active
func (c *EnvConfig) CacheEnabled() bool {
	return c.cacheEnabled
}

// RetentionMaxAge returns the maximum artifact age before the sweeper removes it
func (c *EnvConfig) RetentionMaxAge() time.Duration {
	return time.Duration(c.retentionHours) * time.Hour
}

// MaxUploadBytes returns the upload size limit in bytes
func (c *EnvConfig) MaxUploadBytes() int64 {
	return c.maxUploadMB * 1024 * 1024
}

// AudioBitrate returns the bitrate used for extracted audio
func (c *EnvConfig) AudioBitrate() string {
	return c.audioBitrate
}

// RetainFrames reports whether session frame dirs are kept after processing
func (c *EnvConfig) RetainFrames() bool {
	return c.retainFrames
}

func (c *EnvConfig) OpenAIKey() string {
	return c.openAIKey
}

func (c *EnvConfig) OpenAIBaseURL() string {
	return c.openAIBaseURL
}

func (c *EnvConfig) VisionModel() string {
	return c.visionModel
}

func (c *EnvConfig) SummaryModel() string {
	return c.summaryModel
}

// ArtifactDirs returns every directory the server writes processing artifacts to.
func ArtifactDirs(c Config) []string {
	return []string{
		c.FramesDir(),
		c.OutputDir(),
		c.AudioDir(),
		c.CacheDir(),
		c.UploadsDir(),
		c.DownloadsDir(),
	}
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
