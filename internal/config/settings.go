package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. SONGBOT_CACHE_DIR.
const EnvPrefix = "SONGBOT"

// Settings holds all configuration options.
type Settings struct {
	// Storage
	CacheDir        string `json:"cache_dir" mapstructure:"cache_dir"`
	WorkDir         string `json:"work_dir" mapstructure:"work_dir"`
	CacheTTLSeconds int    `json:"cache_ttl_seconds" mapstructure:"cache_ttl_seconds"`
	SentinelFile    string `json:"sentinel_file" mapstructure:"sentinel_file"`
	AudioExt        string `json:"audio_ext" mapstructure:"audio_ext"`

	// Fetching
	MaxConcurrentFetches  int     `json:"max_concurrent_fetches" mapstructure:"max_concurrent_fetches"`
	DownloadMaxRetries    int     `json:"download_max_retries" mapstructure:"download_max_retries"`
	DownloadRetryCooldown float64 `json:"download_retry_cooldown" mapstructure:"download_retry_cooldown"`
	DownloadRetryExponent float64 `json:"download_retry_exponent" mapstructure:"download_retry_exponent"`

	// External tools
	YTDLPPath   string `json:"yt_dlp_path" mapstructure:"yt_dlp_path"`
	FFmpegPath  string `json:"ffmpeg_path" mapstructure:"ffmpeg_path"`
	FFprobePath string `json:"ffprobe_path" mapstructure:"ffprobe_path"`

	// yt-dlp
	CookiesPath        string  `json:"cookies_path" mapstructure:"cookies_path"`
	CookiesFromBrowser string  `json:"cookies_from_browser" mapstructure:"cookies_from_browser"`
	ProxyURL           string  `json:"proxy_url" mapstructure:"proxy_url"`
	DownloadLimitMBps  float64 `json:"download_limit_mbps" mapstructure:"download_limit_mbps"`

	// Cover art
	ThumbnailSize int `json:"thumbnail_size" mapstructure:"thumbnail_size"`

	// Delivery
	MaxUploadBytes int64  `json:"max_upload_bytes" mapstructure:"max_upload_bytes"`
	CreatePlaylist bool   `json:"create_playlist" mapstructure:"create_playlist"`
	PlaylistFormat string `json:"playlist_format" mapstructure:"playlist_format"`

	// Logging
	LogLevel  string `json:"log_level" mapstructure:"log_level"`
	LogFormat string `json:"log_format" mapstructure:"log_format"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}
	return &Settings{
		CacheDir:        filepath.Join(cacheDir, "songbot"),
		WorkDir:         filepath.Join(os.TempDir(), "songbot-work"),
		CacheTTLSeconds: 24 * 60 * 60,
		SentinelFile:    ".gitkeep",
		AudioExt:        ".mp3",

		MaxConcurrentFetches:  0,
		DownloadMaxRetries:    7,
		DownloadRetryCooldown: 0.2,
		DownloadRetryExponent: 4.0,

		YTDLPPath:   "yt-dlp",
		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",

		ThumbnailSize: 300,

		MaxUploadBytes: 50_000_000,
		CreatePlaylist: true,
		PlaylistFormat: "m3u",

		LogLevel:  "info",
		LogFormat: "console",
	}
}

// Load reads settings from a JSON, YAML or TOML file and SONGBOT_*
// environment variables. Missing keys keep their default values; an empty
// path only applies the environment.
func Load(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v, DefaultSettings())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// Save writes settings to a file. The format follows the file extension.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	v := viper.New()
	setDefaults(v, s)
	return v.WriteConfigAs(path)
}

// Validate normalizes paths and rejects unusable values.
func (s *Settings) Validate() error {
	if strings.TrimSpace(s.CacheDir) == "" {
		return fmt.Errorf("cache_dir is required")
	}
	if strings.TrimSpace(s.WorkDir) == "" {
		return fmt.Errorf("work_dir is required")
	}
	if filepath.Clean(s.CacheDir) == filepath.Clean(s.WorkDir) {
		return fmt.Errorf("work_dir must differ from cache_dir")
	}
	if s.CacheTTLSeconds <= 0 {
		return fmt.Errorf("cache_ttl_seconds must be positive, got %d", s.CacheTTLSeconds)
	}
	if s.MaxConcurrentFetches < 0 {
		return fmt.Errorf("max_concurrent_fetches must not be negative, got %d", s.MaxConcurrentFetches)
	}
	if s.ThumbnailSize <= 0 {
		return fmt.Errorf("thumbnail_size must be positive, got %d", s.ThumbnailSize)
	}
	if s.DownloadLimitMBps < 0 {
		return fmt.Errorf("download_limit_mbps must not be negative, got %g", s.DownloadLimitMBps)
	}
	switch strings.ToLower(s.PlaylistFormat) {
	case "", "m3u", "pls":
	default:
		return fmt.Errorf("playlist_format must be m3u or pls, got %q", s.PlaylistFormat)
	}
	if s.DownloadMaxRetries < 1 {
		s.DownloadMaxRetries = 1
	}
	if s.AudioExt != "" && !strings.HasPrefix(s.AudioExt, ".") {
		s.AudioExt = "." + s.AudioExt
	}
	for _, p := range []*string{&s.CacheDir, &s.WorkDir} {
		abs, err := filepath.Abs(*p)
		if err != nil {
			return fmt.Errorf("invalid path %q: %w", *p, err)
		}
		*p = abs
	}
	return nil
}

// CacheTTL returns the eviction age as a duration.
func (s *Settings) CacheTTL() time.Duration {
	return time.Duration(s.CacheTTLSeconds) * time.Second
}

// FetchWorkers returns the configured size of the fetch worker pool. Zero
// leaves the choice to the fetch package.
func (s *Settings) FetchWorkers() int {
	return max(0, s.MaxConcurrentFetches)
}

func setDefaults(v *viper.Viper, s *Settings) {
	v.SetDefault("cache_dir", s.CacheDir)
	v.SetDefault("work_dir", s.WorkDir)
	v.SetDefault("cache_ttl_seconds", s.CacheTTLSeconds)
	v.SetDefault("sentinel_file", s.SentinelFile)
	v.SetDefault("audio_ext", s.AudioExt)
	v.SetDefault("max_concurrent_fetches", s.MaxConcurrentFetches)
	v.SetDefault("download_max_retries", s.DownloadMaxRetries)
	v.SetDefault("download_retry_cooldown", s.DownloadRetryCooldown)
	v.SetDefault("download_retry_exponent", s.DownloadRetryExponent)
	v.SetDefault("yt_dlp_path", s.YTDLPPath)
	v.SetDefault("ffmpeg_path", s.FFmpegPath)
	v.SetDefault("ffprobe_path", s.FFprobePath)
	v.SetDefault("cookies_path", s.CookiesPath)
	v.SetDefault("cookies_from_browser", s.CookiesFromBrowser)
	v.SetDefault("proxy_url", s.ProxyURL)
	v.SetDefault("download_limit_mbps", s.DownloadLimitMBps)
	v.SetDefault("thumbnail_size", s.ThumbnailSize)
	v.SetDefault("max_upload_bytes", s.MaxUploadBytes)
	v.SetDefault("create_playlist", s.CreatePlaylist)
	v.SetDefault("playlist_format", s.PlaylistFormat)
	v.SetDefault("log_level", s.LogLevel)
	v.SetDefault("log_format", s.LogFormat)
}
