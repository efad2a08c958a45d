package config

import "time"

// DefaultAvatarURL is the placeholder shown for users without a stored avatar.
const DefaultAvatarURL = "https://cdn-icons-png.flaticon.com/512/149/149071.png"

// Config holds server configuration values.
type Config struct {
	Addr               string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout  time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel           string        `mapstructure:"log_level" yaml:"log_level"`
	StaticDir          string        `mapstructure:"static_dir" yaml:"static_dir"`
	MaxMessageBytes    int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	ClientBuffer       int           `mapstructure:"client_buffer" yaml:"client_buffer"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`
	Chat               ChatConfig    `mapstructure:"chat" yaml:"chat"`
}

// ChatConfig tunes the chat hub.
type ChatConfig struct {
	// PublicLogLimit caps the retained public room log. Zero keeps everything.
	PublicLogLimit int `mapstructure:"public_log_limit" yaml:"public_log_limit"`
	// PublicHistoryLimit caps the replay sent on join.
	PublicHistoryLimit int    `mapstructure:"public_history_limit" yaml:"public_history_limit"`
	DefaultAvatarURL   string `mapstructure:"default_avatar_url" yaml:"default_avatar_url"`
	ReportErrors       bool   `mapstructure:"report_errors" yaml:"report_errors"`
	SanitizeContent    bool   `mapstructure:"sanitize_content" yaml:"sanitize_content"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:               ":8080",
		ReadHeaderTimeout:  5 * time.Second,
		ShutdownTimeout:    5 * time.Second,
		LogLevel:           "info",
		MaxMessageBytes:    64 << 10,
		ClientBuffer:       64,
		RateLimitPerMinute: 600,
		Chat: ChatConfig{
			PublicLogLimit:     200,
			PublicHistoryLimit: 200,
			DefaultAvatarURL:   DefaultAvatarURL,
			SanitizeContent:    false,
		},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
// Chat settings are not overridable from the command line and are left alone.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.StaticDir != "" {
		c.StaticDir = other.StaticDir
	}
	if other.MaxMessageBytes != 0 {
		c.MaxMessageBytes = other.MaxMessageBytes
	}
	if other.ClientBuffer != 0 {
		c.ClientBuffer = other.ClientBuffer
	}
	if other.RateLimitPerMinute != 0 {
		c.RateLimitPerMinute = other.RateLimitPerMinute
	}
}
