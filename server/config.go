package server

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable LoadConfig reads.
const EnvPrefix = "MEARAS_"

// Config holds the transport settings.
type Config struct {
	// The address for the server to listen on.
	Address string `env:"ADDRESS" envDefault:":42069"`

	// ReadTimeout bounds reading one request head. 0 disables it.
	ReadTimeout time.Duration `env:"READ_TIMEOUT" envDefault:"30s"`

	// WriteTimeout bounds writing one response. 0 disables it.
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT"`

	// KeepAliveTimeout is how long an idle connection waits for the next
	// request. 0 closes every connection after one response.
	KeepAliveTimeout time.Duration `env:"KEEP_ALIVE_TIMEOUT" envDefault:"10s"`

	// MaxHeaderBytes bounds the request line plus headers.
	MaxHeaderBytes int `env:"MAX_HEADER_BYTES" envDefault:"1048576"`

	// AutoETag tags fixed 200 responses to GET and HEAD with a content hash
	// so If-None-Match can be answered with 304.
	AutoETag bool `env:"AUTO_ETAG"`

	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"info"`

	// Logger defaults to slog.Default().
	Logger *slog.Logger `env:"-"`
}

// LoadConfig loads the given .env files, or ".env" when none are named, and
// parses MEARAS_* variables into a Config. Missing .env files are ignored;
// variables already set in the environment win over the files.
func LoadConfig(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// NewLogger returns a text logger writing at cfg.LogLevel.
func (cfg Config) NewLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.LogLevel}))
}
