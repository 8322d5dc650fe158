// Package config loads the fetcher command configuration from flags,
// FETCHER_ environment variables and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/adamwoolhether/fetcher/internal/validate"
)

// EnvPrefix is prepended to every environment override, e.g. FETCHER_BASE_URL.
const EnvPrefix = "FETCHER"

var (
	ErrUsage        = errors.New("usage: fetcher [flags] METHOD PATH")
	ErrInvalidPair  = errors.New("expected key=value")
	ErrBodyConflict = errors.New("--form and --json are mutually exclusive")
)

// Config holds one invocation of the fetcher command.
type Config struct {
	BaseURL    string        `mapstructure:"base_url" validate:"required,url"`
	Token      string        `mapstructure:"token"`
	Timeout    time.Duration `mapstructure:"timeout" validate:"gte=0"`
	RPS        int           `mapstructure:"rps" validate:"gte=0"`
	Burst      int           `mapstructure:"burst" validate:"gte=0"`
	Transport  string        `mapstructure:"transport" validate:"oneof=http resty"`
	UserAgent  string        `mapstructure:"user_agent"`
	StatusText bool          `mapstructure:"status_text"`
	LogLevel   string        `mapstructure:"log_level" validate:"oneof=debug info warn warning error"`

	Method  string            `mapstructure:"-" validate:"oneof=GET POST PUT PATCH DELETE"`
	Path    string            `mapstructure:"-" validate:"required"`
	Params  map[string]string `mapstructure:"-"`
	Headers map[string]string `mapstructure:"-"`
	Form    map[string]string `mapstructure:"-"`
	JSON    string            `mapstructure:"-"`
	NoAuth  bool              `mapstructure:"-"`
}

// bound maps viper keys to their flag names.
var bound = map[string]string{
	"base_url":    "base-url",
	"token":       "token",
	"timeout":     "timeout",
	"rps":         "rps",
	"burst":       "burst",
	"transport":   "transport",
	"user_agent":  "user-agent",
	"status_text": "status-text",
	"log_level":   "log-level",
}

// Load parses args (without the program name). Precedence is flags, then
// FETCHER_ environment variables, then the .env file, then defaults.
func Load(args []string, usage io.Writer) (*Config, error) {
	fs := pflag.NewFlagSet("fetcher", pflag.ContinueOnError)
	fs.SetOutput(usage)

	fs.String("base-url", "", "base URL of the backing service")
	fs.String("token", "", "credential sent in the Token header")
	fs.Duration("timeout", 30*time.Second, "overall request timeout")
	fs.Int("rps", 0, "requests per second, 0 disables throttling")
	fs.Int("burst", 1, "throttle burst size")
	fs.String("transport", "http", "transport to use: http or resty")
	fs.String("user-agent", "", "User-Agent header")
	fs.Bool("status-text", false, "fill the envelope message with the status text")
	fs.String("log-level", "info", "debug, info, warn or error")
	envFile := fs.String("env-file", ".env", "dotenv file with FETCHER_ variables")
	params := fs.StringArray("param", nil, "query parameter as key=value, repeatable")
	headers := fs.StringArray("header", nil, "request header as key=value, repeatable")
	form := fs.StringArray("form", nil, "form body field as key=value, repeatable")
	rawJSON := fs.String("json", "", "raw JSON body, sent without form encoding")
	noAuth := fs.Bool("no-auth", false, "skip the Token header")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	v := viper.New()
	v.SetDefault("log_level", "info")
	v.SetDefault("transport", "http")
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("burst", 1)

	if err := loadDotEnv(v, *envFile, fs.Changed("env-file")); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, name := range bound {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, fmt.Errorf("binding flag %s: %w", name, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if fs.NArg() != 2 {
		return nil, ErrUsage
	}
	cfg.Method = strings.ToUpper(fs.Arg(0))
	cfg.Path = fs.Arg(1)
	cfg.JSON = *rawJSON
	cfg.NoAuth = *noAuth

	var err error
	if cfg.Params, err = parsePairs(*params); err != nil {
		return nil, fmt.Errorf("param: %w", err)
	}
	if cfg.Headers, err = parsePairs(*headers); err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	if cfg.Form, err = parsePairs(*form); err != nil {
		return nil, fmt.Errorf("form: %w", err)
	}
	if len(cfg.Form) > 0 && cfg.JSON != "" {
		return nil, ErrBodyConflict
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv merges FETCHER_ keys from path into v as defaults, so real
// environment variables and flags still win. A missing file is only an
// error when it was requested explicitly.
func loadDotEnv(v *viper.Viper, path string, explicit bool) error {
	if path == "" {
		return nil
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("env file: %w", err)
	}

	vars, err := godotenv.Read(path)
	if err != nil {
		return fmt.Errorf("reading env file: %w", err)
	}

	prefix := EnvPrefix + "_"
	for k, val := range vars {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		v.SetDefault(strings.ToLower(strings.TrimPrefix(k, prefix)), val)
	}

	return nil
}

func parsePairs(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, val, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("%q: %w", p, ErrInvalidPair)
		}
		out[k] = val
	}

	return out, nil
}
