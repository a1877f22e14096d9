package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/souksili/DatGouv-Visualisation/internal/utils"
)

// EnvPrefix prefixes every environment override, e.g. DATAVIZ_LISTEN_ADDR.
const EnvPrefix = "DATAVIZ"

// Global configuration structure.
type Global struct {
	ListenAddr         string   `mapstructure:"listen_addr" yaml:"listen_addr"`
	UploadDir          string   `mapstructure:"upload_dir" yaml:"upload_dir"`
	GraphDir           string   `mapstructure:"graph_dir" yaml:"graph_dir"`
	GraphURLPrefix     string   `mapstructure:"graph_url_prefix" yaml:"graph_url_prefix"`
	MaxUploadMB        int      `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
	PreviewRows        int      `mapstructure:"preview_rows" yaml:"preview_rows"`
	HistogramBins      int      `mapstructure:"histogram_bins" yaml:"histogram_bins"`
	ChartParallelism   int      `mapstructure:"chart_parallelism" yaml:"chart_parallelism"`
	LogLevel           string   `mapstructure:"log_level" yaml:"log_level"`
	LogFormat          string   `mapstructure:"log_format" yaml:"log_format"`
	RateLimitRPS       float64  `mapstructure:"rate_limit_rps" yaml:"rate_limit_rps"`
	RateLimitBurst     int      `mapstructure:"rate_limit_burst" yaml:"rate_limit_burst"`
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins" yaml:"cors_allowed_origins"`
	RequestTimeoutSec  int      `mapstructure:"request_timeout_sec" yaml:"request_timeout_sec"`
}

func defaults(v *viper.Viper) {
	v.SetDefault("listen_addr", ":5000")
	v.SetDefault("upload_dir", "uploads")
	v.SetDefault("graph_dir", filepath.Join("static", "graphs"))
	v.SetDefault("graph_url_prefix", "/graphs")
	v.SetDefault("max_upload_mb", 16)
	v.SetDefault("preview_rows", 5)
	v.SetDefault("histogram_bins", 30)
	v.SetDefault("chart_parallelism", 1)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("rate_limit_rps", 2.0)
	v.SetDefault("rate_limit_burst", 5)
	v.SetDefault("cors_allowed_origins", []string{"*"})
	v.SetDefault("request_timeout_sec", 120)
}

// DefaultDir is where the config file lives when --config is not given.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".dataviz"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.dataviz/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := DefaultDir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, "config.yaml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from defaults, an optional YAML file and env.
// Precedence: env > config file > defaults. An explicit cfgFile must exist.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	defaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		if dir, err := DefaultDir(); err == nil {
			v.AddConfigPath(dir)
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	for _, dir := range []*string{&c.UploadDir, &c.GraphDir} {
		if strings.TrimSpace(*dir) == "" {
			continue
		}
		expanded, err := utils.ExpandHome(*dir)
		if err != nil {
			return nil, err
		}
		*dir = expanded
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects values the server cannot run with.
func (c *Global) Validate() error {
	switch {
	case c.MaxUploadMB <= 0:
		return fmt.Errorf("max_upload_mb must be positive, got %d", c.MaxUploadMB)
	case c.PreviewRows <= 0:
		return fmt.Errorf("preview_rows must be positive, got %d", c.PreviewRows)
	case c.HistogramBins <= 0:
		return fmt.Errorf("histogram_bins must be positive, got %d", c.HistogramBins)
	case c.ChartParallelism <= 0:
		return fmt.Errorf("chart_parallelism must be positive, got %d", c.ChartParallelism)
	case c.RateLimitRPS < 0 || c.RateLimitBurst < 0:
		return fmt.Errorf("rate limit values must not be negative")
	case c.RateLimitRPS > 0 && c.RateLimitBurst < 1:
		return fmt.Errorf("rate_limit_burst must be at least 1 when rate_limit_rps is set, got %d", c.RateLimitBurst)
	case strings.TrimSpace(c.UploadDir) == "" || strings.TrimSpace(c.GraphDir) == "":
		return fmt.Errorf("upload_dir and graph_dir are required")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log_format: %s (use text or json)", c.LogFormat)
	}
	return nil
}

// MaxUploadBytes converts the upload ceiling to bytes.
func (c *Global) MaxUploadBytes() int64 { return int64(c.MaxUploadMB) << 20 }

// ParseLevel maps a level name onto slog.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log_level: %s", s)
	}
	return l, nil
}

// Set assigns one key from its string form, validating the result.
func (c *Global) Set(key, val string) error {
	next := *c
	atoi := func() (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("invalid int for %s: %v", key, val)
		}
		return i, nil
	}
	var err error
	switch key {
	case "listen_addr":
		next.ListenAddr = val
	case "upload_dir":
		next.UploadDir = val
	case "graph_dir":
		next.GraphDir = val
	case "graph_url_prefix":
		next.GraphURLPrefix = "/" + strings.Trim(val, "/")
	case "max_upload_mb":
		next.MaxUploadMB, err = atoi()
	case "preview_rows":
		next.PreviewRows, err = atoi()
	case "histogram_bins":
		next.HistogramBins, err = atoi()
	case "chart_parallelism":
		next.ChartParallelism, err = atoi()
	case "rate_limit_burst":
		next.RateLimitBurst, err = atoi()
	case "request_timeout_sec":
		next.RequestTimeoutSec, err = atoi()
	case "rate_limit_rps":
		next.RateLimitRPS, err = strconv.ParseFloat(val, 64)
		if err != nil {
			err = fmt.Errorf("invalid float for rate_limit_rps: %v", val)
		}
	case "log_level":
		next.LogLevel = strings.ToLower(val)
	case "log_format":
		next.LogFormat = strings.ToLower(val)
	case "cors_allowed_origins":
		next.CORSAllowedOrigins = nil
		for _, o := range strings.Split(val, ",") {
			if o = strings.TrimSpace(o); o != "" {
				next.CORSAllowedOrigins = append(next.CORSAllowedOrigins, o)
			}
		}
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	if err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// Entries lists key/value pairs in display order.
func (c *Global) Entries() [][2]string {
	return [][2]string{
		{"listen_addr", c.ListenAddr},
		{"upload_dir", c.UploadDir},
		{"graph_dir", c.GraphDir},
		{"graph_url_prefix", c.GraphURLPrefix},
		{"max_upload_mb", strconv.Itoa(c.MaxUploadMB)},
		{"preview_rows", strconv.Itoa(c.PreviewRows)},
		{"histogram_bins", strconv.Itoa(c.HistogramBins)},
		{"chart_parallelism", strconv.Itoa(c.ChartParallelism)},
		{"log_level", c.LogLevel},
		{"log_format", c.LogFormat},
		{"rate_limit_rps", strconv.FormatFloat(c.RateLimitRPS, 'f', -1, 64)},
		{"rate_limit_burst", strconv.Itoa(c.RateLimitBurst)},
		{"cors_allowed_origins", strings.Join(c.CORSAllowedOrigins, ",")},
		{"request_timeout_sec", strconv.Itoa(c.RequestTimeoutSec)},
	}
}
