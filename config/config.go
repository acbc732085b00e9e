package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/chaos-io/bgremover/preprocess"
	"github.com/chaos-io/bgremover/rembg"
	"github.com/chaos-io/bgremover/util"
	"github.com/joho/godotenv"
)

// Config 所有可配置项
// 优先级：默认值 < JSON 文件 < .env / 环境变量 < 命令行
type Config struct {
	Threshold  *int   `json:"threshold"`
	BlurRadius *int   `json:"blur_radius"`
	MaxSize    int    `json:"max_size"`
	Crop       string `json:"crop"`
	Format     string `json:"format"`
	OutputDir  string `json:"output_dir"`
	Workers    int    `json:"workers"`

	Addr        string `json:"addr"`
	ResultTTL   string `json:"result_ttl"`
	CleanupSpec string `json:"cleanup_spec"`
	// 上传限制，0 使用服务端默认值
	MaxUploadBytes int64 `json:"max_upload_bytes"`
	MaxPixels      int   `json:"max_pixels"`

	LogLevel string `json:"log_level"`

	// TTL 由 ResultTTL 解析得到
	TTL time.Duration `json:"-"`
}

const (
	DefaultMaxSize     = 2048
	DefaultOutputDir   = "./output"
	DefaultAddr        = ":8080"
	DefaultResultTTL   = time.Hour
	DefaultCleanupSpec = "@every 10m"
)

// Load 读取 JSON 配置文件，文件中没有的字段保持零值
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv 加载 .env（文件不存在时忽略），再用非空的 BGR_* 环境变量覆盖
func (c *Config) ApplyEnv(files ...string) error {
	_ = godotenv.Load(files...)

	ints := []struct {
		key string
		dst *int
	}{
		{"BGR_MAX_SIZE", &c.MaxSize},
		{"BGR_WORKERS", &c.Workers},
	}
	for _, it := range ints {
		if v := os.Getenv(it.key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("config: %s: %w", it.key, err)
			}
			*it.dst = n
		}
	}

	opts := []struct {
		key string
		dst **int
	}{
		{"BGR_THRESHOLD", &c.Threshold},
		{"BGR_BLUR", &c.BlurRadius},
	}
	for _, it := range opts {
		if v := os.Getenv(it.key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("config: %s: %w", it.key, err)
			}
			*it.dst = &n
		}
	}

	strs := []struct {
		key string
		dst *string
	}{
		{"BGR_CROP", &c.Crop},
		{"BGR_FORMAT", &c.Format},
		{"BGR_OUTPUT_DIR", &c.OutputDir},
		{"BGR_ADDR", &c.Addr},
		{"BGR_RESULT_TTL", &c.ResultTTL},
		{"BGR_CLEANUP_SPEC", &c.CleanupSpec},
		{"BGR_LOG_LEVEL", &c.LogLevel},
	}
	for _, it := range strs {
		if v := os.Getenv(it.key); v != "" {
			*it.dst = v
		}
	}
	return nil
}

// Flags 命令行参数，覆盖配置文件
// 整数为负、字符串为空表示未设置
type Flags struct {
	Threshold  int
	BlurRadius int
	MaxSize    int
	Crop       string
	Format     string
	OutputDir  string
	Workers    int
	Addr       string
	LogLevel   string
}

// UnsetFlags 返回全部未设置的 Flags
func UnsetFlags() Flags {
	return Flags{Threshold: -1, BlurRadius: -1, MaxSize: -1, Workers: -1}
}

// Resolve 命令行覆盖已有配置，剩余空字段填默认值，数值限制到合法范围
func (c *Config) Resolve(flags Flags) error {
	if flags.Threshold >= 0 {
		t := flags.Threshold
		c.Threshold = &t
	}
	if flags.BlurRadius >= 0 {
		r := flags.BlurRadius
		c.BlurRadius = &r
	}
	if flags.MaxSize >= 0 {
		c.MaxSize = flags.MaxSize
	}
	if flags.Workers >= 0 {
		c.Workers = flags.Workers
	}
	if flags.Crop != "" {
		c.Crop = flags.Crop
	}
	if flags.Format != "" {
		c.Format = flags.Format
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.Addr != "" {
		c.Addr = flags.Addr
	}
	if flags.LogLevel != "" {
		c.LogLevel = flags.LogLevel
	}

	// 显式给出的 0 也只做范围限制，不回退默认值
	if c.Threshold == nil {
		t := rembg.DefaultThreshold
		c.Threshold = &t
	}
	*c.Threshold = rembg.ClampThreshold(*c.Threshold)
	if c.BlurRadius == nil {
		r := rembg.DefaultBlurRadius
		c.BlurRadius = &r
	}
	*c.BlurRadius = rembg.ClampBlurRadius(*c.BlurRadius)
	if c.MaxSize <= 0 {
		c.MaxSize = DefaultMaxSize
	}
	c.Crop = string(preprocess.ParseCropMode(c.Crop))
	c.Format = util.NormalizeFormat(c.Format)
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.CleanupSpec == "" {
		c.CleanupSpec = DefaultCleanupSpec
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	c.TTL = DefaultResultTTL
	if c.ResultTTL != "" {
		d, err := time.ParseDuration(c.ResultTTL)
		if err != nil {
			return fmt.Errorf("config: result_ttl: %w", err)
		}
		c.TTL = d
	}
	return nil
}

// Options 去背景参数，需先 Resolve
func (c *Config) Options() rembg.Options {
	opts := rembg.DefaultOptions()
	if c.Threshold != nil {
		opts.Threshold = *c.Threshold
	}
	if c.BlurRadius != nil {
		opts.BlurRadius = *c.BlurRadius
	}
	return opts.Clamp()
}

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
