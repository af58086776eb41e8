// Package config loads the per-process bootstrap configuration (audio
// device parameters, cache/resource paths, outbound HTTP tuning) for the
// worker binary; the supervisor binary takes only command-line flags.
package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"

	"github.com/jukeproc/juked/internal/platform"
)

type Config struct {
	Debug bool `mapstructure:"debug"`

	API struct {
		Timeout   int    `mapstructure:"timeout"`
		Retries   int    `mapstructure:"retries"`
		UserAgent string `mapstructure:"user_agent"`
		RateLimit struct {
			RequestsPerSecond int `mapstructure:"requests_per_second"`
			BurstSize         int `mapstructure:"burst_size"`
		} `mapstructure:"rate_limit"`
	} `mapstructure:"api"`

	Storage struct {
		ResourceRoot string `mapstructure:"resource_root"`
		SfxDir       string `mapstructure:"sfx_dir"`
	} `mapstructure:"storage"`

	Audio struct {
		SampleRate    int     `mapstructure:"sample_rate"`
		BufferSize    int     `mapstructure:"buffer_size"`
		DefaultVolume float64 `mapstructure:"default_volume"`
	} `mapstructure:"audio"`

	Download struct {
		MaxConcurrent int `mapstructure:"max_concurrent"`
		ChunkSize     int `mapstructure:"chunk_size"`
	} `mapstructure:"download"`

	FFmpegPath string `mapstructure:"ffmpeg_path"`
}

func Load(configPath string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		configDir, err := platform.GetConfigDir()
		if err != nil {
			return nil, err
		}
		viper.AddConfigPath(configDir)
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("JUKED")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := ensureDirectories(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("debug", false)

	viper.SetDefault("api.timeout", 30)
	viper.SetDefault("api.retries", 3)
	viper.SetDefault("api.user_agent", "juked/1.0")
	viper.SetDefault("api.rate_limit.requests_per_second", 5)
	viper.SetDefault("api.rate_limit.burst_size", 5)

	cacheDir, _ := platform.GetCacheDir()
	resourceRoot, _ := platform.GetResourceRoot()

	viper.SetDefault("storage.resource_root", resourceRoot)
	viper.SetDefault("storage.sfx_dir", filepath.Join(cacheDir, "sfx"))

	viper.SetDefault("audio.sample_rate", 44100)
	viper.SetDefault("audio.buffer_size", getDefaultBufferSize())
	viper.SetDefault("audio.default_volume", 0.7)

	viper.SetDefault("download.max_concurrent", 3)
	viper.SetDefault("download.chunk_size", 256*1024)

	viper.SetDefault("ffmpeg_path", "ffmpeg")
}

func getDefaultBufferSize() int {
	switch runtime.GOOS {
	case "linux":
		return 16384
	case "windows", "darwin":
		return 8192
	default:
		return 16384
	}
}

func ensureDirectories(cfg *Config) error {
	dirs := []string{cfg.Storage.ResourceRoot, cfg.Storage.SfxDir}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
