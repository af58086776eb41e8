// Package settings implements the process-wide persistent settings record
// described in spec section 6: a JSON key-value file loaded at startup and
// written through on every mutation, guarded by a single accessor rather
// than exposed as a global mutable pointer.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Values holds every recognised persistent key. Unknown keys present in the
// file on disk are preserved verbatim by viper and written back on every
// write (Load and Mutate), but are not surfaced here.
type Values struct {
	AsyncSleepRefreshRate      time.Duration `mapstructure:"async_sleep_refresh_rate"`
	MaxAbsoluteVolume          float64       `mapstructure:"max_absolute_volume"`
	HundredPercentVolumeValue  float64       `mapstructure:"hundred_percent_volume_value"`
	NormalQuietHoursStartTime  float64       `mapstructure:"normal_quiet_hours_start_time"`
	WeekendQuietHoursStartTime float64       `mapstructure:"weekend_quiet_hours_start_time"`
	QuietHoursEndTime          float64       `mapstructure:"quiet_hours_end_time"`
	FloodControlBufferTime     time.Duration `mapstructure:"flood_control_buffer_time"`
	MaxFloodControlRetries     int           `mapstructure:"max_telegram_flood_control_retries"`
	TimeOutBufferTime          time.Duration `mapstructure:"telegram_time_out_buffer_time"`
	MaxTimeOutRetries          int           `mapstructure:"max_telegram_time_out_retries"`
	RegisteredPrimaryChatID    int64         `mapstructure:"registered_primary_chat_id"`
	OwnerID                    int64         `mapstructure:"owner_id"`
	ComptrollerIDs             []int64       `mapstructure:"comptroller_ids"`
	SfxPath                    string        `mapstructure:"sfx_path"`
	TokenFilePaths             []string      `mapstructure:"token_file_paths"`
}

func defaults() Values {
	return Values{
		AsyncSleepRefreshRate:      250 * time.Millisecond,
		MaxAbsoluteVolume:          2.0,
		HundredPercentVolumeValue:  1.0,
		NormalQuietHoursStartTime:  23,
		WeekendQuietHoursStartTime: 1,
		QuietHoursEndTime:          9,
		FloodControlBufferTime:     time.Second,
		MaxFloodControlRetries:     4,
		TimeOutBufferTime:          time.Second,
		MaxTimeOutRetries:          4,
		ComptrollerIDs:             nil,
	}
}

// Store is the guarded accessor: every read and write goes through its
// mutex, and every write is flushed to disk before it returns.
type Store struct {
	mu   sync.RWMutex
	v    *viper.Viper
	vals Values
	path string
}

// Load reads the JSON settings file at path, creating it with defaults if
// absent. Unknown keys already present in the file are kept in the
// underlying viper instance and rewritten unchanged by Save.
func Load(path string) (*Store, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	d := defaults()
	v.SetDefault("async_sleep_refresh_rate", d.AsyncSleepRefreshRate)
	v.SetDefault("max_absolute_volume", d.MaxAbsoluteVolume)
	v.SetDefault("hundred_percent_volume_value", d.HundredPercentVolumeValue)
	v.SetDefault("normal_quiet_hours_start_time", d.NormalQuietHoursStartTime)
	v.SetDefault("weekend_quiet_hours_start_time", d.WeekendQuietHoursStartTime)
	v.SetDefault("quiet_hours_end_time", d.QuietHoursEndTime)
	v.SetDefault("flood_control_buffer_time", d.FloodControlBufferTime)
	v.SetDefault("max_telegram_flood_control_retries", d.MaxFloodControlRetries)
	v.SetDefault("telegram_time_out_buffer_time", d.TimeOutBufferTime)
	v.SetDefault("max_telegram_time_out_retries", d.MaxTimeOutRetries)

	if err := v.ReadInConfig(); err != nil {
		// With SetConfigFile, viper reports a missing file as a plain
		// fs.ErrNotExist rather than ConfigFileNotFoundError.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read settings file: %w", err)
		}
	}

	var vals Values
	if err := v.Unmarshal(&vals); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}

	s := &Store{v: v, vals: vals, path: path}
	if err := s.save(); err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns a copy of the current settings.
func (s *Store) Get() Values {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vals
}

// Mutate applies fn to a copy of the settings, persists the result, and
// only then swaps it into the store — a failed write leaves the in-memory
// value unchanged.
func (s *Store) Mutate(fn func(*Values)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.vals
	fn(&next)

	s.v.Set("async_sleep_refresh_rate", next.AsyncSleepRefreshRate)
	s.v.Set("max_absolute_volume", next.MaxAbsoluteVolume)
	s.v.Set("hundred_percent_volume_value", next.HundredPercentVolumeValue)
	s.v.Set("normal_quiet_hours_start_time", next.NormalQuietHoursStartTime)
	s.v.Set("weekend_quiet_hours_start_time", next.WeekendQuietHoursStartTime)
	s.v.Set("quiet_hours_end_time", next.QuietHoursEndTime)
	s.v.Set("flood_control_buffer_time", next.FloodControlBufferTime)
	s.v.Set("max_telegram_flood_control_retries", next.MaxFloodControlRetries)
	s.v.Set("telegram_time_out_buffer_time", next.TimeOutBufferTime)
	s.v.Set("max_telegram_time_out_retries", next.MaxTimeOutRetries)
	s.v.Set("registered_primary_chat_id", next.RegisteredPrimaryChatID)
	s.v.Set("owner_id", next.OwnerID)
	s.v.Set("comptroller_ids", next.ComptrollerIDs)
	s.v.Set("sfx_path", next.SfxPath)
	s.v.Set("token_file_paths", next.TokenFilePaths)

	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	s.vals = next
	return nil
}

func (s *Store) save() error {
	return s.v.WriteConfigAs(s.path)
}
