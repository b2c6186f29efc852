package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	ImageExt         []string `mapstructure:"image_extensions"`
	VideoExt         []string `mapstructure:"video_extensions"`
	ArchiveExt       []string `mapstructure:"archive_extensions"`
	ThumbExt         string   `mapstructure:"thumbnail_extension"`
	LogName          string   `mapstructure:"log_name"`
	WorkerMultiplier int      `mapstructure:"worker_multiplier"`
}

func LoadConfig() (*Config, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to find user config dir: %w", err)
	}

	viper.SetConfigName("mediaorg")
	viper.SetConfigType("toml")
	viper.AddConfigPath(filepath.Join(configDir, "mediaorg"))

	// Set defaults:
	viper.SetDefault("image_extensions", []string{".jpg", ".jpeg", ".png", ".heic", ".heif", ".webp"})
	viper.SetDefault("video_extensions", []string{".mp4", ".mov", ".mpg", ".avi", ".mts", ".m2ts", ".3gp", ".3g2", ".wmv"})
	viper.SetDefault("archive_extensions", []string{".zip", ".tar", ".gz", ".tgz", ".bz2", ".xz"})
	viper.SetDefault("thumbnail_extension", ".thm")
	viper.SetDefault("log_name", "media_organizer.log")
	viper.SetDefault("worker_multiplier", 2)

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found; that's OK, just use defaults
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) IsImage(ext string) bool {
	return containsExt(c.ImageExt, ext)
}

func (c *Config) IsVideo(ext string) bool {
	return containsExt(c.VideoExt, ext)
}

func (c *Config) IsArchive(ext string) bool {
	return containsExt(c.ArchiveExt, ext)
}

// CaptureTag returns the embedded tag that names the capture moment for the
// given extension: DateTimeOriginal for images, CreateDate for videos.
func (c *Config) CaptureTag(ext string) string {
	if c.IsVideo(ext) {
		return TagVideoCreated
	}
	return TagImageTaken
}

// DefaultWorkers sizes the worker pool from available hardware concurrency.
func (c *Config) DefaultWorkers() int {
	m := c.WorkerMultiplier
	if m < 1 {
		m = 1
	}
	return m * runtime.NumCPU()
}

func containsExt(exts []string, ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
