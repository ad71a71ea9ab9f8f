package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// ErrLoadConfig indicates a failure to read or parse the YAML config file.
var ErrLoadConfig = errors.New("config load failed")

// FileConfig is the optional YAML configuration file (--config). Flags and
// environment variables take precedence over file values; the CLI only
// applies file fields whose flags were left at their defaults.
type FileConfig struct {
	GitHubToken    string        `mapstructure:"github_token"`
	DropboxToken   string        `mapstructure:"dropbox_token"`
	Folder         string        `mapstructure:"folder"`
	Exclude        []string      `mapstructure:"exclude"`
	IncludePrivate *bool         `mapstructure:"include_private"`
	Concurrency    int           `mapstructure:"concurrency"`
	CloneTimeout   time.Duration `mapstructure:"clone_timeout"`
}

// LoadFile reads the YAML file at path into a FileConfig.
func LoadFile(path string) (*FileConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrLoadConfig, path, err)
	}

	var fc FileConfig
	if err := v.UnmarshalExact(&fc); err != nil {
		return nil, fmt.Errorf("%w: unmarshal %s: %v", ErrLoadConfig, path, err)
	}
	return &fc, nil
}
