// Package config provides configuration types, defaults, loading and
// persistence for the meethost CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/koscakluka/meethost/core/conference"
	"github.com/spf13/viper"
)

const EnvPrefix = "MEETHOST"

type Config struct {
	Engine            EngineConfig     `mapstructure:"engine" yaml:"engine"`
	Serve             ServeConfig      `mapstructure:"serve" yaml:"serve"`
	Conference        ConferenceConfig `mapstructure:"conference" yaml:"conference"`
	ConnectionService bool             `mapstructure:"connection_service" yaml:"connection_service"`
	Trace             bool             `mapstructure:"trace" yaml:"trace"`
}

// EngineConfig locates the conferencing engine. Listen is used by the
// simulated engine only.
type EngineConfig struct {
	URL    string `mapstructure:"url" yaml:"url"`
	Listen string `mapstructure:"listen" yaml:"listen"`
}

type ServeConfig struct {
	Listen string `mapstructure:"listen" yaml:"listen"`
}

// ConferenceConfig holds the defaults applied to every join.
type ConferenceConfig struct {
	ServerURL    string         `mapstructure:"server_url" yaml:"server_url,omitempty"`
	DisplayName  string         `mapstructure:"display_name" yaml:"display_name,omitempty"`
	Email        string         `mapstructure:"email" yaml:"email,omitempty"`
	AudioMuted   bool           `mapstructure:"audio_muted" yaml:"audio_muted"`
	VideoMuted   bool           `mapstructure:"video_muted" yaml:"video_muted"`
	FeatureFlags map[string]any `mapstructure:"feature_flags" yaml:"feature_flags,omitempty"`
}

func Defaults() Config {
	return Config{
		Engine: EngineConfig{
			URL:    "ws://127.0.0.1:8765/engine",
			Listen: "127.0.0.1:8765",
		},
		Serve: ServeConfig{
			Listen: "127.0.0.1:8080",
		},
		Conference: ConferenceConfig{
			ServerURL: "https://meet.juncto.org",
		},
	}
}

// Options turns the conference defaults into join options.
func (c ConferenceConfig) Options() conference.Options {
	b := conference.NewBuilder().
		SetAudioMuted(c.AudioMuted).
		SetVideoMuted(c.VideoMuted)
	if c.ServerURL != "" {
		b.SetServerURL(c.ServerURL)
	}
	if c.DisplayName != "" || c.Email != "" {
		b.SetUserInfo(conference.UserInfo{DisplayName: c.DisplayName, Email: c.Email})
	}
	for flag, value := range c.FeatureFlags {
		b.SetFeatureFlag(flag, value)
	}
	return b.Build()
}

// DefaultPath is ~/.config/meethost/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".meethost", "config.yaml")
	}
	return filepath.Join(home, ".config", "meethost", "config.yaml")
}

// Load reads configFile, or the default path when it is empty, on top of the
// defaults. MEETHOST_* environment variables override both; nested keys use
// underscores (MEETHOST_ENGINE_URL). A missing default file is not an error.
func Load(v *viper.Viper, configFile string) (Config, error) {
	setDefaults(v, Defaults())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(filepath.Dir(DefaultPath()))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, defaults Config) {
	v.SetDefault("engine.url", defaults.Engine.URL)
	v.SetDefault("engine.listen", defaults.Engine.Listen)
	v.SetDefault("serve.listen", defaults.Serve.Listen)
	v.SetDefault("conference.server_url", defaults.Conference.ServerURL)
	v.SetDefault("conference.display_name", defaults.Conference.DisplayName)
	v.SetDefault("conference.email", defaults.Conference.Email)
	v.SetDefault("conference.audio_muted", defaults.Conference.AudioMuted)
	v.SetDefault("conference.video_muted", defaults.Conference.VideoMuted)
	v.SetDefault("connection_service", defaults.ConnectionService)
	v.SetDefault("trace", defaults.Trace)
}
