package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// userConfigDir allows tests to point the config search somewhere harmless.
var userConfigDir = os.UserConfigDir

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("format", "text")
	v.SetDefault("color", "auto")
	v.SetDefault("exit_code", false)
	v.SetDefault("metrics_file", "")
	v.SetDefault("sections", []string{})
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "auto")
	return v
}

// initConfig loads cfgFile, or track/config.yaml from the user config
// directory when present, and layers TRACK_* environment variables on top.
func initConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if dir, err := userConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "track"))
		}
	}

	v.SetEnvPrefix("TRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}
