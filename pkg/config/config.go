// Package config loads service configuration files with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	configDir  = "configs"
	exampleDir = "example"
)

// Source is a resolved configuration: file values layered over defaults,
// with environment overrides on top.
type Source struct {
	v *viper.Viper
}

// Unmarshal decodes the whole configuration into out using mapstructure tags.
func (s *Source) Unmarshal(out interface{}) error {
	return s.v.Unmarshal(out)
}

// File returns the path of the config file that was read
func (s *Source) File() string {
	return s.v.ConfigFileUsed()
}

// Load reads configs/<APP_ENV>/<serviceName>.yaml (or the directory in
// CONFIG_PATH), falling back to configs/example. Environment variables
// prefixed with the upper-cased service name override file values, e.g.
// PAYMENT_DATABASE_HOST.
func Load(serviceName string, defaults map[string]interface{}) (*Source, error) {
	v := viper.New()

	v.SetConfigType("yaml")
	v.SetConfigName(serviceName)
	v.SetEnvPrefix(strings.ToUpper(serviceName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Env overrides only apply to keys viper knows about
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	for _, dir := range searchDirs() {
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to load %s config: %w", serviceName, err)
	}

	return &Source{v: v}, nil
}

// searchDirs lists config directories in priority order
func searchDirs() []string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return []string{path}
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	return []string{
		filepath.Join(configDir, env),
		filepath.Join(configDir, exampleDir),
	}
}
