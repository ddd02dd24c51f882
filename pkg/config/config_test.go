package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Server struct {
		Port int `mapstructure:"port"`
	} `mapstructure:"server"`
	Payment struct {
		Currency     string        `mapstructure:"currency"`
		LocalTimeout time.Duration `mapstructure:"local_timeout"`
		GSTRate      string        `mapstructure:"gst_rate"`
	} `mapstructure:"payment"`
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	yaml := "server:\n  port: 8080\npayment:\n  currency: INR\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "payment.yaml"), []byte(yaml), 0o600))

	t.Setenv("CONFIG_PATH", dir)
	t.Setenv("PAYMENT_SERVER_PORT", "9000")
	t.Setenv("PAYMENT_PAYMENT_GST_RATE", "0.12")

	source, err := Load("payment", map[string]interface{}{
		"payment.local_timeout": "10m",
		"payment.gst_rate":      "0.05",
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "payment.yaml"), source.File())

	var cfg testConfig
	require.NoError(t, source.Unmarshal(&cfg))
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "INR", cfg.Payment.Currency)
	assert.Equal(t, 10*time.Minute, cfg.Payment.LocalTimeout)
	assert.Equal(t, "0.12", cfg.Payment.GSTRate)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", t.TempDir())

	_, err := Load("payment", nil)
	assert.Error(t, err)
}
