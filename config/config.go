// Package config loads the coordinator daemon's settings: the serial
// port it opens, the HTTP/MQTT surfaces it exposes, and its log level.
// Generalized from taoyao-code-iot-server-cdz's internal/config.Load,
// same viper-backed pattern (YAML/env, env prefix, sane defaults).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SerialConfig describes the ZNP device's serial port.
type SerialConfig struct {
	Port        string        `mapstructure:"port"`
	Baud        int           `mapstructure:"baud"`
	ReadTimeout time.Duration `mapstructure:"readTimeout"`
}

// HTTPConfig describes the observability HTTP surface.
type HTTPConfig struct {
	Addr       string `mapstructure:"addr"`
	MetricsPath string `mapstructure:"metricsPath"`
}

// MQTTConfig describes the optional event bridge.
type MQTTConfig struct {
	Enable      bool   `mapstructure:"enable"`
	BrokerURL   string `mapstructure:"brokerUrl"`
	ClientID    string `mapstructure:"clientId"`
	TopicPrefix string `mapstructure:"topicPrefix"`
}

// LoggingConfig sets the level of the daemon's zerolog logger.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Config is the coordinator daemon's top-level configuration.
type Config struct {
	Serial  SerialConfig  `mapstructure:"serial"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	MQTT    MQTTConfig    `mapstructure:"mqtt"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// Load reads configuration from path (if set), otherwise from znp.yaml
// in . or ./configs (first found), then applies defaults and
// ZNP_-prefixed environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.SetConfigName("znp")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	v.SetEnvPrefix("ZNP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if fmt.Sprintf("%T", err) != fmt.Sprintf("%T", notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("serial.port", "/dev/ttyUSB0")
	v.SetDefault("serial.baud", 115200)
	v.SetDefault("serial.readTimeout", "3s")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.metricsPath", "/metrics")

	v.SetDefault("mqtt.enable", false)
	v.SetDefault("mqtt.brokerUrl", "tcp://localhost:1883")
	v.SetDefault("mqtt.clientId", "znp-coordinatord")
	v.SetDefault("mqtt.topicPrefix", "znp")

	v.SetDefault("logging.level", "info")
}
