package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Vehicle      VehicleConfig      `mapstructure:"vehicle"`
	Log          LogConfig          `mapstructure:"log"`
	MessageQueue MessageQueueConfig `mapstructure:"message_queue"`
}

// VehicleConfig 车辆 WiFi 接入点参数
type VehicleConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	MAC          string        `mapstructure:"mac"`
	MY18         bool          `mapstructure:"my18"`
	PingInterval time.Duration `mapstructure:"ping_interval"`
}

// Address returns host:port for dialing.
func (v VehicleConfig) Address() string {
	return net.JoinHostPort(v.Host, strconv.Itoa(v.Port))
}

type MessageQueueConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Type     string         `mapstructure:"type"`
	Workers  int            `mapstructure:"workers"`
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
}

type RabbitMQConfig struct {
	URL         string `mapstructure:"url"`
	VirtualHost string `mapstructure:"virtual_host"`
	Exchange    string `mapstructure:"exchange"`
	RoutingKey  string `mapstructure:"routing_key"`
	QueueName   string `mapstructure:"queue_name"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("vehicle.host", "192.168.8.46")
	v.SetDefault("vehicle.port", 8080)
	v.SetDefault("vehicle.mac", "24:0d:c2:c2:91:85")
	v.SetDefault("vehicle.ping_interval", 3*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.filename", "logs/phev.log")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age", 30)
	v.SetDefault("message_queue.type", "kafka")
	v.SetDefault("message_queue.workers", 4)
	v.SetDefault("message_queue.kafka.topic", "phev_events")
}

// LoadConfig reads path (if non-empty) and overlays PHEV_* environment
// variables, e.g. PHEV_VEHICLE_HOST.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PHEV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// ParseMAC parses the colon separated hardware address sent in the login burst.
func ParseMAC(s string) ([6]byte, error) {
	var mac [6]byte
	hw, err := net.ParseMAC(s)
	if err != nil {
		return mac, fmt.Errorf("invalid mac %q: %w", s, err)
	}
	if len(hw) != len(mac) {
		return mac, fmt.Errorf("invalid mac %q: want 6 bytes, got %d", s, len(hw))
	}
	copy(mac[:], hw)
	return mac, nil
}
