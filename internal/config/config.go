package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Hans-Rafael/glup-water-reminder/common/config"
)

// 通知网关类型
const (
	GatewayStream = "stream"
	GatewayMQTT   = "mqtt"
	GatewayHTTP   = "http"
)

// Config 饮水提醒服务配置
type Config struct {
	UserID string

	Database config.DatabaseConfig
	Redis    config.RedisConfig
	MQTT     config.MQTTConfig

	// DBEnabled 为 false 时饮水记录只保存在内存中
	DBEnabled   bool
	MQTTEnabled bool

	Notify struct {
		Gateway      string // stream | mqtt | http
		Stream       string // stream 网关写入的 Redis Stream
		PushRelayURL string // http 网关地址
	}

	Actions struct {
		Stream   string
		Group    string
		Consumer string
	}

	Reminder struct {
		RefreshInterval time.Duration // 清醒窗口重新评估周期
		HorizonDays     int
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.UserID = getEnv("USER_ID", "")
	if cfg.UserID == "" {
		return nil, fmt.Errorf("USER_ID environment variable is required")
	}

	cfg.Database.Host = "localhost"
	cfg.Database.Port = 5432
	cfg.Database.User = "postgres"
	cfg.Database.Password = "postgres"
	cfg.Database.Database = "glup"
	cfg.Database.SSLMode = "disable"
	cfg.Database.MaxConns = 5
	cfg.Database.MaxIdle = 2
	cfg.Database.LoadFromEnv("DB")
	cfg.DBEnabled = parseBool(getEnv("DB_ENABLED", "false"), false)

	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.LoadFromEnv("REDIS")

	cfg.MQTT.Broker = "tcp://localhost:1883"
	cfg.MQTT.ClientID = "glup-reminder-" + cfg.UserID
	cfg.MQTT.QoS = 1
	cfg.MQTT.LoadFromEnv("MQTT")
	cfg.MQTTEnabled = parseBool(getEnv("MQTT_ENABLED", "false"), false)

	cfg.Notify.Gateway = strings.ToLower(getEnv("NOTIFY_GATEWAY", GatewayStream))
	cfg.Notify.Stream = getEnv("NOTIFY_STREAM", "glup:notifications")
	cfg.Notify.PushRelayURL = getEnv("PUSH_RELAY_URL", "")

	cfg.Actions.Stream = getEnv("ACTION_STREAM", "glup:"+cfg.UserID+":actions")
	cfg.Actions.Group = getEnv("ACTION_GROUP", "glup-reminder")
	cfg.Actions.Consumer = getEnv("ACTION_CONSUMER", hostname())

	refresh := parseInt(getEnv("REFRESH_INTERVAL", "30"), 30)
	if refresh <= 0 {
		refresh = 30
	}
	cfg.Reminder.RefreshInterval = time.Duration(refresh) * time.Second
	cfg.Reminder.HorizonDays = parseInt(getEnv("HORIZON_DAYS", "7"), 7)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Notify.Gateway {
	case GatewayStream:
	case GatewayMQTT:
		if !c.MQTTEnabled {
			return fmt.Errorf("NOTIFY_GATEWAY=mqtt requires MQTT_ENABLED=true")
		}
	case GatewayHTTP:
		if c.Notify.PushRelayURL == "" {
			return fmt.Errorf("NOTIFY_GATEWAY=http requires PUSH_RELAY_URL")
		}
	default:
		return fmt.Errorf("unknown NOTIFY_GATEWAY %q", c.Notify.Gateway)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(s string, defaultValue int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return v
}

func parseBool(s string, defaultValue bool) bool {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return defaultValue
	}
	return v
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "glup-reminder"
	}
	return h
}
