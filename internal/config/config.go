package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config quartz-config-server（通道配置加载服务）配置
type Config struct {
	HTTP struct {
		Addr string
	}
	PV struct {
		Prefix      string   // 记录前缀，如 "FDAS:"
		Publishers  []string // 启用的发布后端：redis / mqtt / gateway
		LoadsStream string   // 加载事件流（Redis Stream）
		Sim         bool     // 仿真模式：编译但不对外发布
	}
	DBEnabled bool
	Database  DatabaseConfig
	Redis     struct {
		Addr     string
		Password string
		DB       int
	}
	MQTT    MQTTConfig
	Gateway struct {
		URL            string
		TimeoutSeconds int
	}
	Archive struct {
		Dir string
	}
	Log struct {
		Level  string
		Format string
	}
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// MQTTConfig MQTT配置
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	QoS      byte
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.PV.Prefix = getEnv("PV_PREFIX", "FDAS:")
	cfg.PV.Publishers = splitList(getEnv("PV_PUBLISHERS", "redis"))
	cfg.PV.LoadsStream = getEnv("PV_LOADS_STREAM", "cccr:loads")
	cfg.PV.Sim = getEnv("PV_SIM", "false") == "true"

	// DB 不可用时只关闭加载历史，不影响加载
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "quartz")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)

	// MQTT 发布配置（仅在 PV_PUBLISHERS 含 mqtt 时使用）
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "quartz-config-server")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = byte(parseInt(getEnv("MQTT_QOS", "1"), 1))

	cfg.Gateway.URL = getEnv("GATEWAY_URL", "")
	cfg.Gateway.TimeoutSeconds = parseInt(getEnv("GATEWAY_TIMEOUT_SECONDS", "10"), 10)

	cfg.Archive.Dir = getEnv("ARCHIVE_DIR", "archive")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
