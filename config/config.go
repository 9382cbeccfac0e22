package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
)

type Config struct {
	Database DatabaseConfig `json:"database"`
	Auth     AuthConfig     `json:"auth"`
	Economy  EconomyConfig  `json:"economy"`
	Redis    RedisConfig    `json:"redis"`
	Kafka    KafkaConfig    `json:"kafka"`
}

type DatabaseConfig struct {
	DSN string `json:"dsn"`
}

type AuthConfig struct {
	JWTSecret     string `json:"jwt_secret"`
	TokenExpiry   int    `json:"token_expiry"`   // in hours
	RefreshExpiry int    `json:"refresh_expiry"` // in hours
}

// EconomyConfig 月度结算常量。启动时校验一次，结算服务不再临时读环境变量
type EconomyConfig struct {
	PointsPerCurrency  float64 `json:"points_per_currency"`  // 多少积分兑换 1 货币单位
	DefaultAgencySplit float64 `json:"default_agency_split"` // 公会默认抽成百分比 0-100
}

type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
	// 礼物接口限流：窗口内每用户最多请求数
	GiftRateLimit  int `json:"gift_rate_limit"`
	GiftRateWindow int `json:"gift_rate_window"` // seconds
}

type KafkaConfig struct {
	Brokers  []string `json:"brokers"`
	Username string   `json:"username"`
	Password string   `json:"password"`
	UseTLS   bool     `json:"use_tls"`
	CertFile string   `json:"cert_file"`
	KeyFile  string   `json:"key_file"`
	CAFile   string   `json:"ca_file"`
}

func LoadConfig() (config Config, err error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/config.json"
	}
	file, err := os.Open(path)
	if err != nil {
		return config, err
	}
	defer func(file *os.File) {
		closeErr := file.Close()
		if closeErr != nil {
			log.Printf("Error closing config file: %v", closeErr)
		}
	}(file)
	decoder := json.NewDecoder(file)
	err = decoder.Decode(&config)
	if err != nil {
		return config, err
	}
	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

// Validate 启动即失败，避免结算跑到一半才发现常量缺失
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("config: database.dsn is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("config: auth.jwt_secret is required")
	}
	return c.Economy.Validate()
}

func (e *EconomyConfig) Validate() error {
	if e.PointsPerCurrency <= 0 {
		return fmt.Errorf("config: economy.points_per_currency must be > 0")
	}
	if e.DefaultAgencySplit < 0 || e.DefaultAgencySplit > 100 {
		return fmt.Errorf("config: economy.default_agency_split must be within [0,100]")
	}
	return nil
}
