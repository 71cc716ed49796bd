// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 客户端配置结构体
type Config struct {
	Gateway    GatewayConfig    `mapstructure:"gateway"`
	Retry      RetryConfig      `mapstructure:"retry"`
	Metadata   MetadataConfig   `mapstructure:"metadata"`
	Log        LogConfig        `mapstructure:"log"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// GatewayConfig 网关连接配置
type GatewayConfig struct {
	BaseURL string  `mapstructure:"base_url"`
	Timeout string  `mapstructure:"timeout"` // 单次请求超时，如 "30s"，空则默认 30s
	QPS     float64 `mapstructure:"qps"`     // 客户端限流，<=0 表示不限
	Burst   int     `mapstructure:"burst"`
}

// RetryConfig 重试策略配置
type RetryConfig struct {
	MaxAttempts int    `mapstructure:"max_attempts"` // 计入预算的最大尝试次数（不含首次），<=0 表示 3
	Backoff     string `mapstructure:"backoff"`      // 重试前等待时间，如 "100ms"
}

// MetadataConfig 集合与分区路由元数据缓存配置
type MetadataConfig struct {
	SnapshotType string `mapstructure:"snapshot_type"` // none | redis
	RedisAddr    string `mapstructure:"redis_addr"`
	RedisDB      int    `mapstructure:"redis_db"`
	SnapshotTTL  string `mapstructure:"snapshot_ttl"` // 快照过期时间，如 "5m"
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// MonitoringConfig 监控配置
type MonitoringConfig struct {
	Tracing TracingConfig `mapstructure:"tracing"`
}

// TracingConfig 链路追踪配置
type TracingConfig struct {
	Enable         bool   `mapstructure:"enable"`
	ServiceName    string `mapstructure:"service_name"`
	ExportEndpoint string `mapstructure:"export_endpoint"`
	Insecure       bool   `mapstructure:"insecure"`
}

// LoadConfig 从文件加载配置，环境变量 DOCGRID_* 可覆盖
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetEnvPrefix("DOCGRID")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("无法读取配置文件: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("无法解析配置文件: %w", err)
	}
	return &config, nil
}

// DefaultConfig 无配置文件时的默认配置
func DefaultConfig() *Config {
	v := viper.New()
	setDefaults(v)
	var config Config
	_ = v.Unmarshal(&config)
	return &config
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("gateway.base_url", "http://localhost:8080")
	v.SetDefault("gateway.timeout", "30s")
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.backoff", "100ms")
	v.SetDefault("metadata.snapshot_type", "none")
	v.SetDefault("metadata.snapshot_ttl", "5m")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// ParseDuration 解析时长字符串，无效或空时返回 defaultVal
func ParseDuration(s string, defaultVal time.Duration) time.Duration {
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}
