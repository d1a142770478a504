package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
)

// buildDatabaseURL 构建 MongoDB 连接字符串
func buildDatabaseURL(db DatabaseConfig) string {
	if db.URI != "" {
		return db.URI
	}
	if db.User != "" && db.Password != "" {
		return fmt.Sprintf("mongodb://%s:%s@%s:%d", db.User, db.Password, db.Host, db.Port)
	}
	return fmt.Sprintf("mongodb://%s:%d", db.Host, db.Port)
}

// detectDatabaseDriver 检测数据库驱动类型
// 优先级：YAML driver 字段 > DATABASE_URL 前缀自动检测 > 默认 mongodb
func detectDatabaseDriver(yamlDriver, databaseURL string) string {
	if d := strings.ToLower(yamlDriver); d == DriverMongoDB || d == DriverMemory {
		return d
	}
	if strings.HasPrefix(databaseURL, "memory:") {
		return DriverMemory
	}
	return DriverMongoDB
}

// buildRedisURL 构建 Redis 连接字符串
// 如果 URL 字段非空，直接使用；否则从 host/port/db/password 构建
func buildRedisURL(redis RedisConfig) string {
	if redis.URL != "" {
		return redis.URL
	}
	if redis.Password != "" {
		return fmt.Sprintf("redis://:%s@%s:%d/%d", redis.Password, redis.Host, redis.Port, redis.DB)
	}
	return fmt.Sprintf("redis://%s:%d/%d", redis.Host, redis.Port, redis.DB)
}

var passwordPattern = regexp.MustCompile(`(://[^:/@]*:)([^@]+)(@)`)

// maskPassword 隐藏密码
func maskPassword(url string) string {
	return passwordPattern.ReplaceAllString(url, "${1}***${3}")
}

// parseEnv 解析环境字符串
func parseEnv(env string) Environment {
	switch strings.ToLower(env) {
	case "test":
		return EnvTest
	case "prod", "production":
		return EnvProduction
	default:
		return EnvDevelopment
	}
}

// firstEnv 返回第一个非空的环境变量值
func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// getEnv 获取环境变量，支持默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// IsTest 是否为测试环境
func (c *Config) IsTest() bool {
	return c.Env == EnvTest
}

// AccessTokenDuration 解析 access token 有效期，非法值回退到默认值
func (a AuthConfig) AccessTokenDuration() time.Duration {
	d, err := time.ParseDuration(a.AccessTokenTTL)
	if err != nil || d <= 0 {
		return DefaultAccessTokenTTL
	}
	return d
}

// String 返回配置摘要（隐藏密码）
func (c *Config) String() string {
	minio := "disabled"
	if c.MinIO.Enabled() {
		minio = c.MinIO.Endpoint
	}
	redis := "disabled"
	if c.RedisEnabled {
		redis = maskPassword(c.RedisURL)
	}
	return fmt.Sprintf("Config{Env: %s, Driver: %s, DB: %s/%s, Redis: %s, MinIO: %s, Port: %s}",
		c.Env, c.DatabaseDriver, maskPassword(c.DatabaseURL), c.DatabaseDBName, redis, minio, c.APIPort)
}
