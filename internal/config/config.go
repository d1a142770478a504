package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load 加载配置
//  1. 加载 .env.{env}（凭据 + APP_ENV）
//  2. 根据 APP_ENV 加载 {env}.yaml
//  3. 环境变量覆盖 YAML，构建最终配置
func Load() *Config {
	env := parseEnv(getEnv("APP_ENV", "dev"))
	loadEnvFiles(env)
	// .env 中可能设置了 APP_ENV
	env = parseEnv(getEnv("APP_ENV", string(env)))

	yamlCfg := loadYAMLConfig(env)
	applyEnvOverrides(&yamlCfg.YAMLConfig)

	cfg := &Config{
		Env:            env,
		DatabaseDriver: detectDatabaseDriver(yamlCfg.Database.Driver, os.Getenv("DATABASE_URL")),
		DatabaseURL:    getEnv("DATABASE_URL", buildDatabaseURL(yamlCfg.Database)),
		DatabaseDBName: yamlCfg.Database.Name,
		RedisEnabled:   yamlCfg.Redis.Enabled,
		RedisURL:       buildRedisURL(yamlCfg.Redis),
		APIPort:        yamlCfg.APIServer.Port,
		Auth:           yamlCfg.Auth,
		MinIO:          yamlCfg.MinIO,
		ConfigFilePath: yamlCfg.loadedFrom,
	}

	if cfg.Auth.JWTSecret == "" {
		if env == EnvProduction {
			log.Printf("[config] WARNING: JWT_SECRET is not set in production")
		}
		cfg.Auth.JWTSecret = "content-platform-dev-secret"
	}

	return cfg
}

// defaultYAMLConfig 代码默认值
func defaultYAMLConfig() YAMLConfig {
	return YAMLConfig{
		APIServer: APIServerConfig{Port: "5000"},
		Database:  DatabaseConfig{Driver: DriverMongoDB, Host: "localhost", Port: 27017, Name: "content_platform"},
		Redis:     RedisConfig{Host: "localhost", Port: 6379, DB: 0},
		MinIO:     MinIOConfig{Bucket: "content-platform"},
		Auth:      AuthConfig{AccessTokenTTL: DefaultAccessTokenTTL.String()},
	}
}

// loadYAMLConfig 加载 YAML 配置文件
// 加载顺序：默认值 → {env}.yaml
func loadYAMLConfig(env Environment) *yamlConfigInternal {
	cfg := &yamlConfigInternal{YAMLConfig: defaultYAMLConfig()}

	filename := fmt.Sprintf("%s.yaml", env)
	for _, base := range effectiveConfigPaths() {
		path := filepath.Join(base, filename)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, &cfg.YAMLConfig); err != nil {
			log.Printf("[config] Failed to parse %s: %v", path, err)
			continue
		}
		cfg.loadedFrom = path
		break
	}

	return cfg
}

// applyEnvOverrides 环境变量覆盖 YAML 配置，凭据只从环境变量读取
func applyEnvOverrides(cfg *YAMLConfig) {
	if v := firstEnv("API_PORT", "PORT"); v != "" {
		cfg.APIServer.Port = v
	}
	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := firstEnv("MONGO_URI", "MONGODB_URI"); v != "" {
		cfg.Database.URI = v
	}
	if v := os.Getenv("MONGO_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	cfg.Database.User = getEnv("MONGO_ROOT_USER", cfg.Database.User)
	cfg.Database.Password = os.Getenv("MONGO_ROOT_PASSWORD")

	if v := os.Getenv("REDIS_ENABLED"); v != "" {
		cfg.Redis.Enabled = parseBool(v)
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
		cfg.Redis.Enabled = true
	}
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")

	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	cfg.MinIO.AccessKey = os.Getenv("MINIO_ROOT_USER")
	cfg.MinIO.SecretKey = os.Getenv("MINIO_ROOT_PASSWORD")

	if v := os.Getenv("ACCESS_TOKEN_TTL"); v != "" {
		cfg.Auth.AccessTokenTTL = v
	}
	if v := os.Getenv("COOKIE_SECURE"); v != "" {
		cfg.Auth.CookieSecure = parseBool(v)
	}
	cfg.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	cfg.Auth.AdminUsername = os.Getenv("ADMIN_USERNAME")
	cfg.Auth.AdminPassword = os.Getenv("ADMIN_PASSWORD")
	cfg.Auth.FrontendAPIKey = os.Getenv("FRONTEND_API_KEY")
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
