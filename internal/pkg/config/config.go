package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Features FeaturesConfig `mapstructure:"features"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name     string `mapstructure:"name"`
	Version  string `mapstructure:"version"`
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	ListenAddr    string `mapstructure:"listen_addr"`
	SessionTTLMin int    `mapstructure:"session_ttl_min"`
}

// AuthConfig 登录凭证。单用户应用，只配一组用户名密码。
// 优先使用 password_bcrypt；两者都为空时放开登录门禁（仅限本机部署）。
type AuthConfig struct {
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	PasswordBcrypt string `mapstructure:"password_bcrypt"`
}

// StorageConfig 存储配置
type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// FeaturesConfig 功能开关。周记始终开启，其余三块可独立关闭。
type FeaturesConfig struct {
	Goals       bool `mapstructure:"goals"`
	Reflections bool `mapstructure:"reflections"`
	DailyScores bool `mapstructure:"daily_scores"`
}

// Load 加载配置文件
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// 默认查找路径
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// 支持环境变量，如 WEEKLOG_AUTH_PASSWORD
	v.SetEnvPrefix("WEEKLOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			slog.Warn("配置文件未找到，使用默认配置")
		} else {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	} else {
		slog.Info("加载配置文件", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// 处理环境变量占位符与相对路径
	cfg.Auth.Password = expandEnv(cfg.Auth.Password)
	cfg.Auth.PasswordBcrypt = expandEnv(cfg.Auth.PasswordBcrypt)
	cfg.Storage.DBPath = resolvePath(cfg.Storage.DBPath)

	return &cfg, nil
}

// Default 默认配置，首次启动时写成起始配置文件
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:     "weeklog",
			Version:  "0.3.0",
			LogLevel: "info",
		},
		Server: ServerConfig{
			ListenAddr:    "127.0.0.1:8760",
			SessionTTLMin: 7 * 24 * 60,
		},
		Auth: AuthConfig{
			Username: "admin",
		},
		Storage: StorageConfig{
			DBPath: "./data/weeklog.db",
		},
		Features: FeaturesConfig{
			Goals:       true,
			Reflections: true,
			DailyScores: true,
		},
	}
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "weeklog")
	v.SetDefault("app.version", "0.3.0")
	v.SetDefault("app.log_level", "info")

	// Server
	v.SetDefault("server.listen_addr", "127.0.0.1:8760")
	v.SetDefault("server.session_ttl_min", 7*24*60)

	// Auth
	v.SetDefault("auth.username", "admin")

	// Storage
	v.SetDefault("storage.db_path", "./data/weeklog.db")

	// Features
	v.SetDefault("features.goals", true)
	v.SetDefault("features.reflections", true)
	v.SetDefault("features.daily_scores", true)
}

// expandEnv 展开环境变量占位符 ${VAR}
func expandEnv(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		envVar := s[2 : len(s)-1]
		return os.Getenv(envVar)
	}
	return s
}

// resolvePath 解析相对路径为绝对路径
func resolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}

	exe, err := os.Executable()
	if err != nil {
		return path
	}

	exeDir := filepath.Dir(exe)
	return filepath.Join(exeDir, path)
}

// SetupLogger 根据配置设置日志级别
func SetupLogger(level string) {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
