// internal/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultProvider   = "google"
	DefaultTextModel  = "gemini-2.5-flash"
	DefaultImageModel = "imagen-4.0-generate-001"
)

// 当前配置的单例实例
var (
	currentConfig *AppConfig
	configMutex   sync.RWMutex
	configFile    string
)

// AppConfig 包含应用程序的所有配置
type AppConfig struct {
	// 基础配置
	Port        string `json:"port"`
	DataDir     string `json:"data_dir"`
	LogDir      string `json:"log_dir"`
	DebugMode   bool   `json:"debug_mode"`
	LogLevel    string `json:"log_level"`
	SaveExports bool   `json:"save_exports"`

	// 单次生成请求的超时（秒），0 表示不限制
	RequestTimeoutSeconds int `json:"request_timeout_seconds"`

	// 生成后端配置
	LLMProvider string            `json:"llm_provider"`
	LLMConfig   map[string]string `json:"llm_config"`
}

// RequestTimeout 返回生成请求的超时
func (c *AppConfig) RequestTimeout() time.Duration {
	if c.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// Config 存储从环境变量读取的基础配置
type Config struct {
	Port                  string
	APIKey                string
	TextModel             string
	ImageModel            string
	DataDir               string
	LogDir                string
	DebugMode             bool
	LogLevel              string
	SaveExports           bool
	RequestTimeoutSeconds int
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	// .env 文件可选
	_ = godotenv.Load()

	config := &Config{
		Port:                  getEnv("PORT", "8080"),
		APIKey:                getEnv("GEMINI_API_KEY", getEnv("API_KEY", "")),
		TextModel:             getEnv("TEXT_MODEL", DefaultTextModel),
		ImageModel:            getEnv("IMAGE_MODEL", DefaultImageModel),
		DataDir:               getEnvPath("DATA_DIR", "data"),
		LogDir:                getEnvPath("LOG_DIR", "logs"),
		DebugMode:             getEnvBool("DEBUG_MODE", false),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		SaveExports:           getEnvBool("SAVE_EXPORTS", false),
		RequestTimeoutSeconds: getEnvInt("REQUEST_TIMEOUT_SECONDS", 120),
	}

	if config.APIKey == "" {
		// 只记录警告，不返回错误
		log.Println("警告: 未设置 GEMINI_API_KEY，需要通过 /api/llm/config 配置后才能生成内容")
	}

	return config, nil
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvPath 获取环境变量表示的路径，并确保目录存在
func getEnvPath(key, defaultValue string) string {
	path := getEnv(key, defaultValue)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0755); err != nil {
			fmt.Printf("警告: 创建目录失败 %s: %v\n", path, err)
		}
	}

	return path
}

// getEnvBool 获取布尔类型环境变量
func getEnvBool(key string, defaultValue bool) bool {
	value := strings.ToLower(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt 获取整数类型环境变量，无法解析时使用默认值
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("警告: %s=%q 不是整数，使用默认值 %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func fromBase(base *Config) *AppConfig {
	return &AppConfig{
		Port:                  base.Port,
		DataDir:               base.DataDir,
		LogDir:                base.LogDir,
		DebugMode:             base.DebugMode,
		LogLevel:              base.LogLevel,
		SaveExports:           base.SaveExports,
		RequestTimeoutSeconds: base.RequestTimeoutSeconds,
		LLMProvider:           DefaultProvider,
		LLMConfig: map[string]string{
			"api_key":     base.APIKey,
			"text_model":  base.TextModel,
			"image_model": base.ImageModel,
		},
	}
}

// InitConfig 初始化配置管理器
func InitConfig(dataDir string) error {
	configFile = filepath.Join(dataDir, "config.json")

	baseConfig, err := Load()
	if err != nil {
		return err
	}

	configMutex.Lock()
	defer configMutex.Unlock()

	currentConfig = fromBase(baseConfig)

	// 文件中保存的后端设置优先，基础配置始终使用环境变量
	if data, err := os.ReadFile(configFile); err == nil {
		var saved AppConfig
		if json.Unmarshal(data, &saved) == nil && saved.LLMProvider != "" {
			currentConfig.LLMProvider = saved.LLMProvider
			merged := make(map[string]string, len(currentConfig.LLMConfig))
			for k, v := range currentConfig.LLMConfig {
				merged[k] = v
			}
			for k, v := range saved.LLMConfig {
				if v != "" {
					merged[k] = v
				}
			}
			currentConfig.LLMConfig = merged
		}
	}

	return saveLocked()
}

// GetCurrentConfig 返回当前配置的副本
func GetCurrentConfig() *AppConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()

	if currentConfig == nil {
		baseConfig, _ := Load()
		return fromBase(baseConfig)
	}

	configCopy := *currentConfig
	configCopy.LLMConfig = make(map[string]string, len(currentConfig.LLMConfig))
	for k, v := range currentConfig.LLMConfig {
		configCopy.LLMConfig[k] = v
	}
	return &configCopy
}

// UpdateLLMConfig 更新生成后端配置并持久化
func UpdateLLMConfig(provider string, config map[string]string) error {
	configMutex.Lock()
	defer configMutex.Unlock()

	if currentConfig == nil {
		return fmt.Errorf("配置系统未初始化")
	}

	currentConfig.LLMProvider = provider
	currentConfig.LLMConfig = make(map[string]string, len(config))
	for k, v := range config {
		currentConfig.LLMConfig[k] = v
	}

	return saveLocked()
}

func saveLocked() error {
	if currentConfig == nil {
		return fmt.Errorf("没有配置可保存")
	}

	if err := os.MkdirAll(filepath.Dir(configFile), 0755); err != nil {
		return fmt.Errorf("创建配置目录失败: %w", err)
	}

	data, err := json.MarshalIndent(currentConfig, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	// API 密钥写入配置文件，限制为仅所有者可读
	return os.WriteFile(configFile, data, 0600)
}
