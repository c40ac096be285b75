package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// AppConfig 应用配置
type AppConfig struct {
	Server   ServerConfig   `toml:"server"`
	BTC      BTCConfig      `toml:"btc"`
	TT       TTConfig       `toml:"tt"`
	Import   ImportConfig   `toml:"import"`
	Retry    RetryConfig    `toml:"retry"`
	Location LocationConfig `toml:"location"`
	Archive  ArchiveConfig  `toml:"archive"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port       int    `toml:"port"`
	DevMode    bool   `toml:"dev_mode"`
	ImportCron string `toml:"import_cron"` // 为空则不启用定时导入（如 "0 5 * * *" 每日导入前一天）
}

// BTCConfig BTC 日历源 API 配置
type BTCConfig struct {
	BaseURL  string `toml:"base_url"`
	PageSize int    `toml:"page_size"`
	Timeout  string `toml:"timeout"` // 如 "15s"
}

// TTConfig TT 平台 API 配置
type TTConfig struct {
	BaseURL   string `toml:"base_url"`
	AppID     string `toml:"app_id"`
	AuthToken string `toml:"auth_token"` // 可为空：请求以未认证方式发出
	Timeout   string `toml:"timeout"`
}

// ImportConfig 导入行为配置
type ImportConfig struct {
	OutputDir string `toml:"output_dir"` // 运行产物目录
	DataDir   string `toml:"data_dir"`   // sqlite 运行日志目录
	DryRun    bool   `toml:"dry_run"`
}

// RetryConfig 重试调参
type RetryConfig struct {
	MaxRetries     int `toml:"max_retries"`
	InitialDelayMs int `toml:"initial_delay_ms"`
	MaxDelayMs     int `toml:"max_delay_ms"`
}

// LocationConfig 默认地理位置（场地缺失城市/分区/大区关联时的兜底）
type LocationConfig struct {
	CityID       string  `toml:"city_id"`
	CityName     string  `toml:"city_name"`
	DivisionID   string  `toml:"division_id"`
	DivisionName string  `toml:"division_name"`
	RegionID     string  `toml:"region_id"`
	RegionName   string  `toml:"region_name"`
	Latitude     float64 `toml:"latitude"`
	Longitude    float64 `toml:"longitude"`
}

// ArchiveConfig 产物归档配置（bucket 为空则不归档）
type ArchiveConfig struct {
	S3Bucket string `toml:"s3_bucket"`
	S3Region string `toml:"s3_region"`
	Prefix   string `toml:"prefix"`
}

// LoadConfigInfo 配置加载元信息
type LoadConfigInfo struct {
	PortSpecified bool
}

// DefaultConfig 默认配置
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:    20280,
			DevMode: false,
		},
		BTC: BTCConfig{
			BaseURL:  "https://bostontangocalendar.com/wp-json/tribe/events/v1",
			PageSize: 50,
			Timeout:  "15s",
		},
		TT: TTConfig{
			BaseURL: "https://api.tangotiempo.com",
			AppID:   "1",
			Timeout: "15s",
		},
		Import: ImportConfig{
			OutputDir: "artifacts",
			DataDir:   "data",
		},
		Retry: RetryConfig{
			MaxRetries:     4,
			InitialDelayMs: 500,
			MaxDelayMs:     10000,
		},
		Location: LocationConfig{
			CityID:       "boston",
			CityName:     "Boston",
			DivisionID:   "new-england",
			DivisionName: "New England",
			RegionID:     "northeast",
			RegionName:   "Northeast",
			Latitude:     42.3601,
			Longitude:    -71.0589,
		},
		Archive: ArchiveConfig{
			S3Region: "us-east-1",
			Prefix:   "calendaradmin",
		},
	}
}

// BTCTimeout BTC 请求超时
func (c *AppConfig) BTCTimeout() time.Duration { return parseDur(c.BTC.Timeout, 15*time.Second) }

// TTTimeout TT 请求超时
func (c *AppConfig) TTTimeout() time.Duration { return parseDur(c.TT.Timeout, 15*time.Second) }

func parseDur(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func isPortSpecifiedInToml(data []byte) bool {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return false
	}
	serverAny, ok := raw["server"]
	if !ok {
		return false
	}
	serverMap, ok := serverAny.(map[string]any)
	if !ok {
		return false
	}
	_, ok = serverMap["port"]
	return ok
}

// GetExeDir 获取可执行文件所在目录
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// LoadConfigWithInfo 从 config.toml 加载配置并返回元信息
func LoadConfigWithInfo() (*AppConfig, LoadConfigInfo, error) {
	info := LoadConfigInfo{}
	config := DefaultConfig()

	exeDir, err := GetExeDir()
	if err != nil {
		// 无法获取可执行文件目录，使用当前目录
		exeDir = "."
	}

	configPath := filepath.Join(exeDir, "config.toml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 配置文件不存在，使用默认配置（仍应用环境变量覆盖）
			applyEnvOverrides(config)
			return config, info, nil
		}
		return nil, info, err
	}

	info.PortSpecified = isPortSpecifiedInToml(data)

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, info, err
	}

	applyEnvOverrides(config)

	return config, info, nil
}

// LoadConfig 从 config.toml 加载配置
func LoadConfig() (*AppConfig, error) {
	config, _, err := LoadConfigWithInfo()
	return config, err
}

// applyEnvOverrides 环境变量覆盖（用于容器部署 / 本地运行，配合 .env）
func applyEnvOverrides(config *AppConfig) {
	if v := os.Getenv("CA_BTC_BASE_URL"); v != "" {
		config.BTC.BaseURL = v
	}
	if v := os.Getenv("CA_TT_BASE_URL"); v != "" {
		config.TT.BaseURL = v
	}
	if v := os.Getenv("CA_TT_APP_ID"); v != "" {
		config.TT.AppID = v
	}
	if v := os.Getenv("CA_TT_AUTH_TOKEN"); v != "" {
		config.TT.AuthToken = v
	}
	if v := os.Getenv("CA_OUTPUT_DIR"); v != "" {
		config.Import.OutputDir = v
	}
	if v := os.Getenv("CA_DRY_RUN"); v != "" {
		config.Import.DryRun = v == "true" || v == "1"
	}
	if v := os.Getenv("CA_S3_BUCKET"); v != "" {
		config.Archive.S3Bucket = v
	}
	if v := os.Getenv("CA_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			config.Retry.MaxRetries = n
		}
	}
}

// SaveConfig 保存配置到 config.toml
func SaveConfig(config *AppConfig) error {
	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}

	configPath := filepath.Join(exeDir, "config.toml")

	data, err := toml.Marshal(config)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}

// EnsureDataDir 确保数据目录存在
func EnsureDataDir(config *AppConfig) (string, error) {
	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}

	dataDir := filepath.Join(exeDir, config.Import.DataDir)

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}

	return dataDir, nil
}
