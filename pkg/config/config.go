package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// WalletConfig 钱包配置
type WalletConfig struct {
	PrivateKey    string // 签名私钥（hex，不含 0x 前缀也可）
	FunderAddress string // 资金地址（Polymarket 代理钱包地址）
}

// ProxyConfig 代理配置
type ProxyConfig struct {
	Host string
	Port int
}

// FeedConfig 实时交易流配置
type FeedConfig struct {
	WSURL                string        // WebSocket 地址
	PingInterval         time.Duration // 心跳间隔
	ReconnectDelay       time.Duration // 重连初始延迟
	MaxReconnectDelay    time.Duration // 重连最大延迟（指数退避上限）
	MaxReconnectAttempts int           // 最大重连次数（0 表示无限重试）
	BufferSize           int           // 消息通道缓冲大小
}

// ClobConfig CLOB 接口配置
type ClobConfig struct {
	ClobURL string // CLOB REST 地址
	RPCURL  string // Polygon RPC 地址（链上授权检查/交易）
	ChainID int64  // 链 ID（Polygon 主网 137）
}

// MirrorConfig 跟单配置
type MirrorConfig struct {
	TargetsFile    string        // 目标账户 CSV 文件路径
	MinOrderSize   float64       // 最小下单金额（USDC），交易所要求不能小于 1
	QueueSize      int           // 执行队列容量
	ExecuteTimeout time.Duration // 单次下单超时
	ProgressEvery  int           // 每处理 N 条消息打印一次进度
	AutoApprove    bool          // 授权不足时是否自动发起链上授权
}

// ServerConfig 状态服务配置
type ServerConfig struct {
	ListenAddr string // 监听地址，空字符串表示不启动
}

// SecretStoreConfig 密钥存储配置
type SecretStoreConfig struct {
	Dir string // badger 数据目录，空字符串表示不使用密钥存储
}

// Config 应用配置
type Config struct {
	Wallet      WalletConfig
	Proxy       *ProxyConfig
	Feed        FeedConfig
	Clob        ClobConfig
	Mirror      MirrorConfig
	Server      ServerConfig
	SecretStore SecretStoreConfig
	LogLevel    string // 日志级别
	LogFile     string // 日志文件路径（可选）
	DryRun      bool   // 纸交易模式，只记录不下单
}

var globalConfig *Config
var configFilePath string

// SetConfigPath 设置配置文件路径
func SetConfigPath(path string) {
	configFilePath = path
}

// GetConfigPath 获取配置文件路径
func GetConfigPath() string {
	return configFilePath
}

// ConfigFile 配置文件结构（用于 YAML/JSON 解析）
type ConfigFile struct {
	Wallet struct {
		PrivateKey    string `yaml:"private_key" json:"private_key"`
		FunderAddress string `yaml:"funder_address" json:"funder_address"`
	} `yaml:"wallet" json:"wallet"`
	Proxy struct {
		Host string `yaml:"host" json:"host"`
		Port int    `yaml:"port" json:"port"`
	} `yaml:"proxy" json:"proxy"`
	Feed struct {
		WSURL                string `yaml:"ws_url" json:"ws_url"`
		PingIntervalSeconds  int    `yaml:"ping_interval_seconds" json:"ping_interval_seconds"`
		ReconnectDelayMs     int    `yaml:"reconnect_delay_ms" json:"reconnect_delay_ms"`
		MaxReconnectDelaySec int    `yaml:"max_reconnect_delay_seconds" json:"max_reconnect_delay_seconds"`
		MaxReconnectAttempts int    `yaml:"max_reconnect_attempts" json:"max_reconnect_attempts"`
		BufferSize           int    `yaml:"buffer_size" json:"buffer_size"`
	} `yaml:"feed" json:"feed"`
	Clob struct {
		ClobURL string `yaml:"clob_url" json:"clob_url"`
		RPCURL  string `yaml:"rpc_url" json:"rpc_url"`
		ChainID int64  `yaml:"chain_id" json:"chain_id"`
	} `yaml:"clob" json:"clob"`
	Mirror struct {
		TargetsFile           string  `yaml:"targets_file" json:"targets_file"`
		MinOrderSize          float64 `yaml:"min_order_size" json:"min_order_size"`
		QueueSize             int     `yaml:"queue_size" json:"queue_size"`
		ExecuteTimeoutSeconds int     `yaml:"execute_timeout_seconds" json:"execute_timeout_seconds"`
		ProgressEvery         int     `yaml:"progress_every" json:"progress_every"`
		AutoApprove           *bool   `yaml:"auto_approve" json:"auto_approve"`
	} `yaml:"mirror" json:"mirror"`
	Server struct {
		ListenAddr string `yaml:"listen_addr" json:"listen_addr"`
	} `yaml:"server" json:"server"`
	SecretStore struct {
		Dir string `yaml:"dir" json:"dir"`
	} `yaml:"secret_store" json:"secret_store"`
	LogLevel string `yaml:"log_level" json:"log_level"`
	LogFile  string `yaml:"log_file" json:"log_file"`
	DryRun   bool   `yaml:"dry_run" json:"dry_run"`
}

// Load 加载配置
func Load() (*Config, error) {
	return LoadFromFile(configFilePath)
}

// LoadFromFile 从指定文件加载配置
// 优先级：配置文件 > 环境变量 > 默认值
func LoadFromFile(filePath string) (*Config, error) {
	if globalConfig != nil && configFilePath == filePath {
		return globalConfig, nil
	}

	// 尝试加载配置文件
	var configFile *ConfigFile
	if filePath != "" {
		var err error
		configFile, err = loadConfigFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("加载配置文件失败 %s: %w", filePath, err)
		}
	}

	cf := configFile
	proxyConfig := parseProxyConfig(cf)

	config := &Config{
		Wallet: WalletConfig{
			PrivateKey:    resolveStr(cf, func(f *ConfigFile) string { return f.Wallet.PrivateKey }, "WALLET_PRIVATE_KEY", ""),
			FunderAddress: resolveStr(cf, func(f *ConfigFile) string { return f.Wallet.FunderAddress }, "WALLET_FUNDER_ADDRESS", ""),
		},
		Proxy: proxyConfig,
		Feed: FeedConfig{
			WSURL:                resolveStr(cf, func(f *ConfigFile) string { return f.Feed.WSURL }, "FEED_WS_URL", "wss://ws-live-data.polymarket.com"),
			PingInterval:         time.Duration(resolveNum(cf, func(f *ConfigFile) int { return f.Feed.PingIntervalSeconds }, "FEED_PING_INTERVAL_SECONDS", 10)) * time.Second,
			ReconnectDelay:       time.Duration(resolveNum(cf, func(f *ConfigFile) int { return f.Feed.ReconnectDelayMs }, "FEED_RECONNECT_DELAY_MS", 1000)) * time.Millisecond,
			MaxReconnectDelay:    time.Duration(resolveNum(cf, func(f *ConfigFile) int { return f.Feed.MaxReconnectDelaySec }, "FEED_MAX_RECONNECT_DELAY_SECONDS", 30)) * time.Second,
			MaxReconnectAttempts: resolveNum(cf, func(f *ConfigFile) int { return f.Feed.MaxReconnectAttempts }, "FEED_MAX_RECONNECT_ATTEMPTS", 10),
			BufferSize:           resolveNum(cf, func(f *ConfigFile) int { return f.Feed.BufferSize }, "FEED_BUFFER_SIZE", 256),
		},
		Clob: ClobConfig{
			ClobURL: resolveStr(cf, func(f *ConfigFile) string { return f.Clob.ClobURL }, "CLOB_URL", "https://clob.polymarket.com"),
			RPCURL:  resolveStr(cf, func(f *ConfigFile) string { return f.Clob.RPCURL }, "RPC_URL", "https://polygon-rpc.com"),
			ChainID: resolveNum(cf, func(f *ConfigFile) int64 { return f.Clob.ChainID }, "CHAIN_ID", 137),
		},
		Mirror: MirrorConfig{
			TargetsFile:    resolveStr(cf, func(f *ConfigFile) string { return f.Mirror.TargetsFile }, "MIRROR_TARGETS_FILE", "data/targets.csv"),
			MinOrderSize:   resolveNum(cf, func(f *ConfigFile) float64 { return f.Mirror.MinOrderSize }, "MIRROR_MIN_ORDER_SIZE", 1.0),
			QueueSize:      resolveNum(cf, func(f *ConfigFile) int { return f.Mirror.QueueSize }, "MIRROR_QUEUE_SIZE", 64),
			ExecuteTimeout: time.Duration(resolveNum(cf, func(f *ConfigFile) int { return f.Mirror.ExecuteTimeoutSeconds }, "MIRROR_EXECUTE_TIMEOUT_SECONDS", 15)) * time.Second,
			ProgressEvery:  resolveNum(cf, func(f *ConfigFile) int { return f.Mirror.ProgressEvery }, "MIRROR_PROGRESS_EVERY", 1),
			AutoApprove:    resolveBoolPtr(cf, func(f *ConfigFile) *bool { return f.Mirror.AutoApprove }, "MIRROR_AUTO_APPROVE", true),
		},
		Server: ServerConfig{
			ListenAddr: resolveStr(cf, func(f *ConfigFile) string { return f.Server.ListenAddr }, "SERVER_LISTEN_ADDR", ""),
		},
		SecretStore: SecretStoreConfig{
			Dir: resolveStr(cf, func(f *ConfigFile) string { return f.SecretStore.Dir }, "SECRET_STORE_DIR", ""),
		},
		LogLevel: resolveStr(cf, func(f *ConfigFile) string { return f.LogLevel }, "LOG_LEVEL", "info"),
		LogFile:  resolveStr(cf, func(f *ConfigFile) string { return f.LogFile }, "LOG_FILE", "logs/mirror.log"),
		DryRun:   resolveBool(cf, func(f *ConfigFile) bool { return f.DryRun }, "DRY_RUN", false),
	}

	// 校验交由调用方在套用命令行覆盖后执行（见 cmd/bot）

	// 设置代理环境变量（供 HTTP 客户端使用）
	if proxyConfig != nil {
		proxyURL := fmt.Sprintf("http://%s:%d", proxyConfig.Host, proxyConfig.Port)
		os.Setenv("HTTP_PROXY", proxyURL)
		os.Setenv("HTTPS_PROXY", proxyURL)
		os.Setenv("http_proxy", proxyURL)
		os.Setenv("https_proxy", proxyURL)
	}

	globalConfig = config
	configFilePath = filePath
	return config, nil
}

// loadConfigFile 加载配置文件（支持 YAML 和 JSON）
func loadConfigFile(filePath string) (*ConfigFile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var configFile ConfigFile
	ext := strings.ToLower(filepath.Ext(filePath))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &configFile); err != nil {
			return nil, fmt.Errorf("解析 YAML 配置文件失败: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &configFile); err != nil {
			return nil, fmt.Errorf("解析 JSON 配置文件失败: %w", err)
		}
	default:
		return nil, fmt.Errorf("不支持的配置文件格式: %s (支持 .yaml, .yml, .json)", ext)
	}

	return &configFile, nil
}

// parseProxyConfig 解析代理配置（优先级：配置文件 > 环境变量）
// 未配置时返回 nil，不走代理
func parseProxyConfig(configFile *ConfigFile) *ProxyConfig {
	var proxyHost, proxyPortStr string

	if configFile != nil && configFile.Proxy.Host != "" {
		proxyHost = configFile.Proxy.Host
		proxyPortStr = fmt.Sprintf("%d", configFile.Proxy.Port)
	} else {
		proxyHost = getEnv("PROXY_HOST", "")
		proxyPortStr = getEnv("PROXY_PORT", "")
	}

	if proxyHost == "" || proxyPortStr == "" {
		return nil
	}

	proxyPort, err := strconv.Atoi(proxyPortStr)
	if err != nil {
		return nil
	}

	return &ProxyConfig{
		Host: proxyHost,
		Port: proxyPort,
	}
}

// Get 获取全局配置（如果已加载）
func Get() *Config {
	return globalConfig
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Mirror.TargetsFile == "" {
		return fmt.Errorf("MIRROR_TARGETS_FILE 未配置")
	}
	if c.Feed.WSURL == "" {
		return fmt.Errorf("FEED_WS_URL 未配置")
	}
	if c.Clob.ClobURL == "" {
		return fmt.Errorf("CLOB_URL 未配置")
	}
	if c.Clob.RPCURL == "" {
		return fmt.Errorf("RPC_URL 未配置")
	}
	if c.Mirror.MinOrderSize <= 0 {
		return fmt.Errorf("MIRROR_MIN_ORDER_SIZE 必须大于 0")
	}
	if c.Mirror.QueueSize <= 0 {
		return fmt.Errorf("MIRROR_QUEUE_SIZE 必须大于 0")
	}
	if c.Mirror.ProgressEvery <= 0 {
		return fmt.Errorf("MIRROR_PROGRESS_EVERY 必须大于 0")
	}
	if c.Feed.BufferSize <= 0 {
		return fmt.Errorf("FEED_BUFFER_SIZE 必须大于 0")
	}
	// DryRun 模式不需要钱包；真实交易必须配置私钥和资金地址
	if !c.DryRun {
		if c.Wallet.PrivateKey == "" && c.SecretStore.Dir == "" {
			return fmt.Errorf("WALLET_PRIVATE_KEY 未配置（也未配置密钥存储）")
		}
		if c.Wallet.FunderAddress == "" {
			return fmt.Errorf("WALLET_FUNDER_ADDRESS 未配置")
		}
	}
	return nil
}

// resolveStr 按 配置文件非空值 > 环境变量 > 默认值 取字符串
func resolveStr(cf *ConfigFile, get func(*ConfigFile) string, envKey, def string) string {
	if cf != nil {
		if v := get(cf); v != "" {
			return v
		}
	}
	return getEnv(envKey, def)
}

// resolveNum 按 配置文件非零值 > 环境变量 > 默认值 取数值
func resolveNum[T int | int64 | float64](cf *ConfigFile, get func(*ConfigFile) T, envKey string, def T) T {
	if cf != nil {
		if v := get(cf); v != 0 {
			return v
		}
	}
	if raw := os.Getenv(envKey); raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil {
			return T(parsed)
		}
	}
	return def
}

// resolveBool 配置文件存在即用其值，否则读环境变量
func resolveBool(cf *ConfigFile, get func(*ConfigFile) bool, envKey string, def bool) bool {
	if cf != nil {
		return get(cf)
	}
	return envBool(envKey, def)
}

// resolveBoolPtr 配置文件里显式写了才生效，缺省落到环境变量
func resolveBoolPtr(cf *ConfigFile, get func(*ConfigFile) *bool, envKey string, def bool) bool {
	if cf != nil {
		if p := get(cf); p != nil {
			return *p
		}
	}
	return envBool(envKey, def)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return parsed
}
