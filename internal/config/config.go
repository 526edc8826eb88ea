package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// Config 配置结构
type Config struct {
	Agent   AgentConfig   `mapstructure:"agent"`
	Plugins PluginsConfig `mapstructure:"plugins"`
	Run     RunConfig     `mapstructure:"run"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// AgentConfig 代理配置
type AgentConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
	WorkDir string `mapstructure:"work_dir"`
	LogDir  string `mapstructure:"log_dir"`
	DataDir string `mapstructure:"data_dir"`
}

// PluginsConfig 插件子系统配置
type PluginsConfig struct {
	// File 插件配置文件路径，为空表示不启用插件
	File string `mapstructure:"file"`
	// RegistryDir 动态插件目录
	RegistryDir string `mapstructure:"registry_dir"`
	// Strategy 叶子执行策略，thread 或 process
	Strategy string `mapstructure:"strategy"`
	// Isolate 是否把整个插件集合放进独立子进程
	Isolate bool `mapstructure:"isolate"`
}

// RunConfig 运行编排配置
type RunConfig struct {
	// Stages 顺序执行的阶段
	Stages []StageConfig `mapstructure:"stages"`
	// Schedule 周期运行的 cron 表达式，为空表示只跑一轮
	Schedule string `mapstructure:"schedule"`
}

// StageConfig 单个阶段
type StageConfig struct {
	Name         string  `mapstructure:"name"`
	DurationSecs float64 `mapstructure:"duration_secs"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

var (
	// GlobalConfig 全局配置实例
	GlobalConfig *Config
)

// getSystemDirectories 获取系统标准目录
func getSystemDirectories() (logDir, workDir, dataDir string) {
	switch runtime.GOOS {
	case "linux", "darwin":
		if canWrite("/var/log") {
			logDir = "/var/log/benchmark_agent"
		} else {
			logDir = filepath.Join(os.Getenv("HOME"), ".local", "share", "benchmark_agent", "logs")
		}
		if canWrite("/var/lib") {
			workDir = "/var/lib/benchmark_agent"
			dataDir = filepath.Join("/var/lib/benchmark_agent", "runs")
		} else {
			workDir = filepath.Join(os.Getenv("HOME"), ".local", "share", "benchmark_agent", "work")
			dataDir = filepath.Join(os.Getenv("HOME"), ".local", "share", "benchmark_agent", "runs")
		}
	default:
		homeDir := os.Getenv("HOME")
		if homeDir == "" {
			homeDir = "."
		}
		logDir = filepath.Join(homeDir, ".benchmark_agent", "logs")
		workDir = filepath.Join(homeDir, ".benchmark_agent", "work")
		dataDir = filepath.Join(homeDir, ".benchmark_agent", "runs")
	}
	return
}

// canWrite 检查目录是否可写
func canWrite(dir string) bool {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return false
		}
	}

	testFile := filepath.Join(dir, ".test_write")
	file, err := os.Create(testFile)
	if err != nil {
		return false
	}
	file.Close()
	os.Remove(testFile)
	return true
}

// Init 初始化配置
func Init() error {
	setDefaults()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/benchmark_agent")

	viper.SetEnvPrefix("BENCHMARK_AGENT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		// 配置文件不存在，使用默认配置
	}

	GlobalConfig = &Config{}
	if err := viper.Unmarshal(GlobalConfig); err != nil {
		return err
	}

	if err := createDirectories(); err != nil {
		return err
	}

	return nil
}

// setDefaults 设置默认配置
func setDefaults() {
	viper.SetDefault("agent.name", "benchmark-agent")
	viper.SetDefault("agent.version", "1.0.0")

	logDir, workDir, dataDir := getSystemDirectories()
	viper.SetDefault("agent.log_dir", logDir)
	viper.SetDefault("agent.work_dir", workDir)
	viper.SetDefault("agent.data_dir", dataDir)

	viper.SetDefault("plugins.file", "")
	viper.SetDefault("plugins.registry_dir", "")
	viper.SetDefault("plugins.strategy", "thread")
	viper.SetDefault("plugins.isolate", false)

	viper.SetDefault("run.schedule", "")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.file", "benchmark_agent.log")
}

// createDirectories 创建必要的目录
func createDirectories() error {
	dirs := []string{
		GlobalConfig.Agent.WorkDir,
		GlobalConfig.Agent.LogDir,
		GlobalConfig.Agent.DataDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	return nil
}

// GetConfig 获取全局配置
func GetConfig() *Config {
	return GlobalConfig
}
