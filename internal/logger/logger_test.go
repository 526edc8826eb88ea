package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"benchmark_agent/internal/config"
)

// testConfig 绕过 viper 初始化，直接注入测试配置
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Agent.LogDir = t.TempDir()
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"
	config.GlobalConfig = cfg
	return cfg
}

func TestLoggerInit(t *testing.T) {
	cfg := testConfig(t)

	require.NoError(t, Init())

	// 测试日志函数
	Info("Test info message")
	Warn("Test warning message")
	Error("Test error message")
	Debug("Test debug message")

	// 验证日志级别设置
	cfg.Logging.Level = "debug"
	require.NoError(t, Init())
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
}

func TestLoggerWithFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Logging.File = "agent.log"
	logFile := filepath.Join(cfg.Agent.LogDir, "agent.log")

	require.NoError(t, Init())

	testMessage := "Test log message"
	Info(testMessage)

	assert.FileExists(t, logFile)
	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), testMessage)
}

func TestLoggerWithJSONFormat(t *testing.T) {
	cfg := testConfig(t)
	cfg.Logging.Format = "json"
	cfg.Logging.File = "agent.log"

	require.NoError(t, Init())
	WithField("plugin", "UsedMemory").Info("structured entry")

	content, err := os.ReadFile(filepath.Join(cfg.Agent.LogDir, "agent.log"))
	require.NoError(t, err)
	assert.Contains(t, string(content), `"plugin":"UsedMemory"`)
}

func TestLoggerWithFields(t *testing.T) {
	testConfig(t)
	require.NoError(t, Init())

	entry := WithField("test_key", "test_value")
	assert.NotNil(t, entry)

	entry = WithFields(logrus.Fields{
		"field1": "value1",
		"field2": 123,
	})
	assert.NotNil(t, entry)
}

func TestLoggerInvalidLevel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Logging.Level = "invalid_level"

	require.NoError(t, Init()) // 应该使用默认级别
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}

func TestLoggerConcurrent(t *testing.T) {
	testConfig(t)
	require.NoError(t, Init())

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func(id int) {
			Infof("Concurrent test message %d", id)
			done <- true
		}(i)
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}
