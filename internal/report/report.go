package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"benchmark_agent/internal/logger"
	"benchmark_agent/internal/plugin"
	"benchmark_agent/internal/sysinfo"
)

// Report 一轮完整运行的结果文档
type Report struct {
	AgentName    string              `json:"agent_name"`
	AgentVersion string              `json:"agent_version"`
	Host         *sysinfo.SystemInfo `json:"host,omitempty"`
	StartTime    time.Time           `json:"start_time"`
	EndTime      time.Time           `json:"end_time"`
	Stages       []string            `json:"stages"`

	// Plugins 按插件名和阶段名组织的全部插件结果
	Plugins map[string]map[string]plugin.Result `json:"plugins"`
}

// Sanitized 返回可安全序列化成 JSON 的副本
func (r *Report) Sanitized() *Report {
	sanitized := *r
	sanitized.Plugins = make(map[string]map[string]plugin.Result, len(r.Plugins))
	for name, stages := range r.Plugins {
		sanitized.Plugins[name] = make(map[string]plugin.Result, len(stages))
		for stage, result := range stages {
			sanitized.Plugins[name][stage] = result.Sanitized()
		}
	}
	return &sanitized
}

// Publisher 运行报告的发布端
type Publisher interface {
	Publish(report *Report) error
}

// FilePublisher 把报告落盘成 JSON 文件
type FilePublisher struct {
	directory string
}

// NewFilePublisher 构造文件发布端
func NewFilePublisher(directory string) *FilePublisher {
	return &FilePublisher{directory: directory}
}

// Publish 把报告写到运行目录，文件名带开始时间
func (p *FilePublisher) Publish(report *Report) error {
	if err := os.MkdirAll(p.directory, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(report.Sanitized(), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding run report: %w", err)
	}

	name := fmt.Sprintf("run_%s.json", report.StartTime.UTC().Format("20060102T150405Z"))
	path := filepath.Join(p.directory, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}

	logger.Infof("Run report written to %s", path)
	return nil
}
