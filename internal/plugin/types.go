package plugin

import (
	"fmt"
	"math"

	"benchmark_agent/internal/event"
)

// 结果文档的状态取值
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Plugin 有状态监控插件的生命周期接口
//
// 一个插件实例同一时间只服务一个运行周期，但可以在后续阶段重新
// 启动，内部的采集缓冲必须在每次 OnStart 时清空。
type Plugin interface {
	// OnStart 在插件主体开始前执行，用于重置内部状态
	OnStart() error
	// Run 执行插件主体，必须在 stop 置位后尽快返回
	Run(stop *event.Event) error
	// OnEnd 在插件结束后执行，返回插件产出的报告字段
	OnEnd() (map[string]interface{}, error)
}

// Base 提供空的 OnStart 实现，无启动动作的插件可内嵌
type Base struct{}

// OnStart 默认不做任何事
func (Base) OnStart() error {
	return nil
}

// Result 单个插件在单个阶段产出的结果文档
//
// 成功结果合并插件报告字段并携带 status=success，
// 失败结果额外携带 error_message 与 traceback。
type Result map[string]interface{}

// Status 返回结果状态
func (r Result) Status() string {
	status, _ := r["status"].(string)
	return status
}

// IsFailure 返回结果是否为失败
func (r Result) IsFailure() bool {
	return r.Status() == StatusFailure
}

// ErrorMessage 返回失败结果的错误描述
func (r Result) ErrorMessage() string {
	message, _ := r["error_message"].(string)
	return message
}

// Sanitized 返回把 NaN 和无穷替换成 null 的副本
//
// JSON 不认识 NaN，跨进程传输和落盘之前都要过这一步，
// 序列里的洞在传输层表示成 null。
func (r Result) Sanitized() Result {
	sanitized := make(Result, len(r))
	for key, value := range r {
		sanitized[key] = sanitizeValue(value)
	}
	return sanitized
}

func sanitizeValue(value interface{}) interface{} {
	switch v := value.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		return v
	case []float64:
		sanitized := make([]interface{}, len(v))
		for i, item := range v {
			sanitized[i] = sanitizeValue(item)
		}
		return sanitized
	case []interface{}:
		sanitized := make([]interface{}, len(v))
		for i, item := range v {
			sanitized[i] = sanitizeValue(item)
		}
		return sanitized
	case map[string]interface{}:
		sanitized := make(map[string]interface{}, len(v))
		for key, item := range v {
			sanitized[key] = sanitizeValue(item)
		}
		return sanitized
	default:
		return value
	}
}

// SuccessResult 由插件报告字段构造成功结果
func SuccessResult(report map[string]interface{}) Result {
	result := Result{}
	for key, value := range report {
		result[key] = value
	}
	result["status"] = StatusSuccess
	return result
}

// FailureResult 由错误与堆栈构造失败结果
func FailureResult(err error, stack []byte) Result {
	return Result{
		"status":        StatusFailure,
		"error_message": fmt.Sprintf("%T(%q)", err, err.Error()),
		"traceback":     string(stack),
	}
}
