package plugin

import "errors"

// 插件系统错误定义
var (
	ErrNoResult          = errors.New("plugin has not delivered a result yet")
	ErrResultUndelivered = errors.New("plugin result slot already occupied")
	ErrPluginNotFound    = errors.New("plugin not found")
	ErrDuplicatePlugin   = errors.New("duplicate plugin in configuration")
	ErrNotSerializable   = errors.New("plugin instance was not built from configuration")
	ErrRegistryNotDir    = errors.New("plugin registry path exists but is not a directory")
)
