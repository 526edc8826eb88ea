package plugin

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"benchmark_agent/internal/logger"
)

// ConfigItem 配置文件里的一个插件条目
type ConfigItem struct {
	Name   string                 `json:"name"`
	Params map[string]interface{} `json:"params"`
}

// ParseConfig 解析插件配置段
//
// 顶层必须是映射，键是插件名，值是参数映射。直接解码到 map 会丢掉
// 书写顺序、掩盖重复键，这里走 yaml 节点保住两者：条目顺序决定
// 插件的启动顺序，重复的插件名是致命配置错误。
func ParseConfig(data []byte) ([]ConfigItem, error) {
	var document yaml.Node
	if err := yaml.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("parsing plugin configuration: %w", err)
	}
	if len(document.Content) == 0 {
		return nil, nil
	}
	return parseConfigNode(document.Content[0])
}

func parseConfigNode(node *yaml.Node) ([]ConfigItem, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("plugin configuration must be a mapping, got %s at line %d", nodeKind(node), node.Line)
	}

	seen := map[string]bool{}
	var items []ConfigItem
	for i := 0; i < len(node.Content); i += 2 {
		keyNode, valueNode := node.Content[i], node.Content[i+1]

		name := keyNode.Value
		lowered := strings.ToLower(name)
		if seen[lowered] {
			return nil, fmt.Errorf("%w: %s (line %d)", ErrDuplicatePlugin, name, keyNode.Line)
		}
		seen[lowered] = true

		params := map[string]interface{}{}
		if valueNode.Kind != yaml.ScalarNode || valueNode.Value != "" {
			if err := valueNode.Decode(&params); err != nil {
				return nil, fmt.Errorf("plugin %q: invalid parameters: %w", name, err)
			}
		}
		items = append(items, ConfigItem{Name: name, Params: params})
	}
	return items, nil
}

func nodeKind(node *yaml.Node) string {
	switch node.Kind {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.MappingNode:
		return "mapping"
	default:
		return "unknown"
	}
}

// ConfigBuilder 按配置条目构造插件实例
type ConfigBuilder struct {
	items    []ConfigItem
	provider MetadataProvider
}

// NewConfigBuilder 构造插件构造器
func NewConfigBuilder(items []ConfigItem, provider MetadataProvider) *ConfigBuilder {
	return &ConfigBuilder{items: items, provider: provider}
}

// HasPlugins 返回配置里是否有插件条目
func (b *ConfigBuilder) HasPlugins() bool {
	return len(b.items) > 0
}

// Build 构造全部插件实例，顺序与配置一致
//
// 参数集合在构造前校验：未声明的参数和缺失的必选参数都是
// 致命配置错误，任何插件启动之前就会暴露。
func (b *ConfigBuilder) Build() ([]*Instance, error) {
	instances := make([]*Instance, 0, len(b.items))
	for _, item := range b.items {
		instance, err := b.build(item)
		if err != nil {
			return nil, err
		}
		instances = append(instances, instance)
	}
	return instances, nil
}

func (b *ConfigBuilder) build(item ConfigItem) (*Instance, error) {
	metadata, err := b.provider.ItemByName(item.Name)
	if err != nil {
		return nil, err
	}

	if err := checkPluginParams(metadata, item.Params); err != nil {
		return nil, err
	}

	spec := metadata.Factory.Parameters()
	if spec != nil {
		if err := mapstructure.WeakDecode(item.Params, spec); err != nil {
			return nil, fmt.Errorf("plugin %q: %w", metadata.Name, err)
		}
	}

	p, err := metadata.Factory.Create(spec)
	if err != nil {
		return nil, fmt.Errorf("plugin %q: %w", metadata.Name, err)
	}

	logger.Debugf("Built plugin %s", metadata.Name)
	return newConfiguredInstance(metadata.Name, p, item), nil
}

func checkPluginParams(metadata Metadata, params map[string]interface{}) error {
	for name := range params {
		if !metadata.HasParameter(name) {
			return fmt.Errorf("plugin %q: unexpected parameter %q", metadata.Name, name)
		}
	}
	for _, name := range metadata.MandatoryParameters() {
		if _, ok := params[name]; !ok {
			return fmt.Errorf("plugin %q: missing required parameter %q", metadata.Name, name)
		}
	}
	return nil
}
