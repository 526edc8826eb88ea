package plugin

import (
	"fmt"
	"reflect"
	"strings"
)

// Parameter 插件构造参数的声明
type Parameter struct {
	Name     string
	Optional bool
}

// Factory 插件工厂接口
//
// Parameters 每次调用返回一个新的参数结构体指针，字段通过
// mapstructure 标签声明参数名，可选参数额外携带 optional:"true"
// 标签，字段初值即参数默认值。Create 收到的是同类型的已填充指针。
type Factory interface {
	Type() string
	Parameters() interface{}
	Create(params interface{}) (Plugin, error)
}

// Metadata 一个已注册插件类型的元数据
type Metadata struct {
	Name       string
	Parameters []Parameter
	Factory    Factory
}

// NewMetadata 通过反射工厂的参数结构体构造元数据
func NewMetadata(factory Factory) (Metadata, error) {
	parameters, err := reflectParameters(factory.Parameters())
	if err != nil {
		return Metadata{}, fmt.Errorf("plugin %q: %w", factory.Type(), err)
	}
	return Metadata{
		Name:       factory.Type(),
		Parameters: parameters,
		Factory:    factory,
	}, nil
}

// MandatoryParameters 返回必选参数名集合
func (m Metadata) MandatoryParameters() []string {
	var names []string
	for _, parameter := range m.Parameters {
		if !parameter.Optional {
			names = append(names, parameter.Name)
		}
	}
	return names
}

// HasParameter 判断参数名是否在声明之列
func (m Metadata) HasParameter(name string) bool {
	for _, parameter := range m.Parameters {
		if parameter.Name == name {
			return true
		}
	}
	return false
}

func reflectParameters(spec interface{}) ([]Parameter, error) {
	specType := reflect.TypeOf(spec)
	if specType == nil {
		return nil, nil
	}
	if specType.Kind() == reflect.Ptr {
		specType = specType.Elem()
	}
	if specType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("parameter spec must be a struct, got %s", specType.Kind())
	}

	var parameters []Parameter
	for i := 0; i < specType.NumField(); i++ {
		field := specType.Field(i)
		if !field.IsExported() {
			continue
		}
		name := strings.Split(field.Tag.Get("mapstructure"), ",")[0]
		if name == "" {
			name = strings.ToLower(field.Name)
		}
		parameters = append(parameters, Parameter{
			Name:     name,
			Optional: field.Tag.Get("optional") == "true",
		})
	}
	return parameters, nil
}

// MetadataProvider 提供已注册插件类型的元数据
type MetadataProvider interface {
	Items() []Metadata
	// ItemByName 按名字查找元数据，名字匹配不区分大小写
	ItemByName(name string) (Metadata, error)
}

// StaticMetadataProvider 基于静态工厂列表的元数据提供者
type StaticMetadataProvider struct {
	items []Metadata
}

// NewStaticProvider 由一组工厂构造元数据提供者
func NewStaticProvider(factories ...Factory) (*StaticMetadataProvider, error) {
	provider := &StaticMetadataProvider{}
	for _, factory := range factories {
		if err := provider.Register(factory); err != nil {
			return nil, err
		}
	}
	return provider, nil
}

// Register 追加注册一个工厂
func (p *StaticMetadataProvider) Register(factory Factory) error {
	metadata, err := NewMetadata(factory)
	if err != nil {
		return err
	}
	for _, existing := range p.items {
		if strings.EqualFold(existing.Name, metadata.Name) {
			return fmt.Errorf("plugin %q registered twice", metadata.Name)
		}
	}
	p.items = append(p.items, metadata)
	return nil
}

// Items 返回全部元数据
func (p *StaticMetadataProvider) Items() []Metadata {
	return p.items
}

// ItemByName 按名字查找元数据
func (p *StaticMetadataProvider) ItemByName(name string) (Metadata, error) {
	for _, item := range p.items {
		if strings.EqualFold(item.Name, name) {
			return item, nil
		}
	}
	return Metadata{}, fmt.Errorf("%w: %s", ErrPluginNotFound, name)
}
