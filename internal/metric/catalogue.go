package metric

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalogue 外部维护的指标目录
//
// 目录条目与插件配置里的内联指标使用同一参数集合，
// 额外的 example-output / expected-value 字段让测试可以在
// 不执行真实命令的情况下校验正则与聚合配置。
type Catalogue map[string]map[string]interface{}

// LoadCatalogue 从 YAML 文件读取指标目录
func LoadCatalogue(path string) (Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading metric catalogue: %w", err)
	}

	catalogue := Catalogue{}
	if err := yaml.Unmarshal(data, &catalogue); err != nil {
		return nil, fmt.Errorf("parsing metric catalogue %q: %w", path, err)
	}
	return catalogue, nil
}

// Definitions 将目录条目构造成指标定义
func (c Catalogue) Definitions(granularitySecs float64) (map[string]*Definition, error) {
	definitions := make(map[string]*Definition, len(c))
	for name, params := range c {
		definition, err := New(name, params, granularitySecs)
		if err != nil {
			return nil, err
		}
		definitions[name] = definition
	}
	return definitions, nil
}

// Verify 用示例输出校验所有附带 example-output 的目录条目
func (c Catalogue) Verify() error {
	for name, params := range c {
		definition, err := New(name, params, DefaultGranularitySecs)
		if err != nil {
			return err
		}
		if definition.ExampleOutput() == "" {
			continue
		}
		if err := verifyDefinition(definition); err != nil {
			return err
		}
	}
	return nil
}

func verifyDefinition(definition *Definition) error {
	value, err := definition.Parse(definition.ExampleOutput())
	if err != nil {
		return fmt.Errorf("catalogue entry %q: %w", definition.Name, err)
	}

	expected, ok := definition.ExpectedValue()
	if !ok {
		return nil
	}

	scalar, ok := value.(float64)
	if !ok {
		return fmt.Errorf("catalogue entry %q: expected-value requires a single aggregation", definition.Name)
	}
	if math.IsNaN(scalar) || math.Abs(scalar-expected) > 1e-6 {
		return fmt.Errorf("catalogue entry %q: example output parsed to %v, expected %v",
			definition.Name, scalar, expected)
	}
	return nil
}
