package registry

import (
	"benchmark_agent/internal/plugin"
	"benchmark_agent/internal/plugin/registry/commandexec"
	"benchmark_agent/internal/plugin/registry/cpufrequency"
	"benchmark_agent/internal/plugin/registry/loadaverage"
	"benchmark_agent/internal/plugin/registry/raplpower"
	"benchmark_agent/internal/plugin/registry/usedmemory"
)

// Builtin 返回内置插件的工厂列表
func Builtin() []plugin.Factory {
	return []plugin.Factory{
		commandexec.Factory{},
		cpufrequency.Factory{},
		loadaverage.Factory{},
		raplpower.Factory{},
		usedmemory.Factory{},
	}
}

// Provider 组合内置插件与动态目录的元数据提供者
//
// directory 为空时只提供内置插件。
func Provider(directory string) (plugin.MetadataProvider, error) {
	if directory == "" {
		provider, err := plugin.NewStaticProvider(Builtin()...)
		if err != nil {
			return nil, err
		}
		return provider, nil
	}

	provider, err := plugin.NewDirectoryProvider(directory)
	if err != nil {
		return nil, err
	}
	for _, factory := range Builtin() {
		if err := provider.Register(factory); err != nil {
			return nil, err
		}
	}
	return provider, nil
}
