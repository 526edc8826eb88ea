package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	goplugin "plugin"
	"sort"

	"benchmark_agent/internal/logger"
)

// factorySymbol 动态插件必须导出的符号名
const factorySymbol = "Factory"

// DirectoryMetadataProvider 从目录加载动态插件的元数据提供者
//
// 目录下的每个 .so 文件都必须导出一个 Factory 变量。目录不存在
// 视为没有动态插件，路径存在但不是目录则是致命配置错误。
type DirectoryMetadataProvider struct {
	StaticMetadataProvider

	directory string
}

// NewDirectoryProvider 构造目录元数据提供者并加载其中的插件
func NewDirectoryProvider(directory string) (*DirectoryMetadataProvider, error) {
	provider := &DirectoryMetadataProvider{directory: directory}
	if err := provider.load(); err != nil {
		return nil, err
	}
	return provider, nil
}

func (p *DirectoryMetadataProvider) load() error {
	info, err := os.Stat(p.directory)
	if os.IsNotExist(err) {
		logger.Debugf("Plugin registry %s does not exist, no dynamic plugins loaded", p.directory)
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrRegistryNotDir, p.directory)
	}

	paths, err := filepath.Glob(filepath.Join(p.directory, "*.so"))
	if err != nil {
		return err
	}
	sort.Strings(paths)

	for _, path := range paths {
		factory, err := openFactory(path)
		if err != nil {
			return err
		}
		if err := p.Register(factory); err != nil {
			return err
		}
		logger.Infof("Loaded dynamic plugin %s from %s", factory.Type(), path)
	}
	return nil
}

func openFactory(path string) (Factory, error) {
	shared, err := goplugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening plugin %s: %w", path, err)
	}
	symbol, err := shared.Lookup(factorySymbol)
	if err != nil {
		return nil, fmt.Errorf("plugin %s does not export %s: %w", path, factorySymbol, err)
	}

	switch factory := symbol.(type) {
	case Factory:
		return factory, nil
	case *Factory:
		return *factory, nil
	default:
		return nil, fmt.Errorf("plugin %s: symbol %s is %T, not a plugin factory", path, factorySymbol, symbol)
	}
}
