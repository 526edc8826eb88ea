package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeParams struct {
	Message string `mapstructure:"message"`
	Count   int    `mapstructure:"count" optional:"true"`
}

type fakeFactory struct {
	created []*fakeParams
}

func (f *fakeFactory) Type() string { return "FakePlugin" }

func (f *fakeFactory) Parameters() interface{} { return &fakeParams{Count: 1} }

func (f *fakeFactory) Create(params interface{}) (Plugin, error) {
	p := params.(*fakeParams)
	f.created = append(f.created, p)
	return &fakePlugin{report: map[string]interface{}{"message": p.Message}}, nil
}

func newProvider(t *testing.T, factories ...Factory) MetadataProvider {
	t.Helper()
	provider, err := NewStaticProvider(factories...)
	require.NoError(t, err)
	return provider
}

func TestMetadataReflectsParameters(t *testing.T) {
	metadata, err := NewMetadata(&fakeFactory{})
	require.NoError(t, err)

	assert.Equal(t, "FakePlugin", metadata.Name)
	assert.Equal(t, []string{"message"}, metadata.MandatoryParameters())
	assert.True(t, metadata.HasParameter("count"))
	assert.False(t, metadata.HasParameter("nonsense"))
}

func TestParseConfigKeepsOrder(t *testing.T) {
	items, err := ParseConfig([]byte(`
ZPlugin:
  param: 1
APlugin:
  param: 2
`))
	require.NoError(t, err)

	require.Len(t, items, 2)
	// 条目顺序决定插件启动顺序，不能被 map 语义打乱
	assert.Equal(t, "ZPlugin", items[0].Name)
	assert.Equal(t, "APlugin", items[1].Name)
}

func TestParseConfigDuplicateName(t *testing.T) {
	_, err := ParseConfig([]byte(`
FakePlugin:
  message: one
fakeplugin:
  message: two
`))
	assert.ErrorIs(t, err, ErrDuplicatePlugin)
}

func TestParseConfigEmptyParams(t *testing.T) {
	items, err := ParseConfig([]byte("FakePlugin:\n"))
	require.NoError(t, err)

	require.Len(t, items, 1)
	assert.Empty(t, items[0].Params)
}

func TestParseConfigRejectsNonMapping(t *testing.T) {
	_, err := ParseConfig([]byte("- FakePlugin\n- OtherPlugin\n"))
	assert.Error(t, err)
}

func TestBuildFromConfig(t *testing.T) {
	factory := &fakeFactory{}
	items, err := ParseConfig([]byte(`
FakePlugin:
  message: hello
`))
	require.NoError(t, err)

	instances, err := NewConfigBuilder(items, newProvider(t, factory)).Build()
	require.NoError(t, err)

	require.Len(t, instances, 1)
	assert.Equal(t, "FakePlugin", instances[0].Name())
	require.Len(t, factory.created, 1)
	assert.Equal(t, "hello", factory.created[0].Message)
	// 未配置的可选参数保留工厂给的默认值
	assert.Equal(t, 1, factory.created[0].Count)
}

func TestBuildMatchesNameCaseInsensitively(t *testing.T) {
	items := []ConfigItem{{Name: "fakeplugin", Params: map[string]interface{}{"message": "hi"}}}

	instances, err := NewConfigBuilder(items, newProvider(t, &fakeFactory{})).Build()
	require.NoError(t, err)

	// 实例名用注册名，结果键不随配置大小写漂移
	assert.Equal(t, "FakePlugin", instances[0].Name())
}

func TestBuildUnknownPlugin(t *testing.T) {
	items := []ConfigItem{{Name: "NoSuchPlugin", Params: map[string]interface{}{}}}

	_, err := NewConfigBuilder(items, newProvider(t, &fakeFactory{})).Build()
	assert.ErrorIs(t, err, ErrPluginNotFound)
}

func TestBuildSuperfluousParameter(t *testing.T) {
	items := []ConfigItem{{Name: "FakePlugin", Params: map[string]interface{}{
		"message":     "hi",
		"superfluous": true,
	}}}

	_, err := NewConfigBuilder(items, newProvider(t, &fakeFactory{})).Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "superfluous")
}

func TestBuildMissingMandatoryParameter(t *testing.T) {
	items := []ConfigItem{{Name: "FakePlugin", Params: map[string]interface{}{"count": 3}}}

	_, err := NewConfigBuilder(items, newProvider(t, &fakeFactory{})).Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "message")
}

func TestStaticProviderRejectsDoubleRegistration(t *testing.T) {
	_, err := NewStaticProvider(&fakeFactory{}, &fakeFactory{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FakePlugin")
}

func TestConfigItemRoundTrip(t *testing.T) {
	factory := &fakeFactory{}
	items, err := ParseConfig([]byte(`
FakePlugin:
  message: hello
  count: 5
`))
	require.NoError(t, err)

	instances, err := NewConfigBuilder(items, newProvider(t, factory)).Build()
	require.NoError(t, err)

	// 配置项随实例保留，进程执行策略靠它在子进程重建插件
	item, err := instances[0].ConfigItem()
	require.NoError(t, err)

	rebuilt, err := NewConfigBuilder([]ConfigItem{item}, newProvider(t, &fakeFactory{})).Build()
	require.NoError(t, err)
	assert.Equal(t, "FakePlugin", rebuilt[0].Name())
}
