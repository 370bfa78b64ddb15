package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewConfig 测试创建默认配置
func TestNewConfig(t *testing.T) {
	cfg := NewConfig()
	require.NotNil(t, cfg)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DefaultListenPort, cfg.Node.ListenPort)
	assert.Equal(t, []string{"127.0.0.1:5000"}, cfg.Node.BootstrapPeers)
	assert.Equal(t, "messages", cfg.Session.Key)
	assert.Equal(t, 5*time.Second, cfg.Session.SettleDelay.Duration())
	assert.Equal(t, time.Second, cfg.Session.PollInterval.Duration())
}

// TestConfig_Validate 测试配置验证
func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"NegativePort", func(c *Config) { c.Node.ListenPort = -1 }},
		{"PortTooLarge", func(c *Config) { c.Node.ListenPort = 70000 }},
		{"BadBootstrap", func(c *Config) { c.Node.BootstrapPeers = []string{"no-port"} }},
		{"EmptyKey", func(c *Config) { c.Session.Key = "" }},
		{"ZeroPollInterval", func(c *Config) { c.Session.PollInterval = 0 }},
		{"ZeroCrawlConcurrency", func(c *Config) { c.Crawl.Concurrency = 0 }},
		{"ZeroHarvestConcurrency", func(c *Config) { c.Harvest.Concurrency = 0 }},
		{"ZeroBucketSize", func(c *Config) { c.DHT.BucketSize = 0 }},
		{"ZeroRPCTimeout", func(c *Config) { c.DHT.RPCTimeout = 0 }},
		{"NegativeInboundRate", func(c *Config) { c.DHT.InboundRate = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	var nilCfg *Config
	assert.Error(t, nilCfg.Validate())
}

// TestFromJSON 测试部分 JSON 覆盖默认值
func TestFromJSON(t *testing.T) {
	cfg, err := FromJSON([]byte(`{
		"node": {"listen_port": 6001, "bootstrap_peers": ["10.0.0.1:5000"]},
		"session": {"key": "inbox", "settle_delay": "250ms"},
		"dht": {"rpc_timeout": 1000000000}
	}`))
	require.NoError(t, err)

	assert.Equal(t, 6001, cfg.Node.ListenPort)
	assert.Equal(t, []string{"10.0.0.1:5000"}, cfg.Node.BootstrapPeers)
	assert.Equal(t, "inbox", cfg.Session.Key)
	assert.Equal(t, 250*time.Millisecond, cfg.Session.SettleDelay.Duration())
	assert.Equal(t, time.Second, cfg.DHT.RPCTimeout.Duration())
	// 未出现的字段保持默认
	assert.Equal(t, time.Second, cfg.Session.PollInterval.Duration())
	assert.Equal(t, 20, cfg.DHT.BucketSize)

	_, err = FromJSON([]byte(`{"session": {"settle_delay": "soon"}}`))
	assert.Error(t, err)
}

// TestLoadFile 测试从文件加载
func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mailx.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"session": {"watch": true}}`), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.True(t, cfg.Session.Watch)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

// TestApplyEnv 测试环境变量覆盖
func TestApplyEnv(t *testing.T) {
	t.Setenv("MAILX_LISTEN_PORT", "7001")
	t.Setenv("MAILX_BOOTSTRAP_PEERS", " 1.2.3.4:5000 , ,5.6.7.8:5000")
	t.Setenv("MAILX_KEY", "inbox")
	t.Setenv("MAILX_SETTLE_DELAY", "2s")
	t.Setenv("MAILX_WATCH", "yes")
	t.Setenv("MAILX_METRICS_ADDR", ":9100")

	cfg := NewConfig()
	cfg.ApplyEnv()

	assert.Equal(t, 7001, cfg.Node.ListenPort)
	assert.Equal(t, []string{"1.2.3.4:5000", "5.6.7.8:5000"}, cfg.Node.BootstrapPeers)
	assert.Equal(t, "inbox", cfg.Session.Key)
	assert.Equal(t, 2*time.Second, cfg.Session.SettleDelay.Duration())
	assert.True(t, cfg.Session.Watch)
	assert.Equal(t, ":9100", cfg.Metrics.ListenAddr)
}

// TestApplyEnv_IgnoresGarbage 测试无法解析的值被忽略
func TestApplyEnv_IgnoresGarbage(t *testing.T) {
	t.Setenv("MAILX_LISTEN_PORT", "not-a-port")
	t.Setenv("MAILX_SETTLE_DELAY", "later")

	cfg := NewConfig()
	cfg.ApplyEnv()

	assert.Equal(t, DefaultListenPort, cfg.Node.ListenPort)
	assert.Equal(t, 5*time.Second, cfg.Session.SettleDelay.Duration())
}

// TestDuration_JSON 测试 Duration 编解码
func TestDuration_JSON(t *testing.T) {
	d := Duration(1500 * time.Millisecond)
	data, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"1.5s"`, string(data))

	var parsed Duration
	require.NoError(t, parsed.UnmarshalJSON(data))
	assert.Equal(t, d, parsed)

	assert.Error(t, parsed.UnmarshalJSON([]byte(`true`)))
	assert.Error(t, parsed.UnmarshalJSON([]byte(`1.5`)))
	assert.Error(t, parsed.UnmarshalJSON([]byte(`"-1s"`)))

	require.NoError(t, parsed.UnmarshalJSON([]byte(`2000000000`)))
	assert.Equal(t, 2*time.Second, parsed.Duration())
}

// TestParseDuration 测试时长解析
func TestParseDuration(t *testing.T) {
	d, err := ParseDuration("250ms")
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, d.Duration())

	d, err = ParseDuration("1000")
	require.NoError(t, err)
	assert.Equal(t, time.Microsecond, d.Duration())

	_, err = ParseDuration("later")
	assert.Error(t, err)

	_, err = ParseDuration("-5s")
	assert.ErrorIs(t, err, errNegativeDuration)
}
