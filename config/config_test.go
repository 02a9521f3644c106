package config

import (
	"crypto/ed25519"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-syncmesh/pkg/types"
)

func TestNewConfig_Valid(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 500*time.Millisecond, cfg.Liveness.Grace.Std())
	assert.Equal(t, 3*time.Second, cfg.Liveness.Interval.Std())
	assert.True(t, cfg.Broadcast.Scoped)
	assert.True(t, cfg.Sync.RequireSignature)
}

func TestValidate_Nil(t *testing.T) {
	var cfg *Config
	assert.ErrorIs(t, cfg.Validate(), ErrNilConfig)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"queue", func(c *Config) { c.Broadcast.QueueSize = 0 }, "config.broadcast"},
		{"listen", func(c *Config) { c.Transport.ListenAddrs = []string{"nope"} }, "config.transport"},
		{"backoff", func(c *Config) { c.Liveness.MaxBackoff = Duration(time.Second) }, "config.liveness"},
		{"membership", func(c *Config) { c.Sync.RequireSignature = false }, "config.sync"},
		{"known peer", func(c *Config) {
			c.Discovery.KnownPeers = []KnownPeer{{PeerID: "bad", Addrs: []string{"1.2.3.4:1"}}}
		}, "config.discovery"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLivenessDisabled_SkipsChecks(t *testing.T) {
	cfg := NewConfig()
	cfg.Liveness = LivenessConfig{Enable: false}
	assert.NoError(t, cfg.Validate())
}

func TestFromJSON_KeepsDefaults(t *testing.T) {
	cfg, err := FromJSON([]byte(`{"node":{"name":"nas"},"liveness":{"enable":true,"grace":"1s","interval":"5s","max_backoff":"1m"}}`))
	require.NoError(t, err)

	assert.Equal(t, "nas", cfg.Node.Name)
	assert.Equal(t, 5*time.Second, cfg.Liveness.Interval.Std())
	assert.Equal(t, 1024, cfg.Broadcast.QueueSize)
}

func TestFromJSON_BadDuration(t *testing.T) {
	_, err := FromJSON([]byte(`{"liveness":{"interval":"soon"}}`))
	assert.Error(t, err)
}

func TestSaveLoadFile(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	cfg := NewConfig()
	cfg.Node.Name = "desk"
	cfg.Discovery.KnownPeers = []KnownPeer{{
		PeerID: types.PeerIDFromPublicKey(pub).String(),
		Addrs:  []string{"192.168.1.10:7373"},
	}}

	path := filepath.Join(t.TempDir(), "syncmesh.json")
	require.NoError(t, cfg.SaveFile(path))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestClone_Independent(t *testing.T) {
	cfg := NewConfig()
	cfg.Discovery.KnownPeers = []KnownPeer{{PeerID: "x", Addrs: []string{"a"}}}

	clone := cfg.Clone()
	clone.Transport.ListenAddrs[0] = "127.0.0.1:1"
	clone.Discovery.KnownPeers[0].Addrs[0] = "b"

	assert.Equal(t, "0.0.0.0:0", cfg.Transport.ListenAddrs[0])
	assert.Equal(t, "a", cfg.Discovery.KnownPeers[0].Addrs[0])
}

func TestDuration_JSONNumber(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalJSON([]byte(`1500000000`)))
	assert.Equal(t, 1500*time.Millisecond, d.Std())

	out, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"1.5s"`, string(out))
}
