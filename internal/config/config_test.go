package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNodeSeedIDIsStableForName(t *testing.T) {
	a := NodeSeed{Name: "wash-1"}
	b := NodeSeed{Name: "wash-1"}
	c := NodeSeed{Name: "wash-2"}

	require.Equal(t, a.ID(), b.ID())
	require.NotEqual(t, a.ID(), c.ID())
}

func TestNodeSeedBufferDecodesHexIgnoringWhitespace(t *testing.T) {
	seed := NodeSeed{Name: "n", Channels: "ff 00\nff 00 " + repeat("00", 508)}
	buf, err := seed.Buffer()
	require.NoError(t, err)
	require.Equal(t, byte(0xff), buf[0])
	require.Equal(t, byte(0x00), buf[1])
}

func TestNodeSeedBufferRejectsWrongLength(t *testing.T) {
	seed := NodeSeed{Name: "n", Channels: "ff00"}
	_, err := seed.Buffer()
	require.Error(t, err)
}

func TestNodeSeedBufferRejectsInvalidHex(t *testing.T) {
	seed := NodeSeed{Name: "n", Channels: "zz" + repeat("00", 255)}
	_, err := seed.Buffer()
	require.Error(t, err)
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("DMXMIXER_SERVER_PORT", "")
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, 8082, cfg.Server.Port)
	require.Equal(t, 30, cfg.Actor.QueueCapacity)
	require.Equal(t, "127.0.0.1:9010", cfg.Broker.Address)
	require.Equal(t, "info", cfg.Logging.Level)
	require.True(t, cfg.Metrics.Enabled)
}

func TestLoadHonorsEnvOverride(t *testing.T) {
	t.Setenv("DMXMIXER_SERVER_PORT", "9999")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 9999, cfg.Server.Port)
}

func repeat(s string, n int) string {
	out := make([]byte, 0, len(s)*n)
	for i := 0; i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}
