package config

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// NodeNamespace seeds the UUIDv5 namespace used to turn a config-file node
// name into a stable ID: the same name in graph.nodes always maps to the
// same ID across restarts, the way cbmix's scene config keys its nodes by
// name rather than by a generated UUID.
var NodeNamespace = uuid.MustParse("6f1e5f1a-9c2e-4f0a-9f3b-2b9c9b6e6a10")

// Config holds all runtime configuration for the mixer process.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Actor   ActorConfig   `mapstructure:"actor"`
	Graph   GraphConfig   `mapstructure:"graph"`
	Broker  BrokerConfig  `mapstructure:"broker"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig contains network settings for the admin WebSocket listener.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ReadBufferSize  int           `mapstructure:"read_buffer_size"`
	WriteBufferSize int           `mapstructure:"write_buffer_size"`
}

// ActorConfig controls the scene graph actor's command queue.
type ActorConfig struct {
	QueueCapacity  int           `mapstructure:"queue_capacity"`
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
}

// NodeKind names a node variant as written in config.
type NodeKind string

const (
	NodeKindStatic   NodeKind = "static"
	NodeKindAdd      NodeKind = "add"
	NodeKindMultiply NodeKind = "multiply"
	NodeKindRewire   NodeKind = "rewire"
)

// NodeSeed describes one node to create at startup, keyed by a stable name
// rather than a UUID — the ID handed to the graph is derived from Name via
// NodeNamespace so the same config always reconstructs the same graph
// topology (mirrors cbmix's node table keyed by string, config.rs above).
type NodeSeed struct {
	Name     string   `mapstructure:"name"`
	Kind     NodeKind `mapstructure:"type"`
	Channels string   `mapstructure:"channels"` // hex, NodeKindStatic only
	A        string   `mapstructure:"a"`        // node name, NodeKindAdd/Multiply
	B        string   `mapstructure:"b"`        // node name, NodeKindAdd/Multiply
	Input    string   `mapstructure:"input"`    // node name, NodeKindRewire
	Map      []int    `mapstructure:"map"`      // NodeKindRewire
}

// ID returns the UUIDv5 this seed's name maps to.
func (s NodeSeed) ID() uuid.UUID {
	return uuid.NewSHA1(NodeNamespace, []byte(s.Name))
}

// Buffer decodes Channels as a 512-byte DMX frame.
func (s NodeSeed) Buffer() ([512]byte, error) {
	var out [512]byte
	clean := strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, s.Channels)
	decoded, err := hex.DecodeString(clean)
	if err != nil {
		return out, fmt.Errorf("config: node %q channels: %w", s.Name, err)
	}
	if len(decoded) != 512 {
		return out, fmt.Errorf("config: node %q channels: want 512 bytes, got %d", s.Name, len(decoded))
	}
	copy(out[:], decoded)
	return out, nil
}

// GraphConfig lists the nodes to seed into the scene graph at startup, in
// order — later entries may reference earlier ones by name.
type GraphConfig struct {
	Nodes []NodeSeed `mapstructure:"nodes"`
}

// UniverseMapping binds a DMX universe number to a node name: Output
// entries read a node's frame onto the wire, Input entries write frames
// received from the broker for that universe into the node.
type UniverseMapping struct {
	Universe uint32 `mapstructure:"universe"`
	Node     string `mapstructure:"node"`
}

// BrokerConfig controls the connection to the DMX broker (e.g. OLA) that
// this process exchanges universes with.
type BrokerConfig struct {
	Address string            `mapstructure:"address"`
	Outputs []UniverseMapping `mapstructure:"outputs"`
	Inputs  []UniverseMapping `mapstructure:"inputs"`
}

// MetricsConfig controls Prometheus/diagnostics endpoints.
type MetricsConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ListenAddr  string `mapstructure:"listen_addr"`
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
}

// LoggingConfig controls zap logger level/encoding.
type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Load reads configuration from environment variables and an optional
// config file named "dmxmixer.{yaml,toml,json,...}" on the search path.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8082)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.read_buffer_size", 16<<10)
	v.SetDefault("server.write_buffer_size", 16<<10)

	v.SetDefault("actor.queue_capacity", 30)
	v.SetDefault("actor.command_timeout", 5*time.Second)

	v.SetDefault("broker.address", "127.0.0.1:9010")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.listen_addr", ":9095")
	v.SetDefault("metrics.endpoint", "/metrics")
	v.SetDefault("metrics.service_name", "dmxmixer")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)

	v.SetConfigName("dmxmixer")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvPrefix("DMXMIXER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.ReadInConfig()

	var cfg Config
	decodeHook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook)); err != nil {
		return Config{}, fmt.Errorf("config unmarshal: %w", err)
	}

	if cfg.Actor.QueueCapacity <= 0 {
		cfg.Actor.QueueCapacity = 30
	}

	return cfg, nil
}
