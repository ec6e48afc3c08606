package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Environment string
	Node        NodeConfig
	HTTP        HTTPConfig
	Peer        PeerConfig
	Database    DatabaseConfig
	Files       FilesConfig
	Redis       RedisConfig
	AMQP        AMQPConfig
	Tracing     TracingConfig
	Debug       DebugConfig
}

type NodeConfig struct {
	ID string
}

type HTTPConfig struct {
	Port string
}

type PeerConfig struct {
	Port            string
	Timeout         time.Duration
	FileTimeout     time.Duration
	RetryMaxElapsed time.Duration
	Parallelism     int
	DefaultPort     string
	// AdvertiseAddr is published to the peer directory; empty disables registration.
	AdvertiseAddr string
	// Peers maps node identities to dialable host:port addresses.
	Peers map[string]string
}

type DatabaseConfig struct {
	DSN string
}

const (
	FilesBackendFS = "fs"
	FilesBackendS3 = "s3"
)

type FilesConfig struct {
	Backend  string
	Root     string
	S3Bucket string
	S3Region string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

type AMQPConfig struct {
	URL      string
	Exchange string
}

type TracingConfig struct {
	Endpoint    string
	ServiceName string
}

type DebugConfig struct {
	Enabled bool
}

// IsDevelopment reports whether the node runs with development logging.
func (c Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Load reads an optional .env file, then app.yaml, then the environment.
// Keys map to env vars with dots replaced by underscores (peer.timeout ->
// PEER_TIMEOUT).
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("app")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("node.id", "")
	v.SetDefault("http.port", "8080")
	v.SetDefault("peer.port", "9090")
	v.SetDefault("peer.timeout", 30*time.Second)
	v.SetDefault("peer.file_timeout", 30*time.Second)
	v.SetDefault("peer.retry_max_elapsed", 5*time.Second)
	v.SetDefault("peer.parallelism", 1)
	v.SetDefault("peer.default_port", "9090")
	v.SetDefault("peer.advertise_addr", "")
	v.SetDefault("peer.peers", "")
	v.SetDefault("database.dsn", "")
	v.SetDefault("files.backend", FilesBackendFS)
	v.SetDefault("files.root", "./data")
	v.SetDefault("files.s3_bucket", "")
	v.SetDefault("files.s3_region", "us-east-1")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "chatnode:peer:")
	v.SetDefault("redis.ttl", time.Minute)
	v.SetDefault("amqp.url", "")
	v.SetDefault("amqp.exchange", "chat.node.events")
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.service_name", "chat-node")
	v.SetDefault("debug.enabled", false)
}

func fromViper(v *viper.Viper) (Config, error) {
	peers, err := ParsePeers(v.GetString("peer.peers"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Environment: v.GetString("environment"),
		Node:        NodeConfig{ID: strings.TrimSpace(v.GetString("node.id"))},
		HTTP:        HTTPConfig{Port: v.GetString("http.port")},
		Peer: PeerConfig{
			Port:            v.GetString("peer.port"),
			Timeout:         v.GetDuration("peer.timeout"),
			FileTimeout:     v.GetDuration("peer.file_timeout"),
			RetryMaxElapsed: v.GetDuration("peer.retry_max_elapsed"),
			Parallelism:     v.GetInt("peer.parallelism"),
			DefaultPort:     v.GetString("peer.default_port"),
			AdvertiseAddr:   v.GetString("peer.advertise_addr"),
			Peers:           peers,
		},
		Database: DatabaseConfig{DSN: v.GetString("database.dsn")},
		Files: FilesConfig{
			Backend:  strings.ToLower(v.GetString("files.backend")),
			Root:     v.GetString("files.root"),
			S3Bucket: v.GetString("files.s3_bucket"),
			S3Region: v.GetString("files.s3_region"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			Prefix:   v.GetString("redis.prefix"),
			TTL:      v.GetDuration("redis.ttl"),
		},
		AMQP: AMQPConfig{
			URL:      v.GetString("amqp.url"),
			Exchange: v.GetString("amqp.exchange"),
		},
		Tracing: TracingConfig{
			Endpoint:    v.GetString("tracing.endpoint"),
			ServiceName: v.GetString("tracing.service_name"),
		},
		Debug: DebugConfig{Enabled: v.GetBool("debug.enabled")},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Peer.Timeout <= 0 {
		return fmt.Errorf("peer.timeout must be positive, got %s", c.Peer.Timeout)
	}
	if c.Peer.FileTimeout <= 0 {
		return fmt.Errorf("peer.file_timeout must be positive, got %s", c.Peer.FileTimeout)
	}
	if c.Peer.Parallelism < 1 {
		return fmt.Errorf("peer.parallelism must be at least 1, got %d", c.Peer.Parallelism)
	}
	switch c.Files.Backend {
	case FilesBackendFS:
	case FilesBackendS3:
		if c.Files.S3Bucket == "" {
			return fmt.Errorf("files.s3_bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("unknown files.backend %q", c.Files.Backend)
	}
	return nil
}

// ParsePeers reads "alice.os=10.0.0.2:9090,bob.os=10.0.0.3:9090".
func ParsePeers(raw string) (map[string]string, error) {
	peers := make(map[string]string)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		identity, addr, ok := strings.Cut(entry, "=")
		identity = strings.TrimSpace(identity)
		addr = strings.TrimSpace(addr)
		if !ok || identity == "" || addr == "" {
			return nil, fmt.Errorf("invalid peer entry %q, want identity=host:port", entry)
		}
		peers[identity] = addr
	}
	return peers, nil
}
