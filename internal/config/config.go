package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"time"
)

// Config is the top-level configuration structure.
type Config struct {
	Server    ServerConfig     `json:"server"`
	Providers []ProviderConfig `json:"providers"`
	Debate    DebateConfig     `json:"debate"`
	Autonomy  AutonomyConfig   `json:"autonomy"`
	World     WorldConfig      `json:"world"`
	Relays    RelayConfig      `json:"relays"`
	Database  DatabaseConfig   `json:"database"`
}

type ServerConfig struct {
	Port     int    `json:"port"`
	LogLevel string `json:"log_level"`
}

type ProviderConfig struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Name     string `json:"name"`
	Endpoint string `json:"endpoint"`
	APIKey   string `json:"api_key"`
	Model    string `json:"model"`
}

// DebateConfig holds phase timings for the debate cycle. Phase durations are
// minimum display times for connected clients, not generation timeouts.
type DebateConfig struct {
	ProposalSeconds   int `json:"proposal_seconds"`
	ChallengeSeconds  int `json:"challenge_seconds"`
	VotingSeconds     int `json:"voting_seconds"`
	ResultSeconds     int `json:"result_seconds"`
	CyclePauseSeconds int `json:"cycle_pause_seconds"`
}

type AutonomyConfig struct {
	PollIntervalSeconds int `json:"poll_interval_seconds"`
}

type WorldConfig struct {
	MinStructureDistance float64 `json:"min_structure_distance"`
	MaxStructures        int     `json:"max_structures"`
}

type RelayConfig struct {
	Discord DiscordRelayConfig `json:"discord"`
	Slack   SlackRelayConfig   `json:"slack"`
}

type DiscordRelayConfig struct {
	Enabled   bool   `json:"enabled"`
	BotToken  string `json:"bot_token"`
	ChannelID string `json:"channel_id"`
}

type SlackRelayConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
	Channel  string `json:"channel"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `json:"postgres"`
	Neo4j    Neo4jConfig    `json:"neo4j"`
	Redis    RedisConfig    `json:"redis"`
}

type PostgresConfig struct {
	DSN string `json:"dsn"`
}

type Neo4jConfig struct {
	URI      string `json:"uri"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type RedisConfig struct {
	URL string `json:"url"`
}

func (d DebateConfig) ProposalDuration() time.Duration {
	return time.Duration(d.ProposalSeconds) * time.Second
}

func (d DebateConfig) ChallengeDuration() time.Duration {
	return time.Duration(d.ChallengeSeconds) * time.Second
}

func (d DebateConfig) VotingDuration() time.Duration {
	return time.Duration(d.VotingSeconds) * time.Second
}

func (d DebateConfig) ResultDuration() time.Duration {
	return time.Duration(d.ResultSeconds) * time.Second
}

func (d DebateConfig) CyclePause() time.Duration {
	return time.Duration(d.CyclePauseSeconds) * time.Second
}

// PollInterval returns the autonomy loop tick interval.
func (a AutonomyConfig) PollInterval() time.Duration {
	return time.Duration(a.PollIntervalSeconds) * time.Second
}

// envVarRe matches ${VAR} and ${VAR:default} patterns.
var envVarRe = regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

// Load reads a JSON config file and substitutes environment variable references.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	// Substitute ${VAR} and ${VAR:default} with environment values.
	resolved := envVarRe.ReplaceAllStringFunc(string(data), func(match string) string {
		parts := envVarRe.FindStringSubmatch(match)
		name := parts[1]
		defaultVal := parts[2]
		if v := os.Getenv(name); v != "" {
			return v
		}
		return defaultVal
	})

	var cfg Config
	if err := json.Unmarshal([]byte(resolved), &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a config with all defaults applied, for use without a file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Debate.ProposalSeconds == 0 {
		c.Debate.ProposalSeconds = 15
	}
	if c.Debate.ChallengeSeconds == 0 {
		c.Debate.ChallengeSeconds = 20
	}
	if c.Debate.VotingSeconds == 0 {
		c.Debate.VotingSeconds = 15
	}
	if c.Debate.ResultSeconds == 0 {
		c.Debate.ResultSeconds = 10
	}
	if c.Debate.CyclePauseSeconds == 0 {
		c.Debate.CyclePauseSeconds = 2
	}
	if c.Autonomy.PollIntervalSeconds == 0 {
		c.Autonomy.PollIntervalSeconds = 5
	}
	if c.World.MinStructureDistance == 0 {
		c.World.MinStructureDistance = 5.0
	}
	if c.World.MaxStructures == 0 {
		c.World.MaxStructures = 500
	}
}
