package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/blackjack/internal/game"
)

// ServerConfig represents the complete server configuration
type ServerConfig struct {
	Server ServerSettings `hcl:"server,block"`
	Rules  *RulesConfig   `hcl:"rules,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address     string `hcl:"address,optional"`
	Port        int    `hcl:"port,optional"`
	LogLevel    string `hcl:"log_level,optional"`
	DatabaseURL string `hcl:"database_url,optional"`
}

// RulesConfig overrides game rules. Zero values keep the defaults and
// durations use Go syntax ("1s", "500ms").
type RulesConfig struct {
	MaxPlayers       int    `hcl:"max_players,optional"`
	StartingChips    int    `hcl:"starting_chips,optional"`
	MaxRounds        int    `hcl:"max_rounds,optional"`
	BetSeconds       int    `hcl:"bet_seconds,optional"`
	ActionSeconds    int    `hcl:"action_seconds,optional"`
	NextRoundSeconds int    `hcl:"next_round_seconds,optional"`
	DeadlineGrace    string `hcl:"deadline_grace,optional"`
	RevealDelay      string `hcl:"reveal_delay,optional"`
	DealerTick       string `hcl:"dealer_tick,optional"`
	DealerStandsOn   int    `hcl:"dealer_stands_on,optional"`
	FinalDelay       string `hcl:"final_delay,optional"`
	CloseDelay       string `hcl:"close_delay,optional"`
	LeaderboardSize  int    `hcl:"leaderboard_size,optional"`
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
	}
}

// LoadServerConfig loads server configuration from HCL file
func LoadServerConfig(filename string) (*ServerConfig, error) {
	// Check if file exists
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultServerConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config ServerConfig
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	// Apply defaults for missing values
	if config.Server.Address == "" {
		config.Server.Address = "localhost"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = "info"
	}

	return &config, nil
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	switch c.Server.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Server.LogLevel)
	}

	rules, err := c.GameRules()
	if err != nil {
		return err
	}
	if err := rules.Validate(); err != nil {
		return fmt.Errorf("rules: %w", err)
	}

	return nil
}

// GetServerAddress returns the full server address
func (c *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// GameRules applies the rules block on top of game.DefaultRules
func (c *ServerConfig) GameRules() (game.Rules, error) {
	rules := game.DefaultRules()
	rc := c.Rules
	if rc == nil {
		return rules, nil
	}

	for _, o := range []struct {
		value int
		dst   *int
	}{
		{rc.MaxPlayers, &rules.MaxPlayers},
		{rc.StartingChips, &rules.StartingChips},
		{rc.MaxRounds, &rules.MaxRounds},
		{rc.BetSeconds, &rules.BetSeconds},
		{rc.ActionSeconds, &rules.ActionSeconds},
		{rc.NextRoundSeconds, &rules.NextRoundSeconds},
		{rc.DealerStandsOn, &rules.DealerStandsOn},
		{rc.LeaderboardSize, &rules.LeaderboardSize},
	} {
		if o.value != 0 {
			*o.dst = o.value
		}
	}

	for _, o := range []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"deadline_grace", rc.DeadlineGrace, &rules.DeadlineGrace},
		{"reveal_delay", rc.RevealDelay, &rules.RevealDelay},
		{"dealer_tick", rc.DealerTick, &rules.DealerTick},
		{"final_delay", rc.FinalDelay, &rules.FinalDelay},
		{"close_delay", rc.CloseDelay, &rules.CloseDelay},
	} {
		if o.value == "" {
			continue
		}
		d, err := time.ParseDuration(o.value)
		if err != nil {
			return game.Rules{}, fmt.Errorf("rules: %s: %w", o.name, err)
		}
		*o.dst = d
	}

	return rules, nil
}
