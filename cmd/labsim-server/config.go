package main

import (
	"flag"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// ServerConfig holds the server configuration
type ServerConfig struct {
	Addr               string
	StoreDriver        string // "sqlite" or "postgres"
	StoreDSN           string // file path for sqlite, DSN for postgres
	SceneFile          string
	SnapshotDir        string
	SnapshotEveryTicks int
	TickIntervalMs     int
	LogLevel           string
}

// configResolver defines how to resolve a single configuration value
type configResolver struct {
	flagName    string
	envVarName  string
	defaultVal  string
	description string
	setter      func(*ServerConfig, string)
}

// loadServerConfig loads server configuration from CLI flags, environment
// variables, and an optional .env file. Uses a resolver pattern to make it
// easy to add new configuration options.
func loadServerConfig() ServerConfig {
	// A missing .env file is fine; explicit env vars still apply.
	_ = godotenv.Load()

	cfg := ServerConfig{}

	// Define all configuration resolvers
	// To add a new option, just add a new resolver here
	resolvers := []configResolver{
		{
			flagName:    "addr",
			envVarName:  "LABSIM_ADDR",
			defaultVal:  ":8080",
			description: "HTTP listen address (e.g. :8080, 0.0.0.0:8080)",
			setter:      func(c *ServerConfig, v string) { c.Addr = v },
		},
		{
			flagName:    "store-driver",
			envVarName:  "LABSIM_STORE_DRIVER",
			defaultVal:  "sqlite",
			description: "experiment/progress store driver: sqlite or postgres",
			setter:      func(c *ServerConfig, v string) { c.StoreDriver = v },
		},
		{
			flagName:    "store-dsn",
			envVarName:  "LABSIM_STORE_DSN",
			defaultVal:  "./data/labsim.db",
			description: "store DSN: file path for sqlite, connection string for postgres",
			setter:      func(c *ServerConfig, v string) { c.StoreDSN = v },
		},
		{
			flagName:    "scene-file",
			envVarName:  "LABSIM_SCENE_FILE",
			defaultVal:  "",
			description: "optional path to a JSON scene config to load into a default session at startup",
			setter:      func(c *ServerConfig, v string) { c.SceneFile = v },
		},
		{
			flagName:    "snapshot-dir",
			envVarName:  "LABSIM_SNAPSHOT_DIR",
			defaultVal:  "./data",
			description: "Directory where session snapshots are stored",
			setter:      func(c *ServerConfig, v string) { c.SnapshotDir = v },
		},
		{
			flagName:    "snapshot-every-ticks",
			envVarName:  "LABSIM_SNAPSHOT_EVERY_TICKS",
			defaultVal:  "1000",
			description: "How often to write snapshots (in number of ticks); 0 disables periodic snapshots",
			setter: func(c *ServerConfig, v string) {
				if val, err := strconv.Atoi(v); err == nil {
					c.SnapshotEveryTicks = val
				} else {
					log.Printf("Invalid value for snapshot-every-ticks: %s, using default 1000", v)
					c.SnapshotEveryTicks = 1000
				}
			},
		},
		{
			flagName:    "tick-interval-ms",
			envVarName:  "LABSIM_TICK_INTERVAL_MS",
			defaultVal:  "16",
			description: "Frame interval in milliseconds for auto-running sessions",
			setter: func(c *ServerConfig, v string) {
				if val, err := strconv.Atoi(v); err == nil && val > 0 {
					c.TickIntervalMs = val
				} else {
					log.Printf("Invalid value for tick-interval-ms: %s, using default 16", v)
					c.TickIntervalMs = 16
				}
			},
		},
		{
			flagName:    "log-level",
			envVarName:  "LABSIM_LOG_LEVEL",
			defaultVal:  "info",
			description: "Log level: debug, info, warn, error",
			setter:      func(c *ServerConfig, v string) { c.LogLevel = v },
		},
	}

	// Register string flags first
	flagVars := make(map[string]*string)
	for _, resolver := range resolvers {
		flagVars[resolver.flagName] = flag.String(resolver.flagName, "", resolver.description)
	}

	// Parse flags once
	flag.Parse()

	// Resolve values for each resolver
	for _, resolver := range resolvers {
		var value string
		if *flagVars[resolver.flagName] != "" {
			value = *flagVars[resolver.flagName]
		} else if envValue := os.Getenv(resolver.envVarName); envValue != "" {
			value = envValue
		} else {
			value = resolver.defaultVal
		}
		resolver.setter(&cfg, value)
	}

	return cfg
}
