// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"time"
)

// AuthMode selects the primary authentication validator.
type AuthMode string

const (
	// AuthModeNone accepts every request. Development only, or behind an
	// authenticating ingress.
	AuthModeNone AuthMode = "none"
	// AuthModeBasic validates Basic credentials against the users file.
	AuthModeBasic AuthMode = "basic"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr   string
	DBPath       string
	TargetsFile  string
	AuthMode     AuthMode
	UsersFile    string
	ProbeTimeout time.Duration
}

// Load reads configuration from environment variables and returns a validated
// Config. Optional variables with defaults: CREDGATE_LISTEN_ADDR
// (127.0.0.1:8181), CREDGATE_DB_PATH (credgate.db), CREDGATE_TARGETS_FILE
// (targets.json), CREDGATE_AUTH (none), CREDGATE_PROBE_TIMEOUT (5s).
// CREDGATE_USERS_FILE is required when CREDGATE_AUTH=basic.
func Load() (*Config, error) {
	listenAddr := "127.0.0.1:8181"
	if v, ok := os.LookupEnv("CREDGATE_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "credgate.db"
	if v, ok := os.LookupEnv("CREDGATE_DB_PATH"); ok {
		dbPath = v
	}

	targetsFile := "targets.json"
	if v, ok := os.LookupEnv("CREDGATE_TARGETS_FILE"); ok {
		targetsFile = v
	}

	authMode := AuthModeNone
	if v, ok := os.LookupEnv("CREDGATE_AUTH"); ok {
		switch AuthMode(v) {
		case AuthModeNone, AuthModeBasic:
			authMode = AuthMode(v)
		default:
			return nil, fmt.Errorf("CREDGATE_AUTH has invalid mode %q: want %q or %q", v, AuthModeNone, AuthModeBasic)
		}
	}

	usersFile := os.Getenv("CREDGATE_USERS_FILE")
	if authMode == AuthModeBasic && usersFile == "" {
		return nil, fmt.Errorf("CREDGATE_USERS_FILE is required when CREDGATE_AUTH=%s", AuthModeBasic)
	}

	probeTimeout := 5 * time.Second
	if v, ok := os.LookupEnv("CREDGATE_PROBE_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("CREDGATE_PROBE_TIMEOUT has invalid duration %q: %w", v, err)
		}
		probeTimeout = parsed
	}

	return &Config{
		ListenAddr:   listenAddr,
		DBPath:       dbPath,
		TargetsFile:  targetsFile,
		AuthMode:     authMode,
		UsersFile:    usersFile,
		ProbeTimeout: probeTimeout,
	}, nil
}
