package main

// Flag names for Viper binding
const (
	// Global flags
	FlagVerbose    = "verbose"
	FlagConfig     = "config"
	FlagLogFile    = "log-file"
	FlagStateFile  = "state-file"
	FlagSocketPath = "socket-path"

	// Tour command flags
	FlagTUI       = "tui"
	FlagDaemon    = "daemon"
	FlagScript    = "script"
	FlagEngine    = "engine"
	FlagNoVoice   = "no-voice"
	FlagAutoStart = "auto-start"
	FlagEndpoint  = "endpoint"

	// Serve command flags
	FlagAddr     = "addr"
	FlagProvider = "provider"
	FlagModel    = "model"
	FlagHistory  = "history-db"

	// Chat command flags
	FlagShowHistory = "history"
	FlagLimit       = "limit"

	// Identity command flags
	FlagReset = "reset"

	// Stop and init command flags
	FlagForce  = "force"
	FlagDryRun = "dry-run"

	// Events command flags
	FlagFollow = "follow"
	FlagCount  = "count"

	// Output format flags
	FlagJSON = "json"
)
