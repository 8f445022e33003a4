package service

const (
	Type       = "sshtunnel"
	PrettyName = "SSH Tunnel Manager"
)

// Overridden at build time via -ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)
