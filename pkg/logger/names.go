package logger

const (
	Main      = "main"
	Server    = "server"
	Transport = "transport"
	Sweep     = "sweep"
	Store     = "store"
	Admin     = "admin"
	Config    = "config"
	Metrics   = "metrics"
)
