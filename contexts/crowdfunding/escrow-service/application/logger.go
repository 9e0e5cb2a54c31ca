package application

import "log/slog"

const ModuleName = "crowdfunding/escrow-service"

func ResolveLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}
