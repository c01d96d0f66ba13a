package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Init installs the default slog logger. Production gets JSON lines, every
// other environment gets text. LOG_LEVEL overrides the environment's default.
func Init() {
	production := strings.EqualFold(os.Getenv("ENVIRONMENT"), "production")

	level := slog.LevelDebug
	if production {
		level = slog.LevelInfo
	}
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		level = ParseLevel(raw, level)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if production {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// ParseLevel maps debug, info, warn and error to slog levels
func ParseLevel(raw string, fallback slog.Level) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return fallback
}

// WithGoal scopes a logger to a goal and the user acting on it.
func WithGoal(goalID, userID string) *slog.Logger {
	return slog.With("goal_id", goalID, "user_id", userID)
}

// WithJob scopes a logger to a queued plan generation.
func WithJob(jobID, goalID string) *slog.Logger {
	return slog.With("job_id", jobID, "goal_id", goalID)
}
