package logger

import (
	"log/slog"
	"os"

	"github.com/google/uuid"
)

// ensureInstanceID: hostname плюс короткий случайный суффикс,
// чтобы реплики были различимы в агрегированных логах.
func ensureInstanceID(v string) string {
	if v != "" {
		return v
	}
	hn, err := os.Hostname()
	if err != nil || hn == "" {
		hn = "schedule"
	}
	return hn + "-" + uuid.NewString()[:8]
}

// commonAttr — постоянные атрибуты каждой записи.
func commonAttr(cfg Config) []slog.Attr {
	return []slog.Attr{
		slog.String("service", cfg.Service),
		slog.String("env", string(cfg.Env)),
		slog.String("version", cfg.Version),
		slog.String("instance_id", cfg.InstanceID),
		slog.Int("pid", os.Getpid()),
	}
}
