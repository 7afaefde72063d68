// Package logger — общая настройка slog: текстовый вывод в dev,
// JSON через zap с сэмплированием в prod.
package logger

import "log/slog"

var def *slog.Logger

// Init настраивает slog и делает его глобальным дефолтом.
func Init(cfg Config) {
	cfg = withDefaults(cfg)

	var h slog.Handler
	if cfg.Backend == BackendZap {
		h = newZapHandler(cfg)
	} else {
		h = newStdHandler(cfg)
	}
	h = h.WithAttrs(commonAttr(cfg))

	def = slog.New(h)
	slog.SetDefault(def)
}

func withDefaults(cfg Config) Config {
	if cfg.Env == "" {
		cfg.Env = DetectEnv()
	}
	if cfg.Service == "" {
		cfg.Service = "schedule-service"
	}
	if cfg.Backend == "" {
		if cfg.Env == EnvDev {
			cfg.Backend = BackendStd
		} else {
			cfg.Backend = BackendZap
		}
	}
	cfg.InstanceID = ensureInstanceID(cfg.InstanceID)
	return cfg
}

// L — настроенный логгер; до Init вернёт логгер с дефолтами.
func L() *slog.Logger {
	if def == nil {
		Init(Config{})
	}
	return def
}
