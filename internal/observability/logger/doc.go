// Package logger expone el zap logger global del servicio y su scoping por
// contexto.
//
// Hay una sola instancia, inicializada con Init() desde el comando. El
// middleware HTTP inyecta con ToContext un logger derivado con request_id,
// y el resto del código lo recupera con From(ctx); si el contexto no trae
// logger, From cae al global.
//
//	logger.Init(logger.Config{
//	    Env:         cfg.App.Env,      // "dev", "staging" o "prod"
//	    Level:       cfg.App.LogLevel, // "debug", "info", "warn", "error"
//	    ServiceName: "doorman",
//	})
//	defer logger.Sync()
//
//	log := logger.From(ctx)
//	log.Info("session created", logger.Username(u), logger.ClientID(c))
//
// En dev loguea a consola con colores; en staging y prod loguea JSON con
// stacktrace a partir de error.
package logger
