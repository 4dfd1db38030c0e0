package logger

import (
	"sync"

	"go.uber.org/zap"
)

var (
	once     sync.Once
	instance *zap.Logger
)

// Init inicializa el logger global. Idempotente: solo la primera llamada
// tiene efecto. Los comandos serve y seed la llaman antes de tocar storage.
func Init(cfg Config) {
	once.Do(func() {
		instance = build(cfg)
	})
}

// L retorna el logger global. Si Init no corrió todavía, arma uno por
// defecto (dev, info) para que los tests y helpers puedan loguear igual.
func L() *zap.Logger {
	if instance == nil {
		Init(Config{Env: "dev", Level: "info"})
	}
	return instance
}

// Sync flushea los buffers pendientes. Va con defer en los comandos.
func Sync() error {
	if instance != nil {
		return instance.Sync()
	}
	return nil
}
