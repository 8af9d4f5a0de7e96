package log

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu      sync.Mutex
	root    *zap.Logger
	level   zap.AtomicLevel
	loggers = make(map[string]*zap.SugaredLogger)
)

func init() {
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stderr),
		level,
	)
	root = zap.New(core)
}

// Logger returns a named sugared logger; the same name always returns
// the same instance.
func Logger(name string) *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[name]; ok {
		return l
	}
	l := root.Named(name).Sugar()
	loggers[name] = l
	return l
}

// SetLevel changes the level for all named loggers.
func SetLevel(l zapcore.Level) {
	level.SetLevel(l)
}
