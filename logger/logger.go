// Package logger configures the process-wide zap logger: a human-readable
// console core plus a rotating JSON file for post-mortem analysis.
package logger

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	log  *zap.Logger
	once sync.Once
)

// Init builds the global logger. Safe to call more than once; only the
// first call takes effect.
func Init(logDir string, debug bool) {
	once.Do(func() {
		if logDir == "" {
			logDir = "logs"
		}
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			panic(err)
		}

		consoleCfg := zap.NewDevelopmentEncoderConfig()
		consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		consoleCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
		consoleCore := zapcore.NewCore(
			zapcore.NewConsoleEncoder(consoleCfg),
			zapcore.AddSync(os.Stdout),
			level(debug),
		)

		fileCfg := zap.NewProductionEncoderConfig()
		fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		fileCore := zapcore.NewCore(
			zapcore.NewJSONEncoder(fileCfg),
			zapcore.AddSync(&lumberjack.Logger{
				Filename:   filepath.Join(logDir, "obtrader.json"),
				MaxSize:    10, // MB
				MaxBackups: 10,
				MaxAge:     30, // days
				Compress:   true,
			}),
			zapcore.InfoLevel,
		)

		log = zap.New(zapcore.NewTee(consoleCore, fileCore), zap.AddCaller())
		zap.ReplaceGlobals(log)
	})
}

func level(debug bool) zapcore.LevelEnabler {
	if debug {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}

// Module returns a child logger tagged with a module name.
func Module(name string) *zap.Logger {
	if log == nil {
		Init("", false)
	}
	return log.With(zap.String("module", name))
}

// Sync flushes buffered log entries. Call before process exit.
func Sync() {
	if log != nil {
		_ = log.Sync()
	}
}
