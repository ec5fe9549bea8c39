package commons

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the application wide logging contract. Every component receives
// one by injection; there is no package level logger.
type Logger interface {
	Debug(args ...interface{})
	Debugf(template string, args ...interface{})
	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Warn(args ...interface{})
	Warnf(template string, args ...interface{})
	Error(args ...interface{})
	Errorf(template string, args ...interface{})
	Fatalf(template string, args ...interface{})
	Sync() error
}

type loggerOption struct {
	name  string
	path  string
	level string
}

type Option func(*loggerOption)

// Name sets the logger name, also used as the log file base name.
func Name(name string) Option {
	return func(o *loggerOption) {
		o.name = name
	}
}

// Path sets the directory the rotating log file is written to.
func Path(path string) Option {
	return func(o *loggerOption) {
		o.path = path
	}
}

// Level sets the minimum log level (debug, info, warn, error).
func Level(level string) Option {
	return func(o *loggerOption) {
		o.level = level
	}
}

type applicationLogger struct {
	*zap.SugaredLogger
}

// NewApplicationLogger builds a zap backed logger that writes json lines to a
// rotating file and human readable lines to stdout.
func NewApplicationLogger(opts ...Option) (Logger, error) {
	option := &loggerOption{
		name:  "application",
		path:  ".",
		level: "info",
	}
	for _, opt := range opts {
		opt(option)
	}

	level, err := zapcore.ParseLevel(option.level)
	if err != nil {
		return nil, err
	}

	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(option.path, option.name+".log"),
		MaxSize:    100, // megabytes
		MaxBackups: 5,
		MaxAge:     28, // days
		Compress:   true,
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleEncoderConfig := zap.NewDevelopmentEncoderConfig()
	consoleEncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(rotator), level),
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncoderConfig), zapcore.AddSync(os.Stdout), level),
	)

	logger := zap.New(core, zap.AddCaller()).Named(option.name)
	return &applicationLogger{logger.Sugar()}, nil
}
