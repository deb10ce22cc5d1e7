package logger

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// Logger is the process wide logger. It is usable before Init and
	// writes to stderr at info level until then.
	Logger = logrus.New()

	logMu sync.Mutex
	// closer for the current rotating file, if any
	fileOut io.Closer
)

// Config for Init. An empty OutputFile logs to the console only.
type Config struct {
	Level      string `yaml:"level" json:"level"`
	OutputFile string `yaml:"file" json:"file"`
	MaxSize    int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAge     int    `yaml:"max_age_days" json:"max_age_days"`
	Compress   bool   `yaml:"compress" json:"compress"`
	// JSON switches to the logrus JSON formatter.
	JSON bool `yaml:"json" json:"json"`
	// Console is where console output goes; nil means stderr so command
	// output on stdout stays clean.
	Console io.Writer `yaml:"-" json:"-"`
}

// Init configures Logger and the logrus standard logger.
func Init(config Config) error {
	logMu.Lock()
	defer logMu.Unlock()

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
	}

	console := config.Console
	if console == nil {
		console = os.Stderr
	}
	writers := []io.Writer{console}

	if fileOut != nil {
		_ = fileOut.Close()
		fileOut = nil
	}
	if config.OutputFile != "" {
		if err := os.MkdirAll(filepath.Dir(config.OutputFile), 0o755); err != nil {
			return err
		}
		lj := &lumberjack.Logger{
			Filename:   config.OutputFile,
			MaxSize:    config.MaxSize,
			MaxBackups: config.MaxBackups,
			MaxAge:     config.MaxAge,
			Compress:   config.Compress,
		}
		writers = append(writers, lj)
		fileOut = lj
	}

	var formatter logrus.Formatter = &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "06-01-02 15:04:05",
	}
	if config.JSON {
		formatter = &logrus.JSONFormatter{}
	}

	out := io.MultiWriter(writers...)
	for _, l := range []*logrus.Logger{Logger, logrus.StandardLogger()} {
		l.SetOutput(out)
		l.SetLevel(level)
		l.SetFormatter(formatter)
	}
	return nil
}

// InitDefault logs at info level to the console and logs/degiro.log.
func InitDefault() error {
	return Init(Config{
		Level:      "info",
		OutputFile: "logs/degiro.log",
		MaxSize:    50,
		MaxBackups: 3,
		MaxAge:     14,
		Compress:   true,
	})
}

// Close flushes and closes the rotating file.
func Close() error {
	logMu.Lock()
	defer logMu.Unlock()
	if fileOut == nil {
		return nil
	}
	err := fileOut.Close()
	fileOut = nil
	return err
}

func Debugf(format string, args ...interface{}) { Logger.Debugf(format, args...) }
func Infof(format string, args ...interface{})  { Logger.Infof(format, args...) }
func Warnf(format string, args ...interface{})  { Logger.Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { Logger.Errorf(format, args...) }

func WithField(key string, value interface{}) *logrus.Entry {
	return Logger.WithField(key, value)
}

func WithFields(fields logrus.Fields) *logrus.Entry {
	return Logger.WithFields(fields)
}
