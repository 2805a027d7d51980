package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel определяет уровни логирования
type LogLevel int

const (
	TRACE LogLevel = iota
	DEBUG
	INFO
	WARN
	ERROR
)

// String возвращает строковое представление уровня логирования
func (l LogLevel) String() string {
	switch l {
	case TRACE:
		return "TRACE"
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel разбирает уровень без учёта регистра. Неизвестное значение даёт INFO и ошибку.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return TRACE, nil
	case "DEBUG":
		return DEBUG, nil
	case "INFO", "":
		return INFO, nil
	case "WARN", "WARNING":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	}
	return INFO, fmt.Errorf("неизвестный уровень логирования %q", s)
}

func (l LogLevel) logrus() logrus.Level {
	switch l {
	case TRACE:
		return logrus.TraceLevel
	case DEBUG:
		return logrus.DebugLevel
	case WARN:
		return logrus.WarnLevel
	case ERROR:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// Options настройки логгера по умолчанию
type Options struct {
	Level  LogLevel
	Format string // "text" или "json"
	// Dir каталог для файла логов. Пустая строка - только консоль.
	Dir        string
	FileName   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	// Output консольный вывод, по умолчанию os.Stdout
	Output io.Writer
}

// OptionsFromEnv применяет LOG_LEVEL и LOG_FORMAT поверх переданных настроек
func OptionsFromEnv(base Options) Options {
	if v, ok := os.LookupEnv("LOG_LEVEL"); ok {
		if lvl, err := ParseLevel(v); err == nil {
			base.Level = lvl
		}
	}
	if v, ok := os.LookupEnv("LOG_FORMAT"); ok {
		base.Format = strings.ToLower(v)
	}
	return base
}

var (
	baseMu  sync.RWMutex
	base    = newConsoleLogger(os.Stdout, INFO, "text")
	rotator *lumberjack.Logger
)

func newConsoleLogger(out io.Writer, level LogLevel, format string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(level.logrus())
	if format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   out == os.Stdout,
		})
	}
	return l
}

// InitDefaultLogger настраивает глобальный логгер: консоль и, если задан Dir,
// файл с ротацией.
func InitDefaultLogger(opts Options) error {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	var rot *lumberjack.Logger
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return fmt.Errorf("ошибка создания директории логов: %w", err)
		}
		name := opts.FileName
		if name == "" {
			name = "tileworld.log"
		}
		rot = &lumberjack.Logger{
			Filename:   filepath.Join(opts.Dir, name),
			MaxSize:    orDefault(opts.MaxSizeMB, 50),
			MaxBackups: orDefault(opts.MaxBackups, 5),
			MaxAge:     orDefault(opts.MaxAgeDays, 14),
		}
		out = io.MultiWriter(out, rot)
	}

	l := newConsoleLogger(out, opts.Level, opts.Format)

	baseMu.Lock()
	old := rotator
	base = l
	rotator = rot
	baseMu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	return nil
}

// CloseDefaultLogger закрывает файл логов и возвращает вывод в консоль
func CloseDefaultLogger() {
	baseMu.Lock()
	defer baseMu.Unlock()
	if rotator != nil {
		_ = rotator.Close()
		rotator = nil
	}
	base = newConsoleLogger(os.Stdout, LogLevel(levelFromLogrus(base.GetLevel())), "text")
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func levelFromLogrus(l logrus.Level) LogLevel {
	switch l {
	case logrus.TraceLevel:
		return TRACE
	case logrus.DebugLevel:
		return DEBUG
	case logrus.WarnLevel:
		return WARN
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return ERROR
	default:
		return INFO
	}
}

func current() *logrus.Logger {
	baseMu.RLock()
	defer baseMu.RUnlock()
	return base
}

// Trace логирует сообщение уровня TRACE
func Trace(format string, args ...interface{}) {
	current().Tracef(format, args...)
}

// Debug логирует сообщение уровня DEBUG
func Debug(format string, args ...interface{}) {
	current().Debugf(format, args...)
}

// Info логирует сообщение уровня INFO
func Info(format string, args ...interface{}) {
	current().Infof(format, args...)
}

// Warn логирует сообщение уровня WARN
func Warn(format string, args ...interface{}) {
	current().Warnf(format, args...)
}

// Error логирует сообщение уровня ERROR
func Error(format string, args ...interface{}) {
	current().Errorf(format, args...)
}
