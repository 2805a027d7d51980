package logging

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// Logger логгер компонента. Пишет через глобальный логгер с полем component,
// поэтому его можно получить до InitDefaultLogger.
type Logger struct {
	component string
	fields    logrus.Fields
	level     *componentLevel
}

type componentLevel struct {
	mu  sync.RWMutex
	set bool
	lvl LogLevel
}

func (c *componentLevel) allows(l LogLevel) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.set || l >= c.lvl
}

// WithField возвращает логгер с дополнительным полем
func (l *Logger) WithField(key string, value interface{}) *Logger {
	fields := make(logrus.Fields, len(l.fields)+1)
	for k, v := range l.fields {
		fields[k] = v
	}
	fields[key] = value
	return &Logger{component: l.component, fields: fields, level: l.level}
}

// Component имя компонента
func (l *Logger) Component() string {
	return l.component
}

func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	if !l.level.allows(level) {
		return
	}
	entry := current().WithField("component", l.component)
	if len(l.fields) > 0 {
		entry = entry.WithFields(l.fields)
	}
	entry.Logf(level.logrus(), format, args...)
}

// Trace логирует сообщение уровня TRACE
func (l *Logger) Trace(format string, args ...interface{}) { l.log(TRACE, format, args...) }

// Debug логирует сообщение уровня DEBUG
func (l *Logger) Debug(format string, args ...interface{}) { l.log(DEBUG, format, args...) }

// Info логирует сообщение уровня INFO
func (l *Logger) Info(format string, args ...interface{}) { l.log(INFO, format, args...) }

// Warn логирует сообщение уровня WARN
func (l *Logger) Warn(format string, args ...interface{}) { l.log(WARN, format, args...) }

// Error логирует сообщение уровня ERROR
func (l *Logger) Error(format string, args ...interface{}) { l.log(ERROR, format, args...) }

// LoggerManager управляет логгерами для разных компонентов
type LoggerManager struct {
	mu      sync.RWMutex
	loggers map[string]*Logger
}

var (
	globalManager *LoggerManager
	managerOnce   sync.Once
)

// GetLoggerManager возвращает глобальный менеджер логгеров
func GetLoggerManager() *LoggerManager {
	managerOnce.Do(func() {
		globalManager = &LoggerManager{
			loggers: make(map[string]*Logger),
		}
	})
	return globalManager
}

// GetLogger возвращает логгер для компонента, создавая его при необходимости
func (lm *LoggerManager) GetLogger(component string) *Logger {
	lm.mu.RLock()
	if logger, exists := lm.loggers[component]; exists {
		lm.mu.RUnlock()
		return logger
	}
	lm.mu.RUnlock()

	lm.mu.Lock()
	defer lm.mu.Unlock()

	// Проверяем еще раз на случай race condition
	if logger, exists := lm.loggers[component]; exists {
		return logger
	}

	logger := &Logger{component: component, level: &componentLevel{}}
	lm.loggers[component] = logger
	return logger
}

// ListComponents возвращает отсортированный список зарегистрированных компонентов
func (lm *LoggerManager) ListComponents() []string {
	lm.mu.RLock()
	defer lm.mu.RUnlock()

	components := make([]string, 0, len(lm.loggers))
	for component := range lm.loggers {
		components = append(components, component)
	}
	sort.Strings(components)
	return components
}

// SetLogLevel устанавливает минимальный уровень для компонента.
// Глобальный уровень по-прежнему применяется поверх.
func (lm *LoggerManager) SetLogLevel(component string, level LogLevel) error {
	lm.mu.RLock()
	logger, exists := lm.loggers[component]
	lm.mu.RUnlock()

	if !exists {
		return fmt.Errorf("logger for component %s not found", component)
	}

	logger.level.mu.Lock()
	logger.level.set = true
	logger.level.lvl = level
	logger.level.mu.Unlock()
	return nil
}

// GetComponentLogger удобная функция для получения логгера компонента
func GetComponentLogger(component string) *Logger {
	return GetLoggerManager().GetLogger(component)
}

func GetWorldLogger() *Logger {
	return GetComponentLogger("world")
}

func GetStorageLogger() *Logger {
	return GetComponentLogger("storage")
}

func GetGameLogger() *Logger {
	return GetComponentLogger("game")
}

func GetServerLogger() *Logger {
	return GetComponentLogger("server")
}
