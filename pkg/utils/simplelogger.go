// Package utils предоставляет простой файловый логгер для консольных приложений.
//
// Логгер создаёт .log файл в заданной директории с timestamp в имени.
// Thread-safe через sync.Mutex. Экземпляр передаётся явно туда, где он нужен:
// глобального состояния у пакета нет.
package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Logger — файловый логгер с фиксированным текстовым форматом строк.
//
// Нулевое значение и nil безопасны: все методы в этом случае ничего не делают.
// Для тестов используйте NopLogger().
type Logger struct {
	mu   sync.Mutex
	file *os.File
}

// NewLogger создает .log файл в директории dir.
//
// Имя файла: <app>-YYYY-MM-DD-HH-MM.log (например, lworch-2026-08-25-15-30.log).
// Директория создаётся при необходимости. Пустой dir означает текущую директорию.
func NewLogger(dir, app string) (*Logger, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log dir: %w", err)
		}
	}

	// Имя файла: lworch-2026-08-25-15-30.log
	timestamp := time.Now().Format("2006-01-02-15-04")
	filename := filepath.Join(dir, fmt.Sprintf("%s-%s.log", app, timestamp))

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	l := &Logger{file: file}
	l.write("INFO", "Logger initialized", "file", filename)
	return l, nil
}

// NopLogger возвращает логгер, который никуда не пишет.
//
// Удобен в тестах и в местах, где логирование не настроено.
func NopLogger() *Logger {
	return &Logger{}
}

// Info - информационное сообщение.
func (l *Logger) Info(msg string, keyvals ...any) {
	l.write("INFO", msg, keyvals...)
}

// Error - сообщение об ошибке.
func (l *Logger) Error(msg string, keyvals ...any) {
	l.write("ERROR", msg, keyvals...)
}

// Debug - отладочное сообщение.
func (l *Logger) Debug(msg string, keyvals ...any) {
	l.write("DEBUG", msg, keyvals...)
}

// Warn - предупреждение.
func (l *Logger) Warn(msg string, keyvals ...any) {
	l.write("WARN", msg, keyvals...)
}

// write - внутренняя функция записи в лог.
//
// Формат: [YYYY-MM-DD HH:MM:SS] LEVEL: message key1=value1 key2=value2
// При ошибке записи в файл, fallback на stderr.
func (l *Logger) write(level, msg string, keyvals ...any) {
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	line := fmt.Sprintf("[%s] %s: %s", timestamp, level, msg)

	for i := 0; i < len(keyvals); i += 2 {
		if i+1 < len(keyvals) {
			line += fmt.Sprintf(" %v=%v", keyvals[i], keyvals[i+1])
		}
	}

	line += "\n"

	// Пишем в файл с обработкой ошибок
	if _, err := l.file.WriteString(line); err != nil {
		// Fallback: если файл недоступен, пишем в stderr
		fmt.Fprintf(os.Stderr, "%s", line)
		fmt.Fprintf(os.Stderr, "[LOGGER ERROR: WriteString failed: %v]\n", err)
		return
	}

	if err := l.file.Sync(); err != nil {
		// Sync failed - warning в stderr, но лог уже записан
		fmt.Fprintf(os.Stderr, "[LOGGER WARNING: Sync failed: %v]\n", err)
	}
}

// Close закрывает лог-файл.
//
// Вызывается через defer в main().
func (l *Logger) Close() {
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		if err := l.file.Close(); err != nil {
			// Логгер уже закрывается, только stderr
			fmt.Fprintf(os.Stderr, "[LOGGER WARNING: Close failed: %v]\n", err)
		}
		l.file = nil
	}
}
