// Package utils предоставляет вспомогательные функции для graceful shutdown.
//
// Graceful Shutdown — корректное завершение приложения при получении сигнала:
//   - SIGINT (Ctrl+C)
//   - SIGTERM (kill)
//
// Использование:
//   ctx, cancel := context.WithCancel(context.Background())
//   defer utils.SetupGracefulShutdown(cancel, logger)()
//
// Функция гарантирует что:
//   - Контекст будет отменён при получении сигнала
//   - Логи будут сохранены (logger.Close())
//   - Ресурсы будут освобождены
package utils

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// SetupGracefulShutdown устанавливает обработчик сигналов для graceful shutdown.
//
// Возвращает функцию которую следует вызвать через defer для освобождения ресурсов.
//
// Правильное использование:
//   ctx, cancel := context.WithCancel(context.Background())
//   defer SetupGracefulShutdown(cancel, logger)()
//
// Или для более детального контроля:
//   ctx, cancel := context.WithCancel(context.Background())
//   shutdown := SetupGracefulShutdown(cancel, logger)
//   // ... код приложения ...
//   shutdown() // Явный вызов в конце
//
// При получении SIGINT (Ctrl+C) или SIGTERM:
//   1. Логируется сообщение "Received signal, shutting down gracefully..."
//   2. Вызывается cancel() для отмены контекста
//   3. Все операции должны проверить ctx.Err() и завершиться
//   4. При выходе из main() сработает defer shutdown() → log.Close()
func SetupGracefulShutdown(cancel context.CancelFunc, log *Logger) func() {
	// Канал для OS сигналов
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Запускаем goroutine для обработки сигналов
	go func() {
		sig := <-sigChan
		log.Info("Received signal, shutting down gracefully", "signal", sig.String())
		cancel()
	}()

	// Возвращаем функцию очистки
	return func() {
		signal.Stop(sigChan)
		// Закрываем логи (это всегда безопасно вызвать)
		log.Close()
	}
}

// SetupGracefulShutdownWithContext создаёт контекст и настраивает graceful shutdown.
//
// Удобная обёртка для типичного случая использования:
//   ctx, shutdown := SetupGracefulShutdownWithContext(logger)
//   defer shutdown()
func SetupGracefulShutdownWithContext(log *Logger) (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	shutdown := SetupGracefulShutdown(cancel, log)
	return ctx, shutdown
}
