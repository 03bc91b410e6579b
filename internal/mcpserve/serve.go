// Package mcpserve поднимает MCP сервер поверх streamable HTTP транспорта.
package mcpserve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ivmalkov/lworch-ai/pkg/utils"
)

// shutdownTimeout ограничивает ожидание активных сессий при остановке.
const shutdownTimeout = 5 * time.Second

// Handler возвращает HTTP handler MCP сервера, смонтированный на /mcp.
func Handler(server *mcp.Server) http.Handler {
	streamable := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, nil)

	mux := http.NewServeMux()
	mux.Handle("/mcp", streamable)
	return mux
}

// Serve обслуживает server на addr до отмены ctx.
//
// Остановка корректная: слушатель закрывается, активным сессиям даётся
// время завершиться.
func Serve(ctx context.Context, server *mcp.Server, addr string, log *utils.Logger) error {
	httpServer := &http.Server{
		Addr:    addr,
		Handler: Handler(server),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("MCP server listening", "addr", addr, "path", "/mcp")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		log.Info("MCP server stopped")
		return <-errCh
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen on %s: %w", addr, err)
		}
		return nil
	}
}

// Structured упаковывает результат инструмента в ответ со structured content.
//
// Значение, сериализующееся в JSON-объект, уходит как есть; список или
// скаляр заворачивается в {"result": v} — structured content обязан быть
// объектом. Текстовый content дублирует ту же JSON-форму.
func Structured(v any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}

	structured := v
	if len(raw) == 0 || raw[0] != '{' {
		structured = map[string]any{"result": v}
		raw, err = json.Marshal(structured)
		if err != nil {
			return nil, fmt.Errorf("encode wrapped tool result: %w", err)
		}
	}

	return &mcp.CallToolResult{
		Content:           []mcp.Content{&mcp.TextContent{Text: string(raw)}},
		StructuredContent: structured,
	}, nil
}
