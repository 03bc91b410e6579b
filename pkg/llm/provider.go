// Интерфейс Провайдера через который работает весь клиент.

package llm

import "context"

// Provider — контракт для модельного эндпоинта.
type Provider interface {
	// Generate отправляет всю историю плюс список инструментов и
	// возвращает одно assistant-сообщение: текст и/или запросы tool calls.
	//
	// Ретраев на этом уровне нет: транспортные ошибки и ошибки API
	// возвращаются вызывающему как есть.
	Generate(ctx context.Context, messages []Message, tools []ToolDef) (Message, error)

	// ListModels возвращает идентификаторы моделей, доступных на эндпоинте.
	ListModels(ctx context.Context) ([]string, error)
}
