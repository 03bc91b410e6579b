// Описания инструментов в формате модели (function calling).
package llm

import "encoding/json"

// ToolDef — описание одного инструмента для модельного эндпоинта.
//
// Строится один раз за сессию из каталога бэкенда и дальше не меняется.
type ToolDef struct {
	Name        string
	Description string
	Parameters  ParamsSchema
}

// ParamsSchema — схема аргументов инструмента в том узком виде,
// в котором она уходит модели: объект с одним лишь properties.
//
// Значения properties — исходные фрагменты JSON Schema, пробрасываемые
// байт-в-байт (json.RawMessage). Ключи верхнего уровня исходной схемы
// (required, additionalProperties и т.п.) сюда не попадают: перевод
// узкий по контракту, а не полный JSON-Schema passthrough.
type ParamsSchema struct {
	Type       string                     `json:"type"`
	Properties map[string]json.RawMessage `json:"properties"`
}

// ObjectSchema строит ParamsSchema для набора свойств.
// nil properties нормализуется в пустой объект, чтобы сериализация
// всегда давала {"type":"object","properties":{}}.
func ObjectSchema(properties map[string]json.RawMessage) ParamsSchema {
	if properties == nil {
		properties = map[string]json.RawMessage{}
	}
	return ParamsSchema{Type: "object", Properties: properties}
}
