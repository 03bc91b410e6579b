package mcpclient

import (
	"encoding/json"
	"fmt"
)

// Outcome — результат вызова инструмента: полезная нагрузка либо причина отказа.
//
// Отказ не является ошибкой уровня приложения: он сериализуется и уходит
// модели, чтобы та могла скорректировать следующий вызов.
type Outcome struct {
	payload any
	failed  bool
	reason  string
}

// Success создает успешный исход с полезной нагрузкой.
func Success(payload any) Outcome {
	return Outcome{payload: payload}
}

// Failure создает исход-отказ с текстовой причиной.
func Failure(reason string) Outcome {
	return Outcome{failed: true, reason: reason}
}

// Failed сообщает, закончился ли вызов отказом.
func (o Outcome) Failed() bool {
	return o.failed
}

// Reason возвращает причину отказа. Для успешного исхода — пустая строка.
func (o Outcome) Reason() string {
	return o.reason
}

// Payload возвращает полезную нагрузку успешного исхода.
func (o Outcome) Payload() any {
	return o.payload
}

// JSON сериализует исход для записи в историю диалога.
//
// Отказ кодируется как {"error": "<причина>"} — модель видит текст причины
// в tool-результате следующего раунда.
func (o Outcome) JSON() string {
	if o.failed {
		raw, err := json.Marshal(map[string]string{"error": o.reason})
		if err != nil {
			return `{"error": "unserializable failure reason"}`
		}
		return string(raw)
	}

	raw, err := json.Marshal(o.payload)
	if err != nil {
		return Failure(fmt.Sprintf("unserializable tool result: %v", err)).JSON()
	}
	return string(raw)
}

// Decode распаковывает полезную нагрузку в v через JSON roundtrip.
//
// Удобен, когда вызывающий код знает форму результата конкретного инструмента.
func (o Outcome) Decode(v any) error {
	if o.failed {
		return fmt.Errorf("tool call failed: %s", o.reason)
	}

	raw, err := json.Marshal(o.payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	return json.Unmarshal(raw, v)
}
