package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ivmalkov/lworch-ai/internal/mcpserve"
	"github.com/ivmalkov/lworch-ai/pkg/utils"
)

// cityProperty — общая схема аргумента city для обоих инструментов.
//
// Схема объявляется в полном виде (с required): сужение до properties —
// забота клиентской стороны, сервер описывает инструмент честно.
var cityProperty = map[string]any{
	"type":        "string",
	"description": "City name in Chinese. It supports Country, Province, City, District e.g. 浙江省, 杭州市, 萧山区...",
}

// ServerDeps — зависимости MCP сервера погоды.
type ServerDeps struct {
	Weather  *Client
	Geocoder *Geocoder
	Log      *utils.Logger
}

// NewServer собирает MCP сервер с инструментами get_forecast и
// get_realtime_weather.
//
// Оба инструмента возвращают данные даже при «пользовательских» ошибках:
// неизвестный город и отсутствие данных — это сообщения для модели,
// а не сбои вызова. Ошибкой вызова остаются только проблемы с API.
func NewServer(deps ServerDeps) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "weather", Version: "1.0.0"}, nil)

	server.AddTool(&mcp.Tool{
		Name:        "get_forecast",
		Description: "Get weather forecast for a city in China. You should type in Chinese.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"city": cityProperty,
			},
			"required": []any{"city"},
		},
	}, deps.handleForecast)

	server.AddTool(&mcp.Tool{
		Name:        "get_realtime_weather",
		Description: "Get realtime weather info. for a city in China.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"city": cityProperty,
			},
			"required": []any{"city"},
		},
	}, deps.handleRealtime)

	return server
}

// cityArgs — аргументы обоих погодных инструментов.
type cityArgs struct {
	City string `json:"city"`
}

func decodeCity(req *mcp.CallToolRequest) (string, error) {
	var args cityArgs
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if args.City == "" {
		return "", fmt.Errorf("city is required")
	}
	return args.City, nil
}

func (d ServerDeps) handleForecast(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	city, err := decodeCity(req)
	if err != nil {
		return nil, err
	}

	adcode, err := d.Geocoder.Adcode(city)
	var notFound *NotFoundError
	if errors.As(err, &notFound) {
		d.Log.Warn("city not in geocode index", "city", city)
		return mcpserve.Structured(notFound.Error())
	}
	if err != nil {
		return nil, err
	}

	casts, err := d.Weather.Forecast(ctx, adcode)
	if errors.Is(err, ErrNoData) {
		return mcpserve.Structured("There is no forecast data for this city")
	}
	if err != nil {
		d.Log.Error("forecast request failed",
			"city", city,
			"error", err,
			"class", d.Weather.ClassifyError(err).String())
		return nil, err
	}

	d.Log.Info("forecast served", "city", city, "adcode", adcode, "days", len(casts))
	return mcpserve.Structured(casts)
}

func (d ServerDeps) handleRealtime(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	city, err := decodeCity(req)
	if err != nil {
		return nil, err
	}

	adcode, err := d.Geocoder.Adcode(city)
	var notFound *NotFoundError
	if errors.As(err, &notFound) {
		d.Log.Warn("city not in geocode index", "city", city)
		return mcpserve.Structured(notFound.Error())
	}
	if err != nil {
		return nil, err
	}

	live, err := d.Weather.Realtime(ctx, adcode)
	if errors.Is(err, ErrNoData) {
		return mcpserve.Structured("There is no realtime weather data for this city")
	}
	if err != nil {
		d.Log.Error("realtime request failed",
			"city", city,
			"error", err,
			"class", d.Weather.ClassifyError(err).String())
		return nil, err
	}

	d.Log.Info("realtime weather served", "city", city, "adcode", adcode, "weather", live.Weather)
	return mcpserve.Structured(live)
}
