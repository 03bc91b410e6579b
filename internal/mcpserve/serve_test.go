package mcpserve

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/ivmalkov/lworch-ai/pkg/mcpclient"
	"github.com/ivmalkov/lworch-ai/pkg/utils"
)

func TestStructured(t *testing.T) {
	type report struct {
		City string `json:"city"`
	}

	tests := []struct {
		name       string
		value      any
		structured string
	}{
		{
			name:       "map stays as is",
			value:      map[string]any{"date": "2026年08月25日"},
			structured: `{"date": "2026年08月25日"}`,
		},
		{
			name:       "struct stays as is",
			value:      report{City: "杭州"},
			structured: `{"city": "杭州"}`,
		},
		{
			name:       "string gets wrapped",
			value:      "There is no forecast data for this city",
			structured: `{"result": "There is no forecast data for this city"}`,
		},
		{
			name:       "list gets wrapped",
			value:      []int{1, 2, 3},
			structured: `{"result": [1, 2, 3]}`,
		},
		{
			name:       "number gets wrapped",
			value:      42,
			structured: `{"result": 42}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Structured(tt.value)
			require.NoError(t, err)
			require.False(t, result.IsError)

			raw, err := json.Marshal(result.StructuredContent)
			require.NoError(t, err)
			require.JSONEq(t, tt.structured, string(raw))

			// Текстовый блок несёт ту же JSON-форму
			require.Len(t, result.Content, 1)
			text, ok := result.Content[0].(*mcp.TextContent)
			require.True(t, ok)
			require.JSONEq(t, tt.structured, text.Text)
		})
	}
}

func TestStructuredUnserializable(t *testing.T) {
	_, err := Structured(func() {})
	require.Error(t, err)
}

// Полный HTTP путь: handler поднят на httptest-сервере, клиент подключается
// через streamable транспорт и вызывает инструмент.
func TestHandlerServesToolCalls(t *testing.T) {
	server := mcp.NewServer(&mcp.Implementation{Name: "test", Version: "test"}, nil)
	server.AddTool(&mcp.Tool{
		Name:        "ping",
		Description: "Health check",
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
	}, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return Structured("pong")
	})

	ts := httptest.NewServer(Handler(server))
	defer ts.Close()

	client := mcpclient.New("test-client", "test", utils.NopLogger())
	require.NoError(t, client.Dial(context.Background(), ts.URL+"/mcp"))
	defer client.Close()

	tools := client.Tools()
	require.Len(t, tools, 1)
	require.Equal(t, "ping", tools[0].Name)

	outcome := client.Invoke(context.Background(), "ping", nil)
	require.False(t, outcome.Failed())

	var payload struct {
		Result string `json:"result"`
	}
	require.NoError(t, outcome.Decode(&payload))
	require.Equal(t, "pong", payload.Result)
}

func TestServeStopsOnContextCancel(t *testing.T) {
	server := mcp.NewServer(&mcp.Implementation{Name: "test", Version: "test"}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, server, "127.0.0.1:0", utils.NopLogger())
	}()

	// Даем слушателю подняться, затем останавливаем
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not stop after context cancel")
	}
}

func TestServeBadAddr(t *testing.T) {
	server := mcp.NewServer(&mcp.Implementation{Name: "test", Version: "test"}, nil)

	err := Serve(context.Background(), server, "256.256.256.256:99999", utils.NopLogger())
	require.Error(t, err)
}
