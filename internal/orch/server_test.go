package orch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/ivmalkov/lworch-ai/pkg/mcpclient"
	"github.com/ivmalkov/lworch-ai/pkg/utils"
)

// fakeUpstream эмулирует Orch REST API: один валидный клиент и три сайта.
func fakeUpstream() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if r.PostFormValue("client_id") == "demo-id" && r.PostFormValue("client_secret") == "demo-secret" {
			fmt.Fprint(w, `{"access_token": "tok-ok", "token_type": "bearer", "expires_in": 7200, "scope": "customer:read"}`)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error": "invalid_client"}`)
	})

	mux.HandleFunc("/openapi/v2/sites", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-ok" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error": "invalid_token"}`)
			return
		}

		dataset := []string{"site-a", "site-b", "site-c"}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		size, _ := strconv.Atoi(r.URL.Query().Get("size"))
		if size <= 0 {
			size = 20
		}

		totalPages := (len(dataset) + size - 1) / size
		start := page * size
		end := start + size
		if start > len(dataset) {
			start = len(dataset)
		}
		if end > len(dataset) {
			end = len(dataset)
		}

		content := ""
		for i := start; i < end; i++ {
			if content != "" {
				content += ","
			}
			content += fmt.Sprintf(`{"site_id": "%s", "status": "up"}`, dataset[i])
		}
		fmt.Fprintf(w, `{"total_pages": %d, "total_elements": %d, "content": [%s]}`, totalPages, len(dataset), content)
	})

	return mux
}

// setupOrchBackend поднимает MCP сервер поверх фейкового upstream
// и возвращает подключенного клиента.
func setupOrchBackend(t *testing.T) *mcpclient.Client {
	t.Helper()

	ts := httptest.NewServer(fakeUpstream())
	t.Cleanup(ts.Close)

	server := NewServer(ServerDeps{
		Orch: newTestClient(ts, 1),
		Log:  utils.NopLogger(),
	})

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		session, err := server.Connect(ctx, serverTransport, nil)
		if err != nil {
			return
		}
		<-ctx.Done()
		_ = session.Close()
	}()

	client := mcpclient.New("orch-test", "test", utils.NopLogger())
	require.NoError(t, client.Connect(context.Background(), clientTransport))
	t.Cleanup(func() {
		_ = client.Close()
		cancel()
		<-done
	})
	return client
}

func TestOrchToolCatalog(t *testing.T) {
	client := setupOrchBackend(t)

	names := map[string]bool{}
	for _, tool := range client.Tools() {
		names[tool.Name] = true
	}
	for _, want := range []string{"get_date_info", "get_access_token", "authenticate", "get_all_sites_info"} {
		require.True(t, names[want], "инструмент %s не объявлен", want)
	}

	require.Contains(t, client.PromptNames(), "initial_instruction")
}

func TestDateTool(t *testing.T) {
	client := setupOrchBackend(t)

	before := time.Now()
	outcome := client.Invoke(context.Background(), "get_date_info", map[string]any{})
	after := time.Now()
	require.False(t, outcome.Failed(), "reason: %s", outcome.Reason())

	var info DateInfo
	require.NoError(t, outcome.Decode(&info))
	// Интервал before..after страхует от гонки с полуночью
	require.Contains(t, []string{DateInfoAt(before, 0).Date, DateInfoAt(after, 0).Date}, info.Date)
	require.NotZero(t, info.Timestamp)

	outcome = client.Invoke(context.Background(), "get_date_info", map[string]any{"offset": 1})
	require.False(t, outcome.Failed())
	require.NoError(t, outcome.Decode(&info))
	require.Contains(t, []string{DateInfoAt(before, 1).Date, DateInfoAt(after, 1).Date}, info.Date)
}

func TestTokenTool(t *testing.T) {
	client := setupOrchBackend(t)

	outcome := client.Invoke(context.Background(), "get_access_token", map[string]any{
		"client_id":     "demo-id",
		"client_secret": "demo-secret",
	})
	require.False(t, outcome.Failed(), "reason: %s", outcome.Reason())

	var tok TokenResponse
	require.NoError(t, outcome.Decode(&tok))
	require.Equal(t, "tok-ok", tok.AccessToken)
	require.Equal(t, 7200, tok.ExpiresIn)
	require.Equal(t, "customer:read", tok.Scope)
}

// Отказ OAuth доходит до модели как причина отказа, не роняя диалог.
func TestTokenToolBadCredentials(t *testing.T) {
	client := setupOrchBackend(t)

	outcome := client.Invoke(context.Background(), "get_access_token", map[string]any{
		"client_id":     "demo-id",
		"client_secret": "wrong",
	})
	require.True(t, outcome.Failed())
	require.Contains(t, outcome.Reason(), "invalid_client")
}

func TestAuthenticateTool(t *testing.T) {
	client := setupOrchBackend(t)

	var payload struct {
		Result string `json:"result"`
	}

	outcome := client.Invoke(context.Background(), "authenticate", map[string]any{"scope": []any{"global:read"}})
	require.False(t, outcome.Failed())
	require.NoError(t, outcome.Decode(&payload))
	require.Equal(t, "global", payload.Result)

	outcome = client.Invoke(context.Background(), "authenticate", map[string]any{"scope": []any{"customer:read"}})
	require.False(t, outcome.Failed())
	require.NoError(t, outcome.Decode(&payload))
	require.Equal(t, "customer", payload.Result)
}

func TestSitesToolPaged(t *testing.T) {
	client := setupOrchBackend(t)

	outcome := client.Invoke(context.Background(), "get_all_sites_info", map[string]any{
		"access_token": "tok-ok",
		"page":         0,
		"size":         2,
	})
	require.False(t, outcome.Failed(), "reason: %s", outcome.Reason())

	var sites Sites
	require.NoError(t, outcome.Decode(&sites))
	require.Equal(t, 2, sites.TotalPages)
	require.Equal(t, 3, sites.TotalElements)
	require.Len(t, sites.Content, 2)
}

// Без page инструмент отдает полную выборку по всем страницам.
func TestSitesToolAllPages(t *testing.T) {
	client := setupOrchBackend(t)

	outcome := client.Invoke(context.Background(), "get_all_sites_info", map[string]any{
		"access_token": "tok-ok",
		"size":         2,
	})
	require.False(t, outcome.Failed(), "reason: %s", outcome.Reason())

	var sites Sites
	require.NoError(t, outcome.Decode(&sites))
	require.Equal(t, 3, sites.TotalElements)
	require.Len(t, sites.Content, 3)
	require.Equal(t, "site-c", sites.Content[2]["site_id"])
}

func TestInitialInstructionPrompt(t *testing.T) {
	client := setupOrchBackend(t)

	text, err := client.Prompt(context.Background(), "initial_instruction", map[string]string{
		"access_token": "tok-ok",
		"scope":        "customer",
	})
	require.NoError(t, err)
	require.Contains(t, text, "# Role")
	require.Contains(t, text, "- **access_token**：tok-ok")
	require.Contains(t, text, "- **scope**：customer")
}
