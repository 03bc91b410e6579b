package orch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ivmalkov/lworch-ai/internal/mcpserve"
	"github.com/ivmalkov/lworch-ai/pkg/utils"
)

// initialInstruction — системная инструкция агента.
//
// Подставляются access_token и класс scope; модель обязана передавать
// токен в инструменты, которым он нужен.
const initialInstruction = `
# Role
你是一个智能查询系统的大语言模型，能够根据用户输入调用可用的工具去调接口查询相应的数据结果，并将结果清晰地表述给用户。

# Required Parameters in function calling
- **access_token**：%s


# Requirements
- **工具调用**：当接收到用户的查询需求时，决定使用合适的工具进行查询。你可以不使用工具，但在进行 function call 时，要注意有些接口需要提供 access token。
- **结果反馈**：将查询到的数据以清晰、易懂的方式返回给用户。避免使用过于专业或复杂的术语，确保用户能够轻松理解结果。
- **异常处理**：如果在查询过程中遇到错误或无法获取有效数据，向用户说明情况，并尽可能提供可能的解决方案或建议。

# Constraints
- **scope**：%s
`

// ServerDeps — зависимости MCP сервера Orch.
type ServerDeps struct {
	Orch *Client
	Log  *utils.Logger
}

// NewServer собирает MCP сервер lw_orch: инструменты даты, OAuth
// и списка сайтов плюс prompt initial_instruction.
func NewServer(deps ServerDeps) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "lw_orch", Version: "1.0.0"}, nil)

	server.AddTool(&mcp.Tool{
		Name:        "get_date_info",
		Description: "Get date information with optional offset from today",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"offset": map[string]any{
					"type":        "integer",
					"description": "Number of days offset from today (0=today, 1=tomorrow, -1=yesterday, etc.)",
					"default":     0,
				},
			},
		},
	}, deps.handleDateInfo)

	server.AddTool(&mcp.Tool{
		Name:        "get_access_token",
		Description: "Get access token LightWAN Orch Server. This access token is required parameter for other api calls.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"client_id": map[string]any{
					"type":        "string",
					"description": "client id (provided by user client)",
				},
				"client_secret": map[string]any{
					"type":        "string",
					"description": "client secret (provided by user client)",
				},
				"grant_type": map[string]any{
					"type":        "string",
					"description": "grant type, default is `client_credentials`",
					"default":     "client_credentials",
				},
			},
			"required": []any{"client_id", "client_secret"},
		},
	}, deps.handleAccessToken)

	server.AddTool(&mcp.Tool{
		Name:        "authenticate",
		Description: "Authenticate the user with the given scope. Because the global and customer token have different endpoints for future tools.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"scope": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "authorized operation list for this token. It should be the result of `get_access_token` tool.",
				},
			},
			"required": []any{"scope"},
		},
	}, deps.handleAuthenticate)

	server.AddTool(&mcp.Tool{
		Name:        "get_all_sites_info",
		Description: "Get all sites info for a given customer id. This is a paginated query interface where you can control the page number and page size.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"access_token": map[string]any{
					"type":        "string",
					"description": "access token",
				},
				"customer_id": map[string]any{
					"type":        "string",
					"description": "customer id",
				},
				"page": map[string]any{
					"type":        "integer",
					"description": "page number, optional: when omitted, all sites will be returned",
				},
				"size": map[string]any{
					"type":        "integer",
					"description": "page size",
					"default":     20,
				},
			},
			"required": []any{"access_token"},
		},
	}, deps.handleAllSites)

	server.AddPrompt(&mcp.Prompt{
		Name:        "initial_instruction",
		Description: "This is the initial instruction for the lw_orch_server, guiding the agent how to work properly",
		Arguments: []*mcp.PromptArgument{
			{Name: "access_token", Description: "access token issued for this session", Required: true},
			{Name: "scope", Description: "endpoint class resolved from the token scope", Required: true},
		},
	}, deps.handleInitialInstruction)

	return server
}

type dateArgs struct {
	Offset int `json:"offset"`
}

func (d ServerDeps) handleDateInfo(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args dateArgs
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
			return nil, fmt.Errorf("invalid arguments: %w", err)
		}
	}

	info := DateInfoAt(time.Now(), args.Offset)
	d.Log.Info("date info served", "offset", args.Offset, "date", info.Date)
	return mcpserve.Structured(info)
}

type tokenArgs struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	GrantType    string `json:"grant_type"`
}

func (d ServerDeps) handleAccessToken(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args tokenArgs
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if args.ClientID == "" || args.ClientSecret == "" {
		return nil, fmt.Errorf("client_id and client_secret are required")
	}

	tok, err := d.Orch.Token(ctx, args.ClientID, args.ClientSecret, args.GrantType)
	if err != nil {
		d.Log.Error("token exchange failed",
			"client_id", args.ClientID,
			"error", err,
			"class", d.Orch.ClassifyError(err).String())
		return nil, err
	}

	d.Log.Info("token issued", "client_id", args.ClientID, "expires_in", tok.ExpiresIn)
	return mcpserve.Structured(tok)
}

type authArgs struct {
	Scope []string `json:"scope"`
}

func (d ServerDeps) handleAuthenticate(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args authArgs
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	class := ResolveScope(args.Scope)
	d.Log.Info("scope resolved", "scopes", strings.Join(args.Scope, ","), "class", class)
	return mcpserve.Structured(class)
}

type sitesArgs struct {
	AccessToken string `json:"access_token"`
	CustomerID  string `json:"customer_id"`
	Page        *int   `json:"page"`
	Size        int    `json:"size"`
}

func (d ServerDeps) handleAllSites(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args sitesArgs
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if args.AccessToken == "" {
		return nil, fmt.Errorf("access_token is required")
	}
	if args.Size <= 0 {
		args.Size = 20
	}

	// customer_id принимается для совместимости со схемой; upstream
	// фильтрует сайты по токену, в запрос параметр не уходит.
	var sites *Sites
	var err error
	if args.Page == nil {
		sites, err = d.Orch.AllSites(ctx, args.AccessToken, args.Size)
	} else {
		sites, err = d.Orch.SitesPage(ctx, args.AccessToken, *args.Page, args.Size)
	}
	if err != nil {
		d.Log.Error("sites listing failed",
			"error", err,
			"class", d.Orch.ClassifyError(err).String())
		return nil, err
	}

	d.Log.Info("sites served",
		"total_elements", sites.TotalElements,
		"returned", len(sites.Content),
		"customer_id", args.CustomerID)
	return mcpserve.Structured(sites)
}

func (d ServerDeps) handleInitialInstruction(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	token := req.Params.Arguments["access_token"]
	scope := req.Params.Arguments["scope"]

	return &mcp.GetPromptResult{
		Description: "Initial instruction for the query agent",
		Messages: []*mcp.PromptMessage{
			{Role: "user", Content: &mcp.TextContent{Text: fmt.Sprintf(initialInstruction, token, scope)}},
		},
	}, nil
}
