// Package mcp exposes the engine as an MCP server so agents can validate
// form data, inspect conditional state, and explore schemas as tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/aretw0/lattice/pkg/schema"
)


// Server wraps a schema loader and exposes evaluation as MCP tools.
type Server struct {
	loader     ports.SchemaLoader
	engineOpts []lattice.Option
	mcpServer  *server.MCPServer

	mu      sync.Mutex
	engines map[string]*lattice.Engine
}

// NewServer creates an MCP server over the given schema loader. Engine
// options (remote checker, policies) apply to every schema it serves.
func NewServer(loader ports.SchemaLoader, engineOpts ...lattice.Option) *Server {
	s := &Server{
		loader:     loader,
		engineOpts: engineOpts,
		mcpServer:  server.NewMCPServer("lattice-mcp", lattice.Version),
		engines:    map[string]*lattice.Engine{},
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and shuts down
// gracefully when ctx is canceled.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{Addr: addr, Handler: mux}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) engineFor(ctx context.Context, schemaID string) (*lattice.Engine, error) {
	s.mu.Lock()
	eng, ok := s.engines[schemaID]
	s.mu.Unlock()
	if ok {
		return eng, nil
	}

	sch, err := s.loader.Load(ctx, schemaID)
	if err != nil {
		return nil, err
	}
	eng, err = lattice.New(sch, s.engineOpts...)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.engines[schemaID] = eng
	s.mu.Unlock()
	return eng, nil
}

// decodeData parses the JSON-object data argument shared by the tools.
func decodeData(args map[string]any) (domain.Snapshot, error) {
	raw, ok := args["data"].(string)
	if !ok || raw == "" {
		return domain.Snapshot{}, nil
	}
	var data domain.Snapshot
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("data must be a JSON object: %w", err)
	}
	return data, nil
}

func (s *Server) registerTools() {
	validateTool := mcp.NewTool("validate_data",
		mcp.WithDescription("Validate form data against a schema. Returns per-field errors and pending remote checks."),
		mcp.WithString("schema_id", mcp.Required(), mcp.Description("Schema to validate against")),
		mcp.WithString("data", mcp.Description("JSON object of field values")),
		mcp.WithString("trigger", mcp.Description("Rule level: change, blur, or submit (default change)")),
		mcp.WithString("field", mcp.Description("Restrict to this field and its dependents (optional)")),
		mcp.WithOutputSchema[domain.ValidationResults](),
	)
	s.mcpServer.AddTool(validateTool, mcp.NewStructuredToolHandler(s.handleValidate))

	conditionalTool := mcp.NewTool("conditional_state",
		mcp.WithDescription("Compute visibility, enablement and overrides for every section and field."),
		mcp.WithString("schema_id", mcp.Required(), mcp.Description("Schema to evaluate")),
		mcp.WithString("data", mcp.Description("JSON object of field values")),
		mcp.WithOutputSchema[domain.ConditionalState](),
	)
	s.mcpServer.AddTool(conditionalTool, mcp.NewStructuredToolHandler(s.handleConditional))

	s.mcpServer.AddTool(mcp.NewTool("describe_schema",
		mcp.WithDescription("Get the full schema definition."),
		mcp.WithString("schema_id", mcp.Required(), mcp.Description("Schema to describe")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		schemaID, _ := request.GetArguments()["schema_id"].(string)
		eng, err := s.engineFor(ctx, schemaID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("load schema: %v", err)), nil
		}
		jsonBytes, _ := json.Marshal(eng.Schema())
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})

	s.mcpServer.AddTool(mcp.NewTool("field_dependents",
		mcp.WithDescription("List the fields re-evaluated when the given field changes."),
		mcp.WithString("schema_id", mcp.Required(), mcp.Description("Schema to inspect")),
		mcp.WithString("field", mcp.Required(), mcp.Description("Field ID")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		schemaID, _ := args["schema_id"].(string)
		field, _ := args["field"].(string)

		eng, err := s.engineFor(ctx, schemaID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("load schema: %v", err)), nil
		}
		if _, ok := eng.Schema().Field(field); !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown field %q", field)), nil
		}
		out := map[string]any{
			"field":      field,
			"dependents": eng.Dependents(field),
			"depends_on": eng.Dependencies(field),
		}
		jsonBytes, _ := json.Marshal(out)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

func (s *Server) handleValidate(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (domain.ValidationResults, error) {
	schemaID, _ := args["schema_id"].(string)
	eng, err := s.engineFor(ctx, schemaID)
	if err != nil {
		return domain.ValidationResults{}, fmt.Errorf("load schema: %w", err)
	}

	data, err := decodeData(args)
	if err != nil {
		return domain.ValidationResults{}, err
	}

	trigger := schema.TriggerChange
	if t, ok := args["trigger"].(string); ok && t != "" {
		trigger = schema.Trigger(t)
		if !trigger.Known() {
			return domain.ValidationResults{}, fmt.Errorf("unknown trigger %q", t)
		}
	}

	if field, ok := args["field"].(string); ok && field != "" {
		results, err := eng.ValidateField(ctx, field, data, trigger)
		if err != nil {
			return domain.ValidationResults{}, fmt.Errorf("validate field: %w", err)
		}
		return results, nil
	}
	return eng.ValidateAll(ctx, data, trigger), nil
}

func (s *Server) handleConditional(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (domain.ConditionalState, error) {
	schemaID, _ := args["schema_id"].(string)
	eng, err := s.engineFor(ctx, schemaID)
	if err != nil {
		return domain.ConditionalState{}, fmt.Errorf("load schema: %w", err)
	}

	data, err := decodeData(args)
	if err != nil {
		return domain.ConditionalState{}, err
	}
	return eng.ConditionalState(data), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource("lattice://schemas", "Available Form Schemas",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		ids, err := s.loader.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("list schemas: %w", err)
		}
		jsonBytes, _ := json.Marshal(ids)
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "lattice://schemas",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
