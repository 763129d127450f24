// Package mcp serves the banking tool catalog over the Model Context
// Protocol: JSON-RPC 2.0 on newline-delimited stdio.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/lakshayknows/banking-operations-mcp-server/internal/buildinfo"
	"github.com/lakshayknows/banking-operations-mcp-server/internal/ledger"
	"github.com/lakshayknows/banking-operations-mcp-server/internal/tools"
)

// Server exposes a tool registry as an MCP server.
type Server struct {
	registry    *tools.Registry
	logger      *slog.Logger
	initialized bool
}

// NewServer creates an MCP server over the given registry. A nil
// logger discards logs. Logs must never go to stdout here: stdout is
// the protocol channel.
func NewServer(registry *tools.Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{registry: registry, logger: logger}
}

// Serve runs the server on os.Stdin and os.Stdout until EOF.
func (s *Server) Serve(ctx context.Context) error {
	return s.Run(ctx, os.Stdin, os.Stdout)
}

// Run processes JSON-RPC 2.0 requests from input and writes responses
// to output until input reaches EOF. Each message occupies one line.
func (s *Server) Run(ctx context.Context, input io.Reader, output io.Writer) error {
	scanner := bufio.NewScanner(input)
	// Tool results can be large; a default scanner buffer is too small.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	encoder := json.NewEncoder(output)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			if writeErr := writeError(encoder, json.RawMessage("null"), codeParseError, "parse error: "+err.Error()); writeErr != nil {
				return fmt.Errorf("writing parse error response: %w", writeErr)
			}
			continue
		}

		if req.JSONRPC != "2.0" {
			if !req.isNotification() {
				if writeErr := writeError(encoder, req.ID, codeInvalidRequest, "unsupported JSON-RPC version"); writeErr != nil {
					return fmt.Errorf("writing version error response: %w", writeErr)
				}
			}
			continue
		}

		// Notifications get no response.
		if req.isNotification() {
			continue
		}

		if err := s.dispatch(ctx, encoder, &req); err != nil {
			return err
		}
	}

	return scanner.Err()
}

func (s *Server) dispatch(ctx context.Context, encoder *json.Encoder, req *request) error {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(encoder, req)
	case "ping":
		return writeResult(encoder, req.ID, map[string]any{})
	case "tools/list":
		if !s.initialized {
			return writeError(encoder, req.ID, codeInvalidRequest, "server not initialized (call initialize first)")
		}
		return s.handleToolsList(encoder, req)
	case "tools/call":
		if !s.initialized {
			return writeError(encoder, req.ID, codeInvalidRequest, "server not initialized (call initialize first)")
		}
		return s.handleToolsCall(ctx, encoder, req)
	default:
		return writeError(encoder, req.ID, codeMethodNotFound, "unknown method: "+req.Method)
	}
}

func (s *Server) handleInitialize(encoder *json.Encoder, req *request) error {
	if len(req.Params) == 0 {
		return writeError(encoder, req.ID, codeInvalidParams, "params required for initialize")
	}

	var params initializeParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return writeError(encoder, req.ID, codeInvalidParams, "invalid initialize params: "+err.Error())
	}

	s.initialized = true
	s.logger.Info("mcp session initialized",
		"client", params.ClientInfo.Name,
		"client_version", params.ClientInfo.Version,
		"requested_protocol", params.ProtocolVersion)

	return writeResult(encoder, req.ID, initializeResult{
		ProtocolVersion: protocolVersion,
		Capabilities: serverCapabilities{
			Tools: &toolCapability{},
		},
		ServerInfo: serverInfo{
			Name:    "bankd",
			Version: buildinfo.Version,
		},
	})
}

func (s *Server) handleToolsList(encoder *json.Encoder, req *request) error {
	descriptions := make([]toolDescription, 0, len(s.registry.List()))
	for _, tool := range s.registry.List() {
		var annotations *toolAnnotations
		if tool.ReadOnly {
			yes := true
			annotations = &toolAnnotations{ReadOnlyHint: &yes, IdempotentHint: &yes}
		}
		descriptions = append(descriptions, toolDescription{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
			Annotations: annotations,
		})
	}
	return writeResult(encoder, req.ID, toolsListResult{Tools: descriptions})
}

func (s *Server) handleToolsCall(ctx context.Context, encoder *json.Encoder, req *request) error {
	if len(req.Params) == 0 {
		return writeError(encoder, req.ID, codeInvalidParams, "params required for tools/call")
	}

	var params toolsCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return writeError(encoder, req.ID, codeInvalidParams, "invalid tools/call params: "+err.Error())
	}

	if s.registry.Lookup(params.Name) == nil {
		return writeError(encoder, req.ID, codeInvalidParams, "unknown tool: "+params.Name)
	}

	payload, callErr := s.registry.Call(ctx, params.Name, params.Arguments)
	if callErr != nil {
		s.logger.Warn("tool call failed", "tool", params.Name, "error", callErr)
		info := classifyError(callErr)
		// Storage failures stay in the logs; the client sees only the
		// classification.
		message := callErr.Error()
		if info.Category == string(ledger.KindInternal) {
			message = "internal error"
		}
		return writeResult(encoder, req.ID, toolsCallResult{
			Content:   []contentBlock{{Type: "text", Text: message}},
			IsError:   true,
			ErrorInfo: info,
		})
	}

	serialized, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("serializing tool result failed", "tool", params.Name, "error", err)
		return writeResult(encoder, req.ID, toolsCallResult{
			Content:   []contentBlock{{Type: "text", Text: "internal error"}},
			IsError:   true,
			ErrorInfo: &errorInfo{Category: string(ledger.KindInternal)},
		})
	}

	return writeResult(encoder, req.ID, toolsCallResult{
		Content:           []contentBlock{{Type: "text", Text: string(serialized)}},
		StructuredContent: payload,
	})
}

// classifyError maps a tool error to structured metadata. Ledger
// business errors are never retryable; only context cancellation and
// deadline errors count as transient.
func classifyError(err error) *errorInfo {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &errorInfo{Category: "transient", Retryable: true}
	}
	return &errorInfo{Category: string(ledger.KindOf(err))}
}

func writeResult(encoder *json.Encoder, id json.RawMessage, result any) error {
	return encoder.Encode(response{JSONRPC: "2.0", ID: id, Result: result})
}

func writeError(encoder *json.Encoder, id json.RawMessage, code int, message string) error {
	return encoder.Encode(response{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: message}})
}
