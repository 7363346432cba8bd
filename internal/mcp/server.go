// Package mcp serves the citation toolkit over a stdio JSON-RPC loop.
// Clients call "tools/list" and "tools/call"; every tool answers with a
// single text content block, so failures surface in-band.
package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/citebank/internal/aggregator"
	"github.com/mohammad-safakhou/citebank/internal/toolkit"
)

const protocolVersion = "2024-11-05"

// ---------- JSON-RPC skeleton ----------

type rpcReq struct {
	JSONRPC string                 `json:"jsonrpc"`
	ID      any                    `json:"id,omitempty"`
	Method  string                 `json:"method"`
	Params  map[string]interface{} `json:"params"`
}
type rpcResp struct {
	JSONRPC string                 `json:"jsonrpc"`
	ID      any                    `json:"id"`
	Result  map[string]interface{} `json:"result,omitempty"`
	Error   *rpcError              `json:"error,omitempty"`
}
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

const (
	codeParse    = -32700
	codeNoMethod = -32601
	codeServer   = -32000
)

// ---------- Tool registry ----------

// ToolDesc describes a single MCP tool, including input schema.
type ToolDesc struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// Server holds the toolkit and the cached tool descriptors.
type Server struct {
	kit    *toolkit.Toolkit
	logger *zap.Logger
	name   string
	tools  []ToolDesc

	mu  sync.Mutex
	out io.Writer
}

func NewServer(kit *toolkit.Toolkit, name string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := &Server{kit: kit, name: name, logger: logger.Named("mcp")}
	srv.initTools()
	return srv
}

// Tools returns the advertised tool descriptors.
func (srv *Server) Tools() []ToolDesc { return srv.tools }

func (srv *Server) initTools() {
	stringList := map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
	sessionKey := map[string]any{"type": "string", "description": "Search ID returned by search; defaults to the latest search."}
	srv.tools = []ToolDesc{
		{
			Name:        "search",
			Description: "Run several web searches at once and register every hit under a stable citation ID (src_N).",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"queries":               stringList,
					"max_results_per_query": map[string]any{"type": "integer", "minimum": 1, "maximum": aggregator.MaxResultsLimit},
				},
				"required": []string{"queries"},
			},
		},
		{
			Name:        "get_source_details",
			Description: "Read the content behind citation IDs, fetching pages on first access.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"citation_ids": stringList,
					"search_id":    sessionKey,
				},
				"required": []string{"citation_ids"},
			},
		},
		{
			Name:        "list_available_domains",
			Description: "List the distinct domains of a search's sources.",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{"search_id": sessionKey},
			},
		},
		{
			Name:        "filter_sources_by_domain",
			Description: "Return title, URL and snippet of the sources hosted on the given domains.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"domains":   stringList,
					"search_id": sessionKey,
				},
				"required": []string{"domains"},
			},
		},
		{
			Name:        "validate_url",
			Description: "Check that a URL answers with real content rather than an error page.",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{"url": map[string]any{"type": "string"}},
				"required":   []string{"url"},
			},
		},
	}
}

// callTool dispatches a tool by name and returns its textual output.
func (srv *Server) callTool(ctx context.Context, name string, args map[string]any) (string, error) {
	switch name {
	case "search":
		return srv.kit.Search(ctx, asStrSlice(args["queries"]), asInt(args["max_results_per_query"])), nil
	case "get_source_details":
		return srv.kit.GetSourceDetails(ctx, asStrSlice(args["citation_ids"]), sessionArg(args)), nil
	case "list_available_domains":
		return srv.kit.ListAvailableDomains(ctx, sessionArg(args)), nil
	case "filter_sources_by_domain":
		return srv.kit.FilterSourcesByDomain(ctx, asStrSlice(args["domains"]), sessionArg(args)), nil
	case "validate_url":
		u := str(args["url"])
		if u == "" {
			return "", errors.New("url is required")
		}
		return srv.kit.ValidateURL(ctx, u), nil
	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}
}

// ---------- stdio loop ----------

// Serve reads newline-delimited requests from in until EOF or ctx is done.
// Tool calls run concurrently; responses are written whole, one per line.
func (srv *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	srv.out = out
	rd := bufio.NewReader(in)
	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line, err := rd.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			srv.handleLine(ctx, line, &wg)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

func (srv *Server) handleLine(ctx context.Context, line []byte, wg *sync.WaitGroup) {
	var req rpcReq
	if err := json.Unmarshal(line, &req); err != nil {
		srv.writeError(nil, codeParse, "parse error: "+err.Error())
		return
	}
	switch req.Method {
	case "initialize":
		srv.writeResult(req.ID, map[string]any{
			"protocolVersion": protocolVersion,
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo":      map[string]any{"name": srv.name},
		})
	case "notifications/initialized":
	case "ping":
		srv.writeResult(req.ID, map[string]any{})
	case "tools/list":
		srv.writeResult(req.ID, map[string]any{"tools": srv.tools})
	case "tools/call":
		name := str(req.Params["name"])
		args, _ := req.Params["arguments"].(map[string]any)
		if args == nil {
			args = map[string]any{}
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			text, err := srv.callTool(ctx, name, args)
			if err != nil {
				srv.logger.Warn("tool call failed", zap.String("tool", name), zap.Error(err))
				srv.writeError(req.ID, codeServer, err.Error())
				return
			}
			srv.writeResult(req.ID, map[string]any{
				"content": []map[string]any{{"type": "text", "text": text}},
			})
		}()
	default:
		if req.ID == nil {
			return
		}
		srv.writeError(req.ID, codeNoMethod, fmt.Sprintf("unknown method: %s", req.Method))
	}
}

func (srv *Server) writeResult(id any, result map[string]interface{}) {
	srv.write(rpcResp{JSONRPC: "2.0", ID: id, Result: result})
}

func (srv *Server) writeError(id any, code int, msg string) {
	srv.write(rpcResp{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: msg}})
}

func (srv *Server) write(resp rpcResp) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if err := json.NewEncoder(srv.out).Encode(resp); err != nil {
		srv.logger.Error("write response", zap.Error(err))
	}
}

// ---------- helpers ----------

func sessionArg(args map[string]any) string {
	if s := str(args["search_id"]); s != "" {
		return s
	}
	return str(args["session_key"])
}

func str(v any) string { s, _ := v.(string); return s }
func asInt(v any) int {
	switch x := v.(type) {
	case float64:
		return int(x)
	case int:
		return x
	case json.Number:
		i, _ := x.Int64()
		return int(i)
	default:
		return 0
	}
}
func asStrSlice(v any) []string {
	switch x := v.(type) {
	case []string:
		return x
	case []any:
		out := make([]string, 0, len(x))
		for _, e := range x {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{x}
	default:
		return nil
	}
}
