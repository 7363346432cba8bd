package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mohammad-safakhou/citebank/config"
	"github.com/mohammad-safakhou/citebank/internal/aggregator"
	"github.com/mohammad-safakhou/citebank/internal/httpx"
	"github.com/mohammad-safakhou/citebank/internal/registry/inmemory"
	"github.com/mohammad-safakhou/citebank/internal/retriever"
	"github.com/mohammad-safakhou/citebank/internal/retry"
	"github.com/mohammad-safakhou/citebank/internal/toolkit"
	"github.com/mohammad-safakhou/citebank/tools/validate"
	"github.com/mohammad-safakhou/citebank/tools/web_fetch/httpfetch"
	"github.com/mohammad-safakhou/citebank/tools/web_search/tavily"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"results": []map[string]string{
			{"title": "Guide", "url": "https://ico.org.uk/guide", "content": "Guidance on fines for organisations that breach the rules."},
		}})
	}))
	t.Cleanup(upstream.Close)

	logger := zaptest.NewLogger(t)
	store := inmemory.NewInMemorySessionStore()
	client := httpx.New(time.Second)
	agg := aggregator.New(&tavily.Search{APIKey: "k", BaseURL: upstream.URL, Client: client}, store, nil,
		aggregator.Options{DefaultMaxResults: 3, Policy: retry.Policy{MaxRetries: 1}}, logger)
	ret := retriever.New(&httpfetch.Fetcher{Client: client}, nil, store, nil,
		retriever.Options{InlineMinChars: 10, FetchPolicy: retry.Policy{MaxRetries: 1}}, logger)
	val := validate.New(config.ValidatorConfig{Timeout: time.Second, MaxRetries: 1}, logger)
	kit := toolkit.New(agg, ret, store, val, nil, toolkit.Options{ToolTimeout: 5 * time.Second}, logger)
	return NewServer(kit, "citebank", logger)
}

// roundTrip feeds lines to Serve and returns the responses keyed by id.
func roundTrip(t *testing.T, srv *Server, lines ...string) map[string]rpcResp {
	t.Helper()
	var out bytes.Buffer
	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	require.NoError(t, srv.Serve(context.Background(), in, &out))

	got := map[string]rpcResp{}
	sc := bufio.NewScanner(&out)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		var resp rpcResp
		require.NoError(t, json.Unmarshal(sc.Bytes(), &resp), sc.Text())
		id, _ := json.Marshal(resp.ID)
		got[string(id)] = resp
	}
	return got
}

func toolText(t *testing.T, resp rpcResp) string {
	t.Helper()
	require.Nil(t, resp.Error)
	content, ok := resp.Result["content"].([]any)
	require.True(t, ok, "result: %v", resp.Result)
	require.Len(t, content, 1)
	block := content[0].(map[string]any)
	require.Equal(t, "text", block["type"])
	return block["text"].(string)
}

func TestInitializeAndList(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	got := roundTrip(t, srv,
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
	)
	require.Len(t, got, 2, "notifications get no response")
	require.Equal(t, protocolVersion, got["1"].Result["protocolVersion"])

	tools := got["2"].Result["tools"].([]any)
	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.(map[string]any)["name"].(string))
	}
	require.Equal(t, []string{"search", "get_source_details", "list_available_domains", "filter_sources_by_domain", "validate_url"}, names)
}

func TestSearchThenDetails(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	got := roundTrip(t, srv, `{"jsonrpc":"2.0","id":"s","method":"tools/call","params":{"name":"search","arguments":{"queries":["ico fines"]}}}`)
	summary := toolText(t, got[`"s"`])
	key, ok := aggregator.KeyFromSummary(summary)
	require.True(t, ok, summary)

	got = roundTrip(t, srv,
		`{"jsonrpc":"2.0","id":"d","method":"tools/call","params":{"name":"get_source_details","arguments":{"citation_ids":["src_1"],"search_id":"`+key+`"}}}`,
		`{"jsonrpc":"2.0","id":"l","method":"tools/call","params":{"name":"list_available_domains","arguments":{}}}`,
	)
	require.Contains(t, toolText(t, got[`"d"`]), "Guidance on fines")
	require.JSONEq(t, `["ico.org.uk"]`, toolText(t, got[`"l"`]))
}

func TestErrors(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	got := roundTrip(t, srv,
		`{not json`,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"nope"}}`,
		`{"jsonrpc":"2.0","id":2,"method":"resources/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"validate_url","arguments":{}}}`,
	)
	require.Equal(t, codeParse, got["null"].Error.Code)
	require.Equal(t, "unknown tool: nope", got["1"].Error.Message)
	require.Equal(t, codeNoMethod, got["2"].Error.Code)
	require.Equal(t, "url is required", got["3"].Error.Message)
}

func TestArgHelpers(t *testing.T) {
	t.Parallel()
	require.Equal(t, 3, asInt(float64(3)))
	require.Equal(t, 0, asInt("3"))
	require.Equal(t, []string{"a", "b"}, asStrSlice([]any{"a", 1, "b"}))
	require.Equal(t, []string{"solo"}, asStrSlice("solo"))
	require.Equal(t, "k2", sessionArg(map[string]any{"session_key": "k2"}))
}
