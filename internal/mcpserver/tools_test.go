package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"mcp-pagoda/internal/pagoda"
)

func newTestServer(t *testing.T, handler http.Handler) *Server {
	t.Helper()
	backend := httptest.NewServer(handler)
	t.Cleanup(backend.Close)

	client := pagoda.NewClient(backend.URL, func(ctx context.Context) (string, error) {
		return "test-token", nil
	})
	return New("0.0.0-test", client)
}

func callArgs(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func textContent(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) != 1 {
		t.Fatalf("expected one content block, got %d", len(result.Content))
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", result.Content[0])
	}
	return text.Text
}

func TestModelListReturnsTrimmedRows(t *testing.T) {
	s := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"next":null,"results":[{"id":1,"name":"Rack","note":"racks","item_name_pattern":".*","status":0,"is_toplevel":true}]}`)
	}))

	result, err := s.handleModelList(context.Background(), callArgs(map[string]interface{}{"search": ""}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", textContent(t, result))
	}

	var rows []map[string]interface{}
	if err := json.Unmarshal([]byte(textContent(t, result)), &rows); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one row, got %d", len(rows))
	}
	if rows[0]["name"] != "Rack" || rows[0]["note"] != "racks" {
		t.Errorf("unexpected row: %v", rows[0])
	}
	if _, ok := rows[0]["status"]; ok {
		t.Error("model_list output must only carry id, name, and note")
	}
}

func TestModelDetailRequiresModelID(t *testing.T) {
	s := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("backend must not be called without a model_id")
	}))

	result, err := s.handleModelDetail(context.Background(), callArgs(map[string]interface{}{}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error for missing model_id")
	}
}

func TestItemListRowsUseSchemaName(t *testing.T) {
	s := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"next":null,"results":[{"id":100,"name":"r1","schema":{"id":7,"name":"Router"}}]}`)
	}))

	result, err := s.handleItemList(context.Background(), callArgs(map[string]interface{}{"model_id": float64(7)}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	var rows []map[string]interface{}
	if err := json.Unmarshal([]byte(textContent(t, result)), &rows); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if rows[0]["schema"] != "Router" {
		t.Errorf("expected schema name flattened, got %v", rows[0]["schema"])
	}
}

func TestBackendErrorSurfacesAsToolError(t *testing.T) {
	s := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	result, err := s.handleSearchItem(context.Background(), callArgs(map[string]interface{}{"query": "sv"}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error for backend failure")
	}
}

func TestAdvancedSearchBindsNestedArguments(t *testing.T) {
	var body map[string]interface{}
	s := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/entry/api/v2/advanced_search/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("bad body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"total_count":0,"values":[]}`)
	}))

	result, err := s.handleAdvancedSearch(context.Background(), callArgs(map[string]interface{}{
		"entities": []interface{}{float64(5)},
		"attrinfo": []interface{}{
			map[string]interface{}{"name": "IP address", "filter_key": float64(3), "keyword": "10.0.0.1"},
		},
		"item_keyword":    "sv",
		"item_filter_key": float64(1),
	}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", textContent(t, result))
	}

	attrinfo := body["attrinfo"].([]interface{})
	if len(attrinfo) != 1 {
		t.Fatalf("expected one attrinfo entry, got %d", len(attrinfo))
	}
	first := attrinfo[0].(map[string]interface{})
	if first["name"] != "IP address" || first["filter_key"] != float64(3) {
		t.Errorf("unexpected attrinfo: %v", first)
	}
	hint := body["hint_entry"].(map[string]interface{})
	if hint["keyword"] != "sv" || hint["filter_key"] != float64(1) {
		t.Errorf("unexpected hint_entry: %v", hint)
	}
}

func TestRackListShapesOccupancy(t *testing.T) {
	s := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/entity/api/v2/":
			fmt.Fprintf(w, `{"next":null,"results":[{"id":5,"name":"%s"}]}`, rackModelName)
		case "/entry/api/v2/advanced_search/":
			fmt.Fprintf(w, `{"total_count":1,"values":[{
				"entry":{"id":1,"name":"rack01"},
				"entity":{"id":5,"name":"%s"},
				"attrs":{
					"%s":{"value":{"as_string":"2"}},
					"%s":{"value":{"as_object":{"id":9,"name":"3F"}}},
					"%s":{"value":{"as_array_named_object":[
						{"name":"1","object":{"id":20,"name":"sv001"}},
						{"name":"1","object":{"id":21,"name":"sv002"}}
					]}}
				},
				"referrals":null
			}]}`, rackModelName, attrUnitCount, attrFloor, attrRackSpace)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))

	result, err := s.handleRackList(context.Background(), callArgs(map[string]interface{}{"floor_name": "3F"}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", textContent(t, result))
	}

	var rows []rackRow
	if err := json.Unmarshal([]byte(textContent(t, result)), &rows); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one rack, got %d", len(rows))
	}
	row := rows[0]
	if row.Name != "rack01" || row.UnitCount != 2 || row.Floor != "3F" {
		t.Errorf("unexpected rack row: %+v", row)
	}
	if got := row.RackSpace["1"]; len(got) != 2 || got[0] != "sv001" || got[1] != "sv002" {
		t.Errorf("unexpected unit 1 occupancy: %v", got)
	}
	if got := row.RackSpace["2"]; got == nil || len(got) != 0 {
		t.Errorf("expected empty unit 2 occupancy, got %v", got)
	}
}

func TestRouterTopologyPassthrough(t *testing.T) {
	s := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"router":"r1","peers":["r2","r3"]}]`)
	}))

	result, err := s.handleRouterTopology(context.Background(), callArgs(nil))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if !strings.Contains(textContent(t, result), `"r1"`) {
		t.Errorf("unexpected topology output: %s", textContent(t, result))
	}
}

func TestVMFromNetworkPrompt(t *testing.T) {
	s := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := mcp.GetPromptRequest{}
	req.Params.Name = "vm_from_network"
	req.Params.Arguments = map[string]string{"network": "1.12.123.0/24"}

	result, err := s.handleVMFromNetwork(context.Background(), req)
	if err != nil {
		t.Fatalf("prompt handler failed: %v", err)
	}
	if len(result.Messages) != 1 {
		t.Fatalf("expected one message, got %d", len(result.Messages))
	}
	content, ok := result.Messages[0].Content.(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", result.Messages[0].Content)
	}
	if !strings.Contains(content.Text, "1.12.123.0/24") {
		t.Error("prompt text must mention the requested network")
	}
	if result.Messages[0].Role != mcp.RoleUser {
		t.Errorf("unexpected role: %s", result.Messages[0].Role)
	}
}

func TestVMFromNetworkPromptRequiresNetwork(t *testing.T) {
	s := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := mcp.GetPromptRequest{}
	req.Params.Name = "vm_from_network"

	if _, err := s.handleVMFromNetwork(context.Background(), req); err == nil {
		t.Fatal("expected error for missing network argument")
	}
}
