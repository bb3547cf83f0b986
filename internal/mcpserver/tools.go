package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"mcp-pagoda/internal/pagoda"
	"mcp-pagoda/pkg/logging"
)

func (s *Server) registerTools() {
	modelListTool := mcp.NewTool("model_list",
		mcp.WithDescription("List all models"),
		mcp.WithString("search",
			mcp.Description("Narrow the list by model name"),
		),
	)
	s.mcp.AddTool(modelListTool, s.handleModelList)

	modelDetailTool := mcp.NewTool("model_detail",
		mcp.WithDescription("Get model detail, including its attribute declarations"),
		mcp.WithNumber("model_id",
			mcp.Required(),
			mcp.Description("Model ID, can be checked in the model_list tool"),
		),
	)
	s.mcp.AddTool(modelDetailTool, s.handleModelDetail)

	itemListTool := mcp.NewTool("item_list",
		mcp.WithDescription("List all active items of a model"),
		mcp.WithNumber("model_id",
			mcp.Required(),
			mcp.Description("Model ID, can be checked in the model_list tool"),
		),
		mcp.WithString("search",
			mcp.Description("Narrow the list by item name"),
		),
	)
	s.mcp.AddTool(itemListTool, s.handleItemList)

	itemDetailTool := mcp.NewTool("item_detail",
		mcp.WithDescription("Get item detail, including its attribute values"),
		mcp.WithNumber("item_id",
			mcp.Required(),
			mcp.Description("Item ID, can be checked in the item_list tool"),
		),
	)
	s.mcp.AddTool(itemDetailTool, s.handleItemDetail)

	searchItemTool := mcp.NewTool("search_item",
		mcp.WithDescription("Returns a list of items by partial match of the item name"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query matched against item names"),
		),
	)
	s.mcp.AddTool(searchItemTool, s.handleSearchItem)

	// advanced_search takes nested arrays of objects, which the typed
	// helpers cannot express, so its schema is declared raw.
	s.mcp.AddTool(mcp.Tool{
		Name: "advanced_search",
		Description: "Returns a list of item details. " +
			"Filter by selecting attributes. Also returns the referenced items.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"entities": map[string]interface{}{
					"type":        "array",
					"description": "List of model IDs, can be checked in the model_list tool",
					"items":       map[string]interface{}{"type": "integer"},
				},
				"attrinfo": map[string]interface{}{
					"type":        "array",
					"description": "Attribute filters; matching attribute values are included in the results",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"name": map[string]interface{}{
								"type":        "string",
								"description": "Attribute name, can be checked in the model_detail tool",
							},
							"filter_key": map[string]interface{}{
								"type":        "integer",
								"description": "0=CLEARED, 1=EMPTY, 2=NON_EMPTY, 3=TEXT_CONTAINED, 4=TEXT_NOT_CONTAINED, 5=DUPLICATED",
							},
							"keyword": map[string]interface{}{
								"type":        "string",
								"description": "Keyword to filter by; pipes perform OR searches, e.g. 'hoge|fuga'. Maximum length is 249 characters, split longer searches up.",
							},
						},
						"required": []string{"name"},
					},
				},
				"item_filter_key": map[string]interface{}{
					"type":        "integer",
					"description": "Narrow the search by item name: 0=CLEARED, 1=TEXT_CONTAINED, 2=TEXT_NOT_CONTAINED",
				},
				"item_keyword": map[string]interface{}{
					"type":        "string",
					"description": "Item-name keyword; pipes perform OR searches. Maximum length is 249 characters, split longer searches up.",
				},
				"has_referral": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, the search result will include referring items",
				},
				"referral_name": map[string]interface{}{
					"type":        "string",
					"description": "Narrow the referring items by name",
				},
				"limit":  map[string]interface{}{"type": "integer"},
				"offset": map[string]interface{}{"type": "integer"},
			},
			Required: []string{"entities", "attrinfo"},
		},
	}, s.handleAdvancedSearch)

	rackListTool := mcp.NewTool("rack_list",
		mcp.WithDescription("List all racks with their floor and per-unit occupancy"),
		mcp.WithString("floor_name",
			mcp.Description("Narrow the list by floor name"),
		),
	)
	s.mcp.AddTool(rackListTool, s.handleRackList)

	routerTopologyTool := mcp.NewTool("router_topology",
		mcp.WithDescription("Get router topology"),
	)
	s.mcp.AddTool(routerTopologyTool, s.handleRouterTopology)
}

func (s *Server) handleModelList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	search := request.GetString("search", "")

	models, err := s.pagoda.ListModels(ctx, search)
	if err != nil {
		return toolError("model_list", err), nil
	}

	rows := make([]map[string]interface{}, 0, len(models))
	for _, model := range models {
		rows = append(rows, map[string]interface{}{
			"id":   model.ID,
			"name": model.Name,
			"note": model.Note,
		})
	}
	return jsonResult(rows)
}

func (s *Server) handleModelDetail(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	modelID, err := request.RequireInt("model_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	detail, err := s.pagoda.GetModelDetail(ctx, modelID)
	if err != nil {
		return toolError("model_detail", err), nil
	}
	return jsonResult(detail)
}

func (s *Server) handleItemList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	modelID, err := request.RequireInt("model_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	search := request.GetString("search", "")

	items, err := s.pagoda.ListItems(ctx, modelID, search)
	if err != nil {
		return toolError("item_list", err), nil
	}

	rows := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		rows = append(rows, map[string]interface{}{
			"id":     item.ID,
			"name":   item.Name,
			"schema": item.Model.Name,
		})
	}
	return jsonResult(rows)
}

func (s *Server) handleItemDetail(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	itemID, err := request.RequireInt("item_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	detail, err := s.pagoda.GetItemDetail(ctx, itemID)
	if err != nil {
		return toolError("item_detail", err), nil
	}
	return jsonResult(detail)
}

func (s *Server) handleSearchItem(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	items, err := s.pagoda.SearchItems(ctx, query)
	if err != nil {
		return toolError("search_item", err), nil
	}
	return jsonResult(items)
}

func (s *Server) handleAdvancedSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := struct {
		Entities      []int               `json:"entities"`
		Attrinfo      []pagoda.AttrFilter `json:"attrinfo"`
		ItemFilterKey int                 `json:"item_filter_key"`
		ItemKeyword   string              `json:"item_keyword"`
		HasReferral   bool                `json:"has_referral"`
		ReferralName  string              `json:"referral_name"`
		Limit         int                 `json:"limit"`
		Offset        int                 `json:"offset"`
	}{}
	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse arguments: %v", err)), nil
	}

	result, err := s.pagoda.AdvancedSearch(ctx, &pagoda.AdvancedSearchRequest{
		ModelIDs:      args.Entities,
		Attrs:         args.Attrinfo,
		ItemFilterKey: args.ItemFilterKey,
		ItemKeyword:   args.ItemKeyword,
		HasReferral:   args.HasReferral,
		ReferralName:  args.ReferralName,
		Limit:         args.Limit,
		Offset:        args.Offset,
	})
	if err != nil {
		return toolError("advanced_search", err), nil
	}
	return jsonResult(result)
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	buf, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(buf)), nil
}

func toolError(tool string, err error) *mcp.CallToolResult {
	logging.Error("MCP", err, "Tool %s failed", tool)
	return mcp.NewToolResultError(err.Error())
}
