package mcpserver

import (
	"context"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"

	"mcp-pagoda/internal/pagoda"
)

// Model and attribute names as defined in the CMDB.
const (
	rackModelName = "ラック"
	attrUnitCount = "ユニット数"
	attrFloor     = "フロア"
	attrRackSpace = "RackSpace"
)

// rackRow is one rack in the rack_list output: its floor, unit count, and
// what is mounted in each unit.
type rackRow struct {
	Name      string              `json:"name"`
	UnitCount int                 `json:"unit_count"`
	Floor     string              `json:"floor"`
	RackSpace map[string][]string `json:"rack_space"`
}

func (s *Server) handleRackList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	floorName := request.GetString("floor_name", "")

	rackModelID, err := s.pagoda.ModelIDByName(ctx, rackModelName)
	if err != nil {
		return toolError("rack_list", err), nil
	}

	result, err := s.pagoda.AdvancedSearch(ctx, &pagoda.AdvancedSearchRequest{
		ModelIDs: []int{rackModelID},
		Attrs: []pagoda.AttrFilter{
			{Name: attrUnitCount},
			{Name: attrRackSpace},
			{Name: attrFloor, FilterKey: pagoda.AttrFilterTextContained, Keyword: floorName},
		},
	})
	if err != nil {
		return toolError("rack_list", err), nil
	}

	rows := make([]rackRow, 0, len(result.Values))
	for _, value := range result.Values {
		row := rackRow{
			Name:      value.Entry.Name,
			UnitCount: attrInt(value.Attrs, attrUnitCount),
			Floor:     attrObjectName(value.Attrs, attrFloor),
			RackSpace: map[string][]string{},
		}
		mounted := attrNamedObjects(value.Attrs, attrRackSpace)
		for unit := 1; unit <= row.UnitCount; unit++ {
			key := strconv.Itoa(unit)
			spaces := mounted[key]
			if spaces == nil {
				spaces = []string{}
			}
			row.RackSpace[key] = spaces
		}
		rows = append(rows, row)
	}
	return jsonResult(rows)
}

func (s *Server) handleRouterTopology(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	topology, err := s.pagoda.RouterTopology(ctx)
	if err != nil {
		return toolError("router_topology", err), nil
	}
	return mcp.NewToolResultText(string(topology)), nil
}

// attrValue unwraps the "value" payload of a named attribute.
func attrValue(attrs map[string]interface{}, name string) map[string]interface{} {
	attr, ok := attrs[name].(map[string]interface{})
	if !ok {
		return nil
	}
	value, _ := attr["value"].(map[string]interface{})
	return value
}

// attrInt reads an attribute stored as a numeric string. Missing or
// malformed values yield zero.
func attrInt(attrs map[string]interface{}, name string) int {
	value := attrValue(attrs, name)
	str, _ := value["as_string"].(string)
	n, err := strconv.Atoi(str)
	if err != nil {
		return 0
	}
	return n
}

// attrObjectName reads the name of an attribute stored as an object
// reference.
func attrObjectName(attrs map[string]interface{}, name string) string {
	value := attrValue(attrs, name)
	obj, _ := value["as_object"].(map[string]interface{})
	objName, _ := obj["name"].(string)
	return objName
}

// attrNamedObjects reads an attribute stored as an array of named object
// references, grouping the referenced object names by entry name.
func attrNamedObjects(attrs map[string]interface{}, name string) map[string][]string {
	value := attrValue(attrs, name)
	entries, _ := value["as_array_named_object"].([]interface{})

	grouped := make(map[string][]string)
	for _, raw := range entries {
		entry, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		key, _ := entry["name"].(string)
		obj, _ := entry["object"].(map[string]interface{})
		objName, _ := obj["name"].(string)
		if key == "" || objName == "" {
			continue
		}
		grouped[key] = append(grouped[key], objName)
	}
	return grouped
}
