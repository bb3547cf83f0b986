package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("vm_from_network",
		mcp.WithPromptDescription("Find the VMs behind a global network by walking the load-balancer chain"),
		mcp.WithArgument("network",
			mcp.ArgumentDescription("Global network in CIDR form, e.g. 1.12.123.0/24"),
			mcp.RequiredArgument(),
		),
	), s.handleVMFromNetwork)
}

func (s *Server) handleVMFromNetwork(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	network := request.Params.Arguments["network"]
	if network == "" {
		return nil, fmt.Errorf("network argument is required")
	}

	text := fmt.Sprintf(`- Search IPAddress items with advanced_search where the Network attribute is set to %s.
- Search LBVirtualServer items with advanced_search where LBServiceGroup is set and the IP address attribute matches any of the IPs found above, joined with pipes as an OR search.
- Search LBServiceGroup items with advanced_search where LBServer is set, narrowing the item name to the LBServiceGroup values found above, joined with pipes as an OR search.
- Search LBServer items with advanced_search where the IP address attribute is set, narrowing the item name to the LBServer values found above, joined with pipes as an OR search.
- Search tsuchinoko-vm items with advanced_search where the category attribute is set and the IP address attribute matches any of the LBServer IPs found above, joined with pipes as an OR search.
- Build a table from the results with these columns: global IP, LBVirtualServer, LBServiceGroup, LBServer, private IP, tsuchinoko-vm, category.`, network)

	return &mcp.GetPromptResult{
		Description: "Find the VMs that belong to the given global network",
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.NewTextContent(text),
			},
		},
	}, nil
}
