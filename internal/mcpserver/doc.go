// Package mcpserver exposes the Pagoda CMDB over the Model Context
// Protocol: lookup and search tools for models and items, the datacenter
// rack inventory, router topology, and the guided network-to-VM prompt.
package mcpserver
