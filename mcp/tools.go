package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ToolNames lists the registered tools in registration order.
var ToolNames = []string{"find_candidates", "optimal_params", "threshold_comp"}

// RegisterTools registers all simdup MCP tools with the server
func RegisterTools(s *server.MCPServer, h *HandlerSet) {
	// Tool 1: find_candidates - near-duplicate candidate pairs
	s.AddTool(mcp.NewTool("find_candidates",
		mcp.WithDescription("Find near-duplicate candidate pairs among token-set records using MinHash or Fill Sketch signatures and LSH banding"),
		mcp.WithString("path",
			mcp.Description("Path to a JSON record file or a directory of record files")),
		mcp.WithArray("records",
			mcp.Items(map[string]interface{}{"type": "object"}),
			mcp.Description("Inline records, each with id, tokens or text, and an optional group label. Use instead of path")),
		mcp.WithNumber("threshold",
			mcp.Description("Jaccard similarity threshold in (0, 1) used to choose banding parameters (default: 0.5)")),
		mcp.WithString("sketch",
			mcp.Enum("minhash", "fill"),
			mcp.Description("Signature family: minhash or fill (default: minhash)")),
		mcp.WithNumber("num_perm",
			mcp.Description("Signature length (default: 128)")),
		mcp.WithNumber("seed",
			mcp.Description("Master seed for the hash functions")),
		mcp.WithNumber("bands",
			mcp.Description("Explicit band count, requires rows and bypasses the optimizer")),
		mcp.WithNumber("rows",
			mcp.Description("Explicit rows per band, requires bands")),
		mcp.WithBoolean("amplified",
			mcp.Description("Use two-level amplified banding (default: false)")),
		mcp.WithNumber("minimum_r1",
			mcp.Description("Minimum rows of the first amplified level (default: 1)")),
		mcp.WithNumber("min_similarity",
			mcp.Description("Drop pairs whose estimated similarity is below this value (default: 0)")),
		mcp.WithString("sort_by",
			mcp.Enum("id", "similarity"),
			mcp.Description("Pair ordering: id or similarity (default: id)")),
		mcp.WithBoolean("no_cache",
			mcp.Description("Skip the parameter cache (default: false)")),
		mcp.WithString("output_mode",
			mcp.Enum("summary", "full"),
			mcp.Description("summary returns pairs and headline statistics, full returns the whole response (default: summary)")),
	), h.HandleFindCandidates)

	// Tool 2: optimal_params - banding parameter search
	s.AddTool(mcp.NewTool("optimal_params",
		mcp.WithDescription("Choose LSH banding parameters minimising weighted false positive and false negative probability"),
		mcp.WithNumber("threshold",
			mcp.Required(),
			mcp.Description("Jaccard similarity threshold in (0, 1)")),
		mcp.WithNumber("num_perm",
			mcp.Description("Signature length (default: 128)")),
		mcp.WithBoolean("amplified",
			mcp.Description("Search two-level amplified banding (default: false)")),
		mcp.WithNumber("fp_weight",
			mcp.Description("Weight of the false positive probability (default: 0.5)")),
		mcp.WithNumber("fn_weight",
			mcp.Description("Weight of the false negative probability (default: 0.5)")),
		mcp.WithNumber("minimum_r1",
			mcp.Description("Minimum rows of the first amplified level (default: 1)")),
		mcp.WithBoolean("no_cache",
			mcp.Description("Skip the parameter cache (default: false)")),
	), h.HandleOptimalParams)

	// Tool 3: threshold_comp - banding curve inspection
	s.AddTool(mcp.NewTool("threshold_comp",
		mcp.WithDescription("Compute the steepest point of the banding S-curve and its (1/b)^(1/r) approximation"),
		mcp.WithNumber("bands",
			mcp.Required(),
			mcp.Description("Number of bands")),
		mcp.WithNumber("rows",
			mcp.Required(),
			mcp.Description("Rows per band")),
	), h.HandleThresholdComp)
}
