package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ludo-technologies/simdup/domain"
	"github.com/ludo-technologies/simdup/internal/ingest"
	"github.com/ludo-technologies/simdup/internal/lsh"
	"github.com/ludo-technologies/simdup/internal/optimizer"
)

// inlineSource labels records passed directly in a tool call.
const inlineSource = "request"

// HandlerSet exposes MCP tool handlers with shared dependencies.
type HandlerSet struct {
	deps *Dependencies
}

// NewHandlerSet constructs a handler set.
func NewHandlerSet(deps *Dependencies) *HandlerSet {
	if deps == nil {
		deps = NewDependencies(nil, "", defaultLogger())
	}
	return &HandlerSet{deps: deps}
}

// HandleFindCandidates handles the find_candidates tool
func (h *HandlerSet) HandleFindCandidates(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("invalid arguments format"), nil
	}

	path, hasPath := args["path"].(string)
	rawRecords, hasRecords := args["records"].([]interface{})
	switch {
	case hasPath && hasRecords:
		return mcp.NewToolResultError("path and records cannot be used together"), nil
	case !hasPath && !hasRecords:
		return mcp.NewToolResultError("path or records parameter is required"), nil
	}

	req := h.deps.DedupeRequest()
	if err := applyDedupeArgs(req, args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var (
		response *domain.DedupeResponse
		err      error
	)
	if hasPath {
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			return mcp.NewToolResultError(fmt.Sprintf("path does not exist: %s", path)), nil
		}
		req.Paths = []string{path}

		dedupeUC, buildErr := h.deps.BuildDedupeUseCase()
		if buildErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create detector: %v", buildErr)), nil
		}
		response, err = dedupeUC.AnalyzeAndReturn(ctx, *req)
	} else {
		response, err = h.dedupeInline(ctx, req, rawRecords)
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("detection failed: %v", err)), nil
	}

	outputMode := "summary"
	if om, ok := args["output_mode"].(string); ok {
		outputMode = om
	}

	var responseData interface{}
	switch outputMode {
	case "full":
		responseData = response
	default:
		summary := map[string]interface{}{
			"pairs":      response.Pairs,
			"statistics": statisticsSummary(response.Statistics),
		}
		if response.Evaluation != nil {
			summary["evaluation"] = response.Evaluation
		}
		responseData = summary
	}

	return jsonResult(responseData)
}

// dedupeInline decodes records given in the call and runs detection on them.
func (h *HandlerSet) dedupeInline(ctx context.Context, req *domain.DedupeRequest, rawRecords []interface{}) (*domain.DedupeResponse, error) {
	req.Paths = []string{inlineSource}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	data, err := json.Marshal(rawRecords)
	if err != nil {
		return nil, domain.NewInvalidInputError("failed to encode records", err)
	}
	records, err := ingest.NewLoader().Decode(bytes.NewReader(data), inlineSource)
	if err != nil {
		return nil, domain.NewInvalidInputError("failed to decode records", err)
	}
	return h.deps.DedupeService().Dedupe(ctx, req, records)
}

// HandleOptimalParams handles the optimal_params tool
func (h *HandlerSet) HandleOptimalParams(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("invalid arguments format"), nil
	}

	threshold, ok := args["threshold"].(float64)
	if !ok {
		return mcp.NewToolResultError("threshold parameter is required and must be a number"), nil
	}

	req := h.deps.ParamsRequest()
	req.Threshold = threshold
	if err := applyParamsArgs(req, args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	response, err := h.deps.ParamsService().Optimize(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("optimization failed: %v", err)), nil
	}

	return jsonResult(map[string]interface{}{
		"threshold":           response.Threshold,
		"num_perm":            response.NumPerm,
		"amplified":           response.Amplified,
		"params":              response.Params,
		"banding":             response.Params.String(),
		"error":               response.Error,
		"fp":                  response.FP,
		"fn":                  response.FN,
		"effective_threshold": response.EffectiveThreshold,
		"cached":              response.Cached,
	})
}

// HandleThresholdComp handles the threshold_comp tool
func (h *HandlerSet) HandleThresholdComp(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("invalid arguments format"), nil
	}

	bands, found, err := intArg(args, "bands")
	if err != nil || !found || bands <= 0 {
		return mcp.NewToolResultError("bands parameter is required and must be a positive integer"), nil
	}
	rows, found, err := intArg(args, "rows")
	if err != nil || !found || rows <= 0 {
		return mcp.NewToolResultError("rows parameter is required and must be a positive integer"), nil
	}

	p := lsh.Standard(bands, rows)
	return jsonResult(map[string]interface{}{
		"banding":        p.String(),
		"length":         p.Length(),
		"steepest_point": optimizer.ThresholdComp(rows, bands),
		"approximation":  p.Threshold(),
	})
}

func statisticsSummary(stats *domain.DedupeStatistics) map[string]interface{} {
	if stats == nil {
		return nil
	}
	return map[string]interface{}{
		"items":           stats.Items,
		"failures":        stats.Failures,
		"empty_items":     stats.EmptyItems,
		"banding":         stats.Params.String(),
		"params_source":   stats.ParamsSource,
		"candidate_pairs": stats.CandidatePairs,
		"reported_pairs":  stats.ReportedPairs,
	}
}

// applyDedupeArgs overlays tool arguments on a configured request. A
// threshold without bands and rows re-enables the optimizer.
func applyDedupeArgs(req *domain.DedupeRequest, args map[string]interface{}) error {
	if s, ok := args["sketch"].(string); ok {
		req.SketchType = domain.SketchType(s)
	}
	if v, ok := args["seed"].(float64); ok {
		if v < 0 || v != math.Trunc(v) {
			return fmt.Errorf("seed must be a non-negative integer")
		}
		req.MasterSeed = uint64(v)
	}
	if v, ok := args["min_similarity"].(float64); ok {
		req.MinSimilarity = v
	}
	if s, ok := args["sort_by"].(string); ok {
		req.SortBy = domain.SortCriteria(s)
	}
	if v, ok := args["no_cache"].(bool); ok {
		req.NoCache = v
	}
	if v, ok := args["amplified"].(bool); ok {
		req.Amplified = v
	}

	numPerm, found, err := intArg(args, "num_perm")
	if err != nil {
		return err
	}
	if found {
		req.NumPerm = numPerm
	}
	if minR1, found, err := intArg(args, "minimum_r1"); err != nil {
		return err
	} else if found {
		req.MinimumR1 = minR1
	}

	bands, hasBands, err := intArg(args, "bands")
	if err != nil {
		return err
	}
	rows, hasRows, err := intArg(args, "rows")
	if err != nil {
		return err
	}
	if hasBands || hasRows {
		req.Bands, req.Rows = bands, rows
	} else if t, ok := args["threshold"].(float64); ok {
		req.Threshold = t
		req.Bands, req.Rows = 0, 0
	}
	return nil
}

func applyParamsArgs(req *domain.ParamsRequest, args map[string]interface{}) error {
	if v, ok := args["amplified"].(bool); ok {
		req.Amplified = v
	}
	if v, ok := args["fp_weight"].(float64); ok {
		req.FPWeight = v
	}
	if v, ok := args["fn_weight"].(float64); ok {
		req.FNWeight = v
	}
	if v, ok := args["no_cache"].(bool); ok {
		req.NoCache = v
	}
	if numPerm, found, err := intArg(args, "num_perm"); err != nil {
		return err
	} else if found {
		req.NumPerm = numPerm
	}
	if minR1, found, err := intArg(args, "minimum_r1"); err != nil {
		return err
	} else if found {
		req.MinimumR1 = minR1
	}
	return nil
}

// intArg reads a JSON number argument that must hold an integer.
func intArg(args map[string]interface{}, key string) (int, bool, error) {
	raw, present := args[key]
	if !present {
		return 0, false, nil
	}
	v, ok := raw.(float64)
	if !ok || v != math.Trunc(v) {
		return 0, true, fmt.Errorf("%s must be an integer", key)
	}
	return int(v), true, nil
}

func jsonResult(data interface{}) (*mcp.CallToolResult, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}
