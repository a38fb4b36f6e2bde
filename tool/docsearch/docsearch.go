// Package docsearch implements the documentation grounding tool: an HTTP
// client for the Microsoft Learn search API exposed to grounded pipeline
// stages as the search_docs function.
//
// The tool is a run-scoped resource: Open it once before a run, share it
// across every grounded stage of that run, and Close it when the run ends.
package docsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hupe1980/archpipe/tool"
)

// DefaultEndpoint is the public Microsoft Learn search API.
const DefaultEndpoint = "https://learn.microsoft.com/api/search"

// DefaultTop bounds how many documentation hits are returned per query.
const DefaultTop = 3

const toolName = "search_docs"

// Options configure the documentation search tool.
type Options struct {
	// Endpoint overrides the search API base URL (tests, proxies).
	Endpoint string
	// Top is the default number of results per query.
	Top int
	// Locale restricts results to a documentation locale.
	Locale string
	// HTTPClient overrides the default 30s-timeout client.
	HTTPClient *http.Client
}

// Tool queries official documentation and formats the hits for model
// consumption. It implements tool.Tool and is safe for concurrent use.
type Tool struct {
	endpoint string
	top      int
	locale   string
	client   *http.Client
}

// Open creates a ready-to-use documentation search tool. The returned tool
// holds idle HTTP connections until Close is called.
func Open(optFns ...func(o *Options)) (*Tool, error) {
	opts := Options{
		Endpoint: DefaultEndpoint,
		Top:      DefaultTop,
		Locale:   "en-us",
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Top <= 0 {
		opts.Top = DefaultTop
	}

	if _, err := url.Parse(opts.Endpoint); err != nil {
		return nil, fmt.Errorf("docsearch: invalid endpoint %q: %w", opts.Endpoint, err)
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	return &Tool{
		endpoint: opts.Endpoint,
		top:      opts.Top,
		locale:   opts.Locale,
		client:   client,
	}, nil
}

// Close releases the tool's idle connections. Safe to call once per run.
func (t *Tool) Close() error {
	t.client.CloseIdleConnections()
	return nil
}

// Name returns the function name exposed to the model.
func (t *Tool) Name() string { return toolName }

// Description returns the tool description exposed to the model.
func (t *Tool) Description() string {
	return "Search official Microsoft Learn documentation. " +
		"Use this to verify Azure service capabilities, best practices, and Bicep resource types."
}

// Parameters returns the JSON schema for search_docs arguments.
func (t *Tool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "Search terms, e.g. 'Azure SQL private endpoint'",
			},
			"top": map[string]interface{}{
				"type":        "integer",
				"description": fmt.Sprintf("Maximum number of results (default %d)", t.top),
			},
		},
		"required": []string{"query"},
	}
}

// searchResponse is the wire shape of the Learn search API.
type searchResponse struct {
	Results []searchResult `json:"results"`
}

type searchResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// Call executes a documentation search and returns the formatted hits as a
// single string for the model to cite.
func (t *Tool) Call(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	query, ok := args["query"].(string)
	if !ok || strings.TrimSpace(query) == "" {
		return nil, tool.NewToolError(toolName, "missing required argument: query", "VALIDATION_ERROR")
	}

	top := t.top
	if v, ok := args["top"].(float64); ok && int(v) > 0 {
		top = int(v)
	}

	results, err := t.search(ctx, query, top)
	if err != nil {
		return nil, err
	}

	if len(results) == 0 {
		return fmt.Sprintf("No documentation found for %q.", query), nil
	}

	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n   %s\n", i+1, r.Title, r.URL)
		if r.Description != "" {
			fmt.Fprintf(&b, "   %s\n", r.Description)
		}
	}
	return b.String(), nil
}

func (t *Tool) search(ctx context.Context, query string, top int) ([]searchResult, error) {
	params := url.Values{}
	params.Set("search", query)
	params.Set("locale", t.locale)
	params.Set("$top", fmt.Sprintf("%d", top))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &tool.ToolError{
			Tool:    toolName,
			Message: fmt.Sprintf("failed to create request: %v", err),
			Code:    "EXECUTION_ERROR",
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &tool.ToolError{
			Tool:    toolName,
			Message: fmt.Sprintf("request failed: %v", err),
			Code:    "EXECUTION_ERROR",
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &tool.ToolError{
			Tool:    toolName,
			Message: fmt.Sprintf("search API error: status %d", resp.StatusCode),
			Code:    "EXECUTION_ERROR",
		}
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &tool.ToolError{
			Tool:    toolName,
			Message: fmt.Sprintf("failed to decode response: %v", err),
			Code:    "EXECUTION_ERROR",
		}
	}

	return decoded.Results, nil
}
