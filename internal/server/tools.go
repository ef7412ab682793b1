package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"kabimap/internal/lookup"
	"kabimap/internal/query"
	"kabimap/internal/render"
)

// Arguments structs

type QueryArgs struct {
	Target      string   `json:"target" jsonschema:"The declaration text or substring to look up"`
	WholeWord   bool     `json:"whole_word,omitempty" jsonschema:"Match the exact declaration text instead of a substring"`
	First       bool     `json:"first,omitempty" jsonschema:"Stop at the first match"`
	Verbose     bool     `json:"verbose,omitempty" jsonschema:"Label each row with its role and mark back-pointers"`
	Whitelisted bool     `json:"whitelisted,omitempty" jsonschema:"Only report whitelisted exported symbols (requires whole_word)"`
	ListFile    string   `json:"list_file,omitempty" jsonschema:"Path of a newline-separated list of graph files"`
	Files       []string `json:"files,omitempty" jsonschema:"Graph files to search in addition to the list file"`
	Masks       []string `json:"masks,omitempty" jsonschema:"Directory mask patterns; only matching graph files are searched"`
}

// queryResult is the JSON body of a successful query tool call.
type queryResult struct {
	Mode     string       `json:"mode"`
	Target   string       `json:"target"`
	Searched int          `json:"searched"`
	Count    int          `json:"count"`
	Hits     []lookup.Hit `json:"hits,omitempty"`
	Missing  []string     `json:"missing,omitempty"`
	Output   string       `json:"output,omitempty"`
}

var toolDescriptions = map[query.Mode]string{
	query.ModeCount:   "Counts occurrences of a declaration across the graph files",
	query.ModeDecl:    "Shows the members of a declaration as an indented tree",
	query.ModeExports: "Shows everything an exported function exposes through its arguments and return",
	query.ModeStruct:  "Lists every exported function that reaches a type, from the file down to the type",
}

func (s *Server) registerTools() {
	for m := query.ModeCount; m <= query.ModeStruct; m++ {
		mode := m
		mcp.AddTool(s.mcpServer, &mcp.Tool{
			Name:        mode.String(),
			Description: toolDescriptions[mode],
		}, func(ctx context.Context, req *mcp.CallToolRequest, args QueryArgs) (*mcp.CallToolResult, any, error) {
			return s.runQuery(ctx, mode, args), nil, nil
		})
	}
}

func (s *Server) runQuery(ctx context.Context, mode query.Mode, args QueryArgs) *mcp.CallToolResult {
	req := lookup.Request{
		Mode: mode,
		Options: query.Options{
			Target:    args.Target,
			WholeWord: args.WholeWord,
			FirstOnly: args.First,
		},
		ListFile: args.ListFile,
		Files:    args.Files,
		Masks:    args.Masks,
		Load:     s.load,
		Logger:   s.logger,
	}
	if req.ListFile == "" && len(req.Files) == 0 {
		req.ListFile = s.opts.ListFile
	}
	if len(req.Masks) == 0 {
		req.Masks = s.opts.Masks
	}
	if args.Whitelisted {
		wl, err := s.whitelist()
		if err != nil {
			return errorResult(fmt.Sprintf("Whitelist unavailable: %v", err))
		}
		req.Options.Whitelist = wl
	}

	rep, err := lookup.Run(ctx, req)
	if err != nil && !errors.Is(err, lookup.ErrMissingFile) {
		return errorResult(fmt.Sprintf("Query failed: %v", err))
	}
	if rep == nil {
		return errorResult(fmt.Sprintf("Query failed: %v", err))
	}

	out := queryResult{
		Mode:     mode.String(),
		Target:   rep.Target,
		Searched: rep.Searched,
		Count:    rep.Count,
		Hits:     rep.Hits,
		Missing:  rep.Missing,
	}
	if mode != query.ModeCount {
		var buf bytes.Buffer
		if werr := render.Write(&buf, rep.Rows, render.Options{Verbose: args.Verbose}); werr != nil {
			return errorResult(fmt.Sprintf("Render failed: %v", werr))
		}
		out.Output = buf.String()
	}

	jsonBytes, _ := json.MarshalIndent(out, "", "  ")
	res := textResult(string(jsonBytes))
	// hits were found but some files could not be read
	if err != nil {
		res.IsError = true
	}
	return res
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}
