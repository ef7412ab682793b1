package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"kabimap/internal/graph"
	"kabimap/internal/query"
	"kabimap/util"
)

const (
	guidelinesURI = "kabimap://usage-guidelines"
	schemaPrefix  = "kabimap://schemas/"
)

// segmentInfo summarizes one graph file.
type segmentInfo struct {
	File        string `json:"file"`
	Root        string `json:"root,omitempty"`
	Decls       int    `json:"decls"`
	Occurrences int    `json:"occurrences"`
	Segments    int    `json:"segments"`
	Exported    int    `json:"exported"`
	Duplicates  int    `json:"duplicates"`
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         guidelinesURI,
		Name:        "Usage Guidelines",
		Description: "How to query kernel ABI declaration graphs with this server",
		MIMEType:    "text/markdown",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return contents(guidelinesURI, "text/markdown", s.guidelines()), nil
	})

	schemas, err := buildSchemaMap()
	if err != nil {
		s.logger.Warn("[server] tool schemas unavailable", "error", err)
	}
	s.mcpServer.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: schemaPrefix + "{name}",
		Name:        "Schema",
		Description: "JSON schema of a tool's arguments (count, decl, exports, struct), of a query result (result) or of a graph file summary (segment)",
		MIMEType:    "application/schema+json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		uri := req.Params.URI
		text, ok := schemas[strings.TrimPrefix(uri, schemaPrefix)]
		if !ok {
			return nil, mcp.ResourceNotFoundError(uri)
		}
		return contents(uri, "application/schema+json", text), nil
	})

	s.mcpServer.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "kabimap://segments/{+path}",
		Name:        "Graph File",
		Description: "Summary of a persisted declaration graph file",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		uri := req.Params.URI
		text, err := s.describeSegment(util.URIToSegmentPath(uri))
		if err != nil {
			return nil, err
		}
		return contents(uri, "application/json", text), nil
	})
}

func contents(uri, mimeType, text string) *mcp.ReadResourceResult {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{URI: uri, MIMEType: mimeType, Text: text}},
	}
}

// guidelines describes the tools and what this server was configured with.
func (s *Server) guidelines() string {
	var b strings.Builder
	b.WriteString("# kabimap\n\n")
	b.WriteString("Each graph file holds the declarations reachable from the exported functions\n")
	b.WriteString("of one compilation unit. Every declaration is stored once; a query walks its\n")
	b.WriteString("occurrences.\n\n## Tools\n\n")
	for mode := query.ModeCount; mode <= query.ModeStruct; mode++ {
		fmt.Fprintf(&b, "- %s: %s\n", mode, toolDescriptions[mode])
	}

	b.WriteString("\n## Arguments\n\n")
	b.WriteString("- target: full declaration text such as \"struct device\" or \"int e1000_probe\"\n")
	b.WriteString("  with whole_word, any substring without it.\n")
	b.WriteString("- first: stop at the first match.\n")
	b.WriteString("- whitelisted: exports and struct only, requires whole_word.\n")
	if s.opts.ListFile != "" {
		fmt.Fprintf(&b, "- list_file and files are optional; calls default to %s.\n", s.opts.ListFile)
	} else {
		b.WriteString("- list_file or files is required; no default list is configured.\n")
	}
	if s.opts.WhitelistDir == "" {
		b.WriteString("\nNo whitelist directory is configured, so whitelisted calls fail.\n")
	}
	fmt.Fprintf(&b, "\nGraph file summaries are available as %s<path>.\n", util.SegmentURI(""))
	return b.String()
}

func (s *Server) describeSegment(path string) (string, error) {
	g, err := s.load(path)
	if err != nil {
		return "", fmt.Errorf("failed to load graph file %s: %w", path, err)
	}
	jsonBytes, err := json.MarshalIndent(summarize(path, g), "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonBytes), nil
}

func summarize(path string, g *graph.Store) segmentInfo {
	info := segmentInfo{
		File:        path,
		Decls:       g.Len(),
		Occurrences: g.Occurrences(),
		Segments:    len(g.SegmentStarts()) + 1,
	}
	if root, ok := g.Occurrence(g.Root()); ok {
		if d, ok := g.Lookup(root.Key); ok {
			info.Root = d.Text
		}
	}
	for _, k := range g.Keys() {
		d, _ := g.Lookup(k)
		for _, o := range d.Siblings {
			if o.Role == graph.RoleExported {
				info.Exported++
			}
			if o.Flags.Has(graph.FlagDuplicate) {
				info.Duplicates++
			}
		}
	}
	return info
}

// buildSchemaMap infers the published schemas from the Go types.
func buildSchemaMap() (map[string]string, error) {
	args, err := schemaJSON[QueryArgs]()
	if err != nil {
		return nil, fmt.Errorf("query arguments: %w", err)
	}
	m := make(map[string]string)
	for mode := query.ModeCount; mode <= query.ModeStruct; mode++ {
		m[mode.String()] = args
	}
	if m["result"], err = schemaJSON[queryResult](); err != nil {
		return m, fmt.Errorf("query result: %w", err)
	}
	if m["segment"], err = schemaJSON[segmentInfo](); err != nil {
		return m, fmt.Errorf("segment summary: %w", err)
	}
	return m, nil
}

func schemaJSON[T any]() (string, error) {
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		return "", err
	}
	b, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
