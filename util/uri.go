package util

import (
	"path/filepath"
	"strings"
)

const segmentScheme = "kabimap://segments/"

// SegmentURI names a persisted graph file as an MCP resource.
func SegmentURI(path string) string {
	return segmentScheme + filepath.ToSlash(path)
}

// URIToSegmentPath reverses SegmentURI. Other URIs are returned unchanged.
func URIToSegmentPath(uri string) string {
	if strings.HasPrefix(uri, segmentScheme) {
		return filepath.FromSlash(strings.TrimPrefix(uri, segmentScheme))
	}
	return uri
}
