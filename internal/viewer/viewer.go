// Package viewer builds links into the public Neurosift web viewer.
package viewer

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultBaseURL is the publicly hosted Neurosift viewer.
const DefaultBaseURL = "https://flatironinstitute.github.io/neurosift/"

// Builder composes viewer URLs against a base address.
type Builder struct {
	base string
}

// NewBuilder creates a Builder. An empty base selects DefaultBaseURL.
func NewBuilder(base string) *Builder {
	if base == "" {
		base = DefaultBaseURL
	}
	return &Builder{base: base}
}

// Base returns the viewer base URL.
func (b *Builder) Base() string {
	return b.base
}

// queryValue escapes the characters that would split or truncate the url
// query parameter. Everything else is embedded verbatim, the way the viewer
// expects it.
var queryValue = strings.NewReplacer("%", "%25", "&", "%26", "+", "%2B", "#", "%23")

// NWB returns the viewer URL that opens the NWB file served at fileURL.
// The viewer reads the url parameter back exactly as fileURL.
func (b *Builder) NWB(fileURL string) string {
	return b.base + "?p=/nwb&url=" + queryValue.Replace(fileURL)
}

// LocalFileURL is where the local file server exposes a staged file.
func LocalFileURL(port int, name string) string {
	return fmt.Sprintf("http://localhost:%d/files/%s", port, escapeName(name))
}

var pathExtra = strings.NewReplacer("&", "%26", "+", "%2B")

// escapeName path-escapes name, plus '&' and '+' which PathEscape keeps but
// query decoding would mangle.
func escapeName(name string) string {
	return pathExtra.Replace(url.PathEscape(name))
}
