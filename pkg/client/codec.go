package client

import (
	"mime"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

// ContentTypeJSON is the content type of JSON request bodies.
const ContentTypeJSON = "application/json"

// json is a drop-in replacement of encoding/json.
var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals

// isJSONContentType matches "application/json" and structured suffixes such as "application/problem+json".
// Parameters, for example "; charset=utf-8", are ignored.
func isJSONContentType(contentType string) bool {
	media := mediaType(contentType)
	subtype, found := strings.CutPrefix(media, "application/")
	if !found || subtype == "" {
		return false
	}
	if subtype == "json" {
		return true
	}
	prefix, found := strings.CutSuffix(subtype, "+json")
	return found && prefix != "" && !strings.ContainsAny(prefix, "/+ ")
}

func mediaType(contentType string) string {
	if v, _, err := mime.ParseMediaType(contentType); err == nil {
		return v
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}
