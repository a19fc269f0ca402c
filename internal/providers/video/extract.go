package video

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"lucidify/internal/domain"
)

// extractor pulls a video reference out of one known response shape. Each one
// reads the document only.
type extractor struct {
	name string
	find func(doc map[string]any) string
}

// extractors run in priority order; the first non-empty match wins.
var extractors = []extractor{
	{name: "predictions[0]", find: firstPrediction},
	{name: "response.videoUri", find: pathString("response", "videoUri")},
	{name: "response.outputUri", find: pathString("response", "outputUri")},
	{name: "response.result.videoUri", find: pathString("response", "result", "videoUri")},
	{name: "metadata.outputUri", find: pathString("metadata", "outputUri")},
	{name: "predictions[0].video.uri", find: pathString("predictions", 0, "video", "uri")},
	{name: "response.generateVideoResponse.generatedSamples[0].video.uri", find: pathString("response", "generateVideoResponse", "generatedSamples", 0, "video", "uri")},
	{name: "response.videos[0].gcsUri", find: pathString("response", "videos", 0, "gcsUri")},
}

// extractReference returns the first extractor match in doc. A `response` field that
// is itself a JSON string is decoded first.
func extractReference(doc map[string]any) (string, string, error) {
	doc = expandResponse(doc)
	for _, ex := range extractors {
		if ref := strings.TrimSpace(ex.find(doc)); ref != "" {
			return ref, ex.name, nil
		}
	}
	return "", "", &domain.ReferenceNotFoundError{Fields: topLevelFields(doc)}
}

// decodeDocument parses an upstream body into an object, unwrapping one level
// of JSON-in-a-string.
func decodeDocument(raw []byte) (map[string]any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if s, ok := v.(string); ok {
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return nil, fmt.Errorf("decode nested response: %w", err)
		}
	}
	doc, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New("decode response: not a JSON object")
	}
	return doc, nil
}

func expandResponse(doc map[string]any) map[string]any {
	s, ok := doc["response"].(string)
	if !ok {
		return doc
	}
	var nested any
	if err := json.Unmarshal([]byte(s), &nested); err != nil {
		return doc
	}
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	out["response"] = nested
	return out
}

func firstPrediction(doc map[string]any) string {
	first := lookup(doc, "predictions", 0)
	switch v := first.(type) {
	case string:
		return v
	case map[string]any:
		for _, key := range []string{"uri", "videoUri", "gcsUri"} {
			if s, ok := v[key].(string); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
	}
	return ""
}

func pathString(path ...any) func(map[string]any) string {
	return func(doc map[string]any) string {
		s, _ := lookup(doc, path...).(string)
		return s
	}
}

// lookup walks string keys through objects and int indexes through arrays.
func lookup(v any, path ...any) any {
	cur := v
	for _, step := range path {
		switch key := step.(type) {
		case string:
			m, ok := cur.(map[string]any)
			if !ok {
				return nil
			}
			cur = m[key]
		case int:
			arr, ok := cur.([]any)
			if !ok || key < 0 || key >= len(arr) {
				return nil
			}
			cur = arr[key]
		default:
			return nil
		}
	}
	return cur
}

func topLevelFields(doc map[string]any) []string {
	fields := make([]string, 0, len(doc))
	for k := range doc {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return fields
}
