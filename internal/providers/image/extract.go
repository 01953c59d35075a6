package image

import "strings"

type matcher func(v any) (string, bool)

// refMatchers are tried in order; inline bytes win over remote URLs.
var refMatchers = []matcher{
	matchString,
	matchInlineBase64,
	matchURLField,
	matchNestedImageURL,
}

var inlineFields = []string{"b64", "b64_json", "base64", "image_base64", "data"}

// ExtractImageRef turns a provider-shaped image value into a URL or data URI.
// It returns false when no known shape matches; callers treat that as an
// unrenderable item, not a failure.
func ExtractImageRef(v any) (string, bool) {
	for _, m := range refMatchers {
		if ref, ok := m(v); ok {
			return ref, true
		}
	}
	return "", false
}

// ExtractImageRefs applies ExtractImageRef to each item and drops unrenderable ones.
func ExtractImageRefs(items []any) []string {
	refs := make([]string, 0, len(items))
	for _, item := range items {
		if ref, ok := ExtractImageRef(item); ok {
			refs = append(refs, ref)
		}
	}
	return refs
}

func matchString(v any) (string, bool) {
	s, ok := v.(string)
	s = strings.TrimSpace(s)
	return s, ok && s != ""
}

func matchInlineBase64(v any) (string, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return "", false
	}
	for _, field := range inlineFields {
		data := stringField(obj, field)
		if data == "" {
			continue
		}
		if strings.HasPrefix(data, "data:") {
			return data, true
		}
		mime := firstNonEmpty(stringField(obj, "mime_type"), stringField(obj, "mimeType"), stringField(obj, "content_type"), "image/png")
		return "data:" + mime + ";base64," + data, true
	}
	return "", false
}

func matchURLField(v any) (string, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return "", false
	}
	u := stringField(obj, "url")
	return u, u != ""
}

func matchNestedImageURL(v any) (string, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return "", false
	}
	nested, ok := obj["image"].(map[string]any)
	if !ok {
		return "", false
	}
	u := stringField(nested, "url")
	return u, u != ""
}

func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return strings.TrimSpace(s)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
