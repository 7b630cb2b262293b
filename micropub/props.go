package micropub

import (
	"net/url"
	"time"
)

// stringProp extracts the zero-or-one string value for key from a
// microformats2 property map. Absent and empty both yield "".
func stringProp(props map[string]any, key string) (string, error) {
	v, ok := props[key]
	if !ok {
		return "", nil
	}
	list, ok := v.([]any)
	if !ok {
		return "", invalidProps("key %q is not a list", key)
	}
	switch len(list) {
	case 0:
		return "", nil
	case 1:
		s, ok := list[0].(string)
		if !ok {
			return "", invalidProps("key %q is not a string", key)
		}
		return s, nil
	default:
		return "", invalidProps("too many values for key %q", key)
	}
}

// stringList coerces a property value to its list of strings. A nil value
// is an empty list.
func stringList(v any, key string) ([]string, error) {
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, invalidProps("key %q is not a list", key)
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, invalidProps("key %q is not a list of strings", key)
		}
		out = append(out, s)
	}
	return out, nil
}

// formList returns the multi-valued form field for key. Clients disagree on
// whether list fields carry a [] suffix, so both spellings are accepted.
func formList(form url.Values, key string) []string {
	return append(form[key], form[key+"[]"]...)
}

// dateValue resolves a timestamp that may arrive as a scalar string, a
// singleton list, or not at all. Both wire encodings are accepted
// uniformly. The second return reports whether a value was present.
func dateValue(v any, key string) (time.Time, bool, error) {
	switch v := v.(type) {
	case nil:
		return time.Time{}, false, nil
	case string:
		return parseDate(v, key)
	case []string:
		if len(v) == 0 {
			return time.Time{}, false, nil
		}
		if len(v) != 1 {
			return time.Time{}, false, invalidProps("too many values for key %q", key)
		}
		return parseDate(v[0], key)
	case []any:
		if len(v) == 0 {
			return time.Time{}, false, nil
		}
		if len(v) != 1 {
			return time.Time{}, false, invalidProps("too many values for key %q", key)
		}
		return dateValue(v[0], key)
	default:
		return time.Time{}, false, invalidProps("key %q is not a date", key)
	}
}

// dateLayouts are the ISO-8601 shapes clients actually send: with an offset,
// and naive. Naive timestamps are taken as UTC.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseDate(s, key string) (time.Time, bool, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true, nil
		}
	}
	return time.Time{}, false, invalidProps("invalid date for key %q: %s", key, s)
}

// parseContent interprets the microformats content property: a single
// element container holding either a plain string (plaintext) or an object
// whose only recognised key is html (rich content). A missing property is
// empty plaintext.
func parseContent(v any) (contentType, content string, err error) {
	if v == nil {
		return "text/plain", "", nil
	}
	list, ok := v.([]any)
	if !ok || len(list) != 1 {
		return "", "", invalidProps("could not parse content")
	}
	switch child := list[0].(type) {
	case string:
		return "text/plain", child, nil
	case map[string]any:
		if len(child) == 1 {
			if html, ok := child["html"].(string); ok {
				return "text/html", html, nil
			}
		}
	}
	return "", "", invalidProps("could not parse content")
}

// resolveDates normalizes the published and created timestamps: published
// defaults to now, created defaults to published.
func resolveDates(get func(key string) any, now time.Time) (published, created time.Time, err error) {
	published, ok, err := dateValue(get("published"), "published")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !ok {
		published = now.UTC()
	}
	created, ok, err = dateValue(get("created"), "created")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !ok {
		created = published
	}
	return published, created, nil
}
