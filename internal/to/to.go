// package to contains functions for writing responses in various encodings.
package to

import (
	"io"
	"net/http"
	"net/url"
	"sort"

	"github.com/go-json-experiment/json"
)

// JSON writes the given object to the response body as JSON.
// If obj is a nil slice, an empty JSON array is written.
// If obj is a nil map, an empty JSON object is written.
// If obj is a nil pointer, a null is written.
func JSON(w http.ResponseWriter, obj any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	return json.MarshalOptions{}.MarshalFull(json.EncodeOptions{
		Indent: "  ",
	}, w, obj)
}

// Form writes the given values to the response body form encoded, with keys
// in sorted order. IndieAuth clients that do not ask for JSON get this.
func Form(w http.ResponseWriter, values map[string]string) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	form := make(url.Values, len(values))
	for _, k := range keys {
		form.Set(k, values[k])
	}
	w.Header().Set("Content-Type", "application/x-www-form-urlencoded; charset=utf-8")
	_, err := io.WriteString(w, form.Encode())
	return err
}
