package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/valyala/fastjson"
)

var errNotArray = errors.New("field is not an array")

func readBody(r *http.Request) []byte {
	body, _ := io.ReadAll(r.Body)
	return body
}

// jsonString returns the field value when it exists and is a string.
func jsonString(v *fastjson.Value, key string) (string, bool) {
	fv := v.Get(key)
	if fv == nil || fv.Type() != fastjson.TypeString {
		return "", false
	}
	b, _ := fv.StringBytes()
	return string(b), true
}

// jsonOptionalString returns nil when the field is absent.
func jsonOptionalString(v *fastjson.Value, key string) *string {
	s, ok := jsonString(v, key)
	if !ok {
		return nil
	}
	return &s
}

// jsonInt64Array parses a field that must be an array of 64-bit integers.
func jsonInt64Array(v *fastjson.Value, key string) ([]int64, error) {
	fv := v.Get(key)
	if fv == nil {
		return nil, nil
	}
	items, err := fv.Array()
	if err != nil {
		return nil, errNotArray
	}

	out := make([]int64, 0, len(items))
	for _, item := range items {
		n, err := item.Int64()
		if err != nil || n < 1 {
			return nil, errors.New("array items must be positive 64-bit integers")
		}
		out = append(out, n)
	}
	return out, nil
}

// jsonStringArray parses a field that must be an array of strings.
func jsonStringArray(v *fastjson.Value, key string) ([]string, error) {
	fv := v.Get(key)
	if fv == nil {
		return nil, nil
	}
	items, err := fv.Array()
	if err != nil {
		return nil, errNotArray
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		b, err := item.StringBytes()
		if err != nil {
			return nil, errors.New("array items must be strings")
		}
		out = append(out, string(b))
	}
	return out, nil
}
