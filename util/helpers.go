package util

import (
	"context"
	"encoding/base64"
	"strings"
)

// DefaultSearchDepth represents the maximum amount of nested maps (aka recursions) that can be searched
const DefaultSearchDepth = 5

// Contains checks whether an item exists in a slice
func Contains[T comparable](s []T, it T) bool {
	for _, v := range s {
		if v == it {
			return true
		}
	}

	return false
}

// ContainsAnyString checks whether a string contains any of the given substrings
func ContainsAnyString(s string, strs ...string) bool {
	for _, v := range strs {
		if strings.Contains(s, v) {
			return true
		}
	}

	return false
}

// Dedupe removes duplicate elements from a slice, preserving the order of the remaining elements.
func Dedupe[T comparable](src []T, filterInPlace bool) []T {
	var result []T
	if filterInPlace {
		result = src[:0]
	} else {
		result = make([]T, 0, len(src))
	}
	seen := make(map[T]bool)
	for _, x := range src {
		if !seen[x] {
			result = append(result, x)
			seen[x] = true
		}
	}
	return result
}

// MapWithoutError applies a function to each element of a slice, returning a new slice of the same length.
func MapWithoutError[T, U any](xs []T, f func(T) U) []U {
	result := make([]U, len(xs))
	for i, x := range xs {
		result[i] = f(x)
	}
	return result
}

// Filter returns a new slice containing only the elements that satisfy the predicate
func Filter[T any](xs []T, f func(T) bool, filterInPlace bool) []T {
	var result []T
	if filterInPlace {
		result = xs[:0]
	} else {
		result = make([]T, 0, len(xs))
	}
	for _, x := range xs {
		if f(x) {
			result = append(result, x)
		}
	}
	return result
}

// FirstNonErrorWithValue runs each function in order and returns the first
// non-error result. If returnOnCtxErr is true, a context cancellation stops the
// chain immediately. shouldFallThrough, when provided, decides whether an error
// allows falling through to the next function; a nil shouldFallThrough falls
// through on every error.
func FirstNonErrorWithValue[T any](ctx context.Context, returnOnCtxErr bool, shouldFallThrough func(error) bool, fns ...func(context.Context) (T, error)) (T, error) {
	var lastErr error
	for _, fn := range fns {
		if returnOnCtxErr && ctx.Err() != nil {
			return *new(T), ctx.Err()
		}
		it, err := fn(ctx)
		if err == nil {
			return it, nil
		}
		if shouldFallThrough != nil && !shouldFallThrough(err) {
			return *new(T), err
		}
		lastErr = err
	}
	return *new(T), lastErr
}

// Base64Decode decodes a base64 string, trying each of the given encodings in order
func Base64Decode(s string, encodings ...*base64.Encoding) ([]byte, error) {
	var lastError error
	for _, encoding := range encodings {
		bs, err := encoding.DecodeString(s)
		if err == nil {
			return bs, nil
		}
		lastError = err
	}
	return nil, lastError
}

// GetValueFromMap returns the value at the first occurence of a given key in a map that potentially contains nested maps
func GetValueFromMap(m map[string]interface{}, key string, searchDepth int) interface{} {
	if searchDepth == 0 {
		return nil
	}
	if _, ok := m[key]; ok {
		return m[key]
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v
		}

		if nest, ok := v.(map[string]interface{}); ok {
			if nestVal := GetValueFromMap(nest, key, searchDepth-1); nestVal != nil {
				return nestVal
			}
		}
		if array, ok := v.([]interface{}); ok {
			for _, arrayVal := range array {
				if nest, ok := arrayVal.(map[string]interface{}); ok {
					if nestVal := GetValueFromMap(nest, key, searchDepth-1); nestVal != nil {
						return nestVal
					}
				}
			}
		}
	}
	return nil
}

// FindFirstFieldFromMap finds the first field in the map that matches any of the given keys
func FindFirstFieldFromMap(it map[string]interface{}, fields ...string) interface{} {
	for _, field := range fields {
		if val := GetValueFromMap(it, field, DefaultSearchDepth); val != nil {
			return val
		}
	}
	return nil
}

// TruncateWithEllipsis truncates a string to the given length, appending an ellipsis if truncated
func TruncateWithEllipsis(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length] + "..."
}
