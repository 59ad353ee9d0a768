package criteria

import (
	"fmt"
	"strings"
)

const keyPattern = "criteria:%s:%s"

// Normalize folds a user-typed query to the canonical cache form: lower
// case, no surrounding whitespace, internal whitespace runs collapsed to a
// single space. Two queries that differ only in case or spacing must always
// produce the same key.
func Normalize(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

func cacheKey(environment, query string) string {
	return fmt.Sprintf(keyPattern, environment, Normalize(query))
}
