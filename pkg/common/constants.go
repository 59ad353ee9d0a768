package common

import "time"

const (
	CriteriaLocalCacheTTL = 10 * time.Minute
	CriteriaRedisCacheTTL = 1 * time.Hour

	RequestIDHeader = "X-Request-Id"
)
