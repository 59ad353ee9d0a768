package common

type contextKey string

const (
	RequestIDContextKey contextKey = "request_id"
	ClientIPContextKey  contextKey = "client_ip"
	LatencyContextKey   contextKey = "__execution_time"
)
