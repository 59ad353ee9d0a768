package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fastjson"

	"github.com/thrustCoder/gamer-uncle-sub001/pkg/resilience"
)

// Client talks to the external criteria-extraction agent. The agent itself
// is an external collaborator; this boundary only sends the raw query and
// hands back the serialized criteria payload.
type Client interface {
	ExtractCriteria(ctx context.Context, query string) (string, error)
}

type Config struct {
	Endpoint           string
	BreakerMaxFailures uint32
	BreakerTimeout     time.Duration
}

type httpClient struct {
	endpoint string
	client   *fasthttp.Client
	policy   *resilience.Policy
	breaker  resilience.CircuitBreaker
	logger   *logrus.Logger
	parsers  fastjson.ParserPool
}

func NewHTTPClient(cfg Config, policy *resilience.Policy, logger *logrus.Logger) Client {
	return &httpClient{
		endpoint: cfg.Endpoint,
		client: &fasthttp.Client{
			MaxConnsPerHost:     512,
			MaxIdleConnDuration: 10 * time.Second,
			ReadBufferSize:      4096,
			WriteBufferSize:     4096,
		},
		policy:  policy,
		breaker: resilience.NewCircuitBreaker("agent", cfg.BreakerTimeout, cfg.BreakerMaxFailures),
		logger:  logger,
	}
}

type extractRequest struct {
	Query string `json:"query"`
}

func (c *httpClient) ExtractCriteria(ctx context.Context, query string) (string, error) {
	body, err := json.Marshal(extractRequest{Query: query})
	if err != nil {
		return "", fmt.Errorf("failed to encode extraction request: %w", err)
	}

	return resilience.Do(ctx, c.policy, func(ctx context.Context) (string, error) {
		var payload string
		err := c.breaker.Execute(func() error {
			var doErr error
			payload, doErr = c.post(body)
			return doErr
		})
		return payload, err
	})
}

func (c *httpClient) post(body []byte) (string, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.endpoint + "/api/agent/criteria")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	if err := c.client.Do(req, resp); err != nil {
		return "", fmt.Errorf("agent request failed: %w", err)
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return "", &resilience.StatusError{
			Code:    resp.StatusCode(),
			Message: "criteria extraction failed",
		}
	}

	parser := c.parsers.Get()
	defer c.parsers.Put(parser)

	parsed, err := parser.ParseBytes(resp.Body())
	if err != nil {
		return "", fmt.Errorf("malformed agent response: %w", err)
	}
	criteria := parsed.Get("criteria")
	if criteria == nil {
		return "", fmt.Errorf("agent response missing criteria")
	}
	return string(criteria.MarshalTo(nil)), nil
}
