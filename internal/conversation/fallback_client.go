package conversation

import (
	"context"

	"github.com/oneviewsg/rental-ai-platform/internal/observability/metrics"
	"github.com/oneviewsg/rental-ai-platform/pkg/logging"
)

// FallbackLLMClient wraps a primary LLM client with an optional fallback
// provider. When the primary fails it retries once on the fallback and
// records the failover so operators can see degraded providers.
type FallbackLLMClient struct {
	primary  LLMClient
	fallback LLMClient
	metrics  *metrics.ConversationMetrics
	logger   *logging.Logger
}

// NewFallbackLLMClient creates a fallback-enabled LLM client. A nil fallback
// means failures from the primary propagate to the caller. Metrics may be
// nil.
func NewFallbackLLMClient(primary, fallback LLMClient, m *metrics.ConversationMetrics, logger *logging.Logger) *FallbackLLMClient {
	if primary == nil {
		panic("conversation: primary LLM client required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &FallbackLLMClient{
		primary:  primary,
		fallback: fallback,
		metrics:  m,
		logger:   logger,
	}
}

// Complete sends the request to the primary LLM and retries on the fallback
// if the primary fails.
func (c *FallbackLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	resp, err := c.primary.Complete(ctx, req)
	if err == nil {
		return resp, nil
	}

	c.logger.Warn("primary LLM failed",
		"error", err.Error(),
		"fallback_available", c.fallback != nil,
	)
	c.metrics.ObserveLLMFallback("llm_primary")

	if c.fallback == nil {
		return LLMResponse{}, err
	}

	fallbackResp, fallbackErr := c.fallback.Complete(ctx, req)
	if fallbackErr != nil {
		c.logger.Error("fallback LLM also failed",
			"primary_error", err.Error(),
			"fallback_error", fallbackErr.Error(),
		)
		c.metrics.ObserveLLMFallback("llm_fallback")
		return LLMResponse{}, fallbackErr
	}

	c.logger.Info("fallback LLM recovered the request")
	return fallbackResp, nil
}
