package llm

import (
	"context"
	"errors"
	"log/slog"
)

// FallbackClient tries Primary first and retries a failed call once on Secondary.
type FallbackClient struct {
	Primary   Client
	Secondary Client
	Logger    *slog.Logger
}

// NewFallbackClient chains two clients. A nil secondary returns primary unchanged.
func NewFallbackClient(primary, secondary Client, logger *slog.Logger) Client {
	if secondary == nil {
		return primary
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackClient{Primary: primary, Secondary: secondary, Logger: logger}
}

// GenerateContent implements Client
func (c *FallbackClient) GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	return c.try(ctx, func(cl Client) (string, error) { return cl.GenerateContent(ctx, prompt, tier) })
}

// GenerateJSON implements Client
func (c *FallbackClient) GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	return c.try(ctx, func(cl Client) (string, error) { return cl.GenerateJSON(ctx, prompt, tier) })
}

func (c *FallbackClient) try(ctx context.Context, call func(Client) (string, error)) (string, error) {
	out, err := call(c.Primary)
	if err == nil {
		return out, nil
	}
	if ctx.Err() != nil {
		return "", err
	}
	c.Logger.Warn("primary model failed, using fallback", "error", err)
	out, err2 := call(c.Secondary)
	if err2 != nil {
		return "", errors.Join(err, err2)
	}
	return out, nil
}

// Close closes both clients
func (c *FallbackClient) Close() error {
	return errors.Join(c.Primary.Close(), c.Secondary.Close())
}
