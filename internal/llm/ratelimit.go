package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/Epistemic-Technology/pdf-regions/internal/logger"
	"github.com/Epistemic-Technology/pdf-regions/models"
)

const (
	// 1.8M tokens/min, under the 2M tokens/min limit of gpt-5-mini
	tokensPerSecond = 30000
	burstTokens     = 60000

	// Crops captioned at once by CaptionCrops
	defaultMaxWorkers = 15

	// One low-detail image input plus a short answer
	estimatedTokensPerCaption = 1200

	maxRetries     = 5
	baseRetryDelay = 1 * time.Second
	maxRetryDelay  = 32 * time.Second
)

// Shared by every describer so parallel exports draw from one budget.
var captionLimiter = rate.NewLimiter(rate.Limit(tokensPerSecond), burstTokens)

// throttle spaces caption requests by their token cost and retries those
// rejected with 429.
type throttle struct {
	limiter    *rate.Limiter
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	log        logger.Logger
}

func newThrottle(log logger.Logger) *throttle {
	return &throttle{
		limiter:    captionLimiter,
		maxRetries: maxRetries,
		baseDelay:  baseRetryDelay,
		maxDelay:   maxRetryDelay,
		log:        log,
	}
}

// wrap returns a DescribeFunc that waits for the token budget before every
// attempt and backs off exponentially while describe reports a rate limit.
func (t *throttle) wrap(describe DescribeFunc) DescribeFunc {
	return func(ctx context.Context, png []byte) (string, error) {
		var lastErr error
		for attempt := 0; attempt <= t.maxRetries; attempt++ {
			if attempt > 0 {
				delay := t.backoff(attempt)
				t.log.Info("Caption retry %d/%d after %v", attempt, t.maxRetries, delay)
				timer := time.NewTimer(delay)
				select {
				case <-timer.C:
				case <-ctx.Done():
					timer.Stop()
					return "", ctx.Err()
				}
			}
			if err := t.limiter.WaitN(ctx, estimatedTokensPerCaption); err != nil {
				return "", fmt.Errorf("rate limiter wait failed: %w", err)
			}

			caption, err := describe(ctx, png)
			if err == nil {
				return caption, nil
			}
			if !isRateLimitError(err) {
				return "", err
			}
			lastErr = err
			t.log.Warn("Caption request rate limited on attempt %d/%d: %v", attempt+1, t.maxRetries+1, err)
		}
		return "", fmt.Errorf("caption request still rate limited after %d retries: %w", t.maxRetries, lastErr)
	}
}

// backoff returns the delay before the given retry, doubling from baseDelay
// up to maxDelay.
func (t *throttle) backoff(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	shift := attempt - 1
	if shift > 30 {
		return t.maxDelay
	}
	delay := t.baseDelay << shift
	if delay > t.maxDelay || delay <= 0 {
		return t.maxDelay
	}
	return delay
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"429", "rate limit", "rate_limit_exceeded", "too many requests"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// mapCrops runs fn over crops with at most workers calls in flight and
// returns the results in crop order. The first error cancels the crops not
// yet started and is returned alone.
func mapCrops(ctx context.Context, crops []models.ExportedCrop, workers int, fn func(context.Context, models.ExportedCrop) (string, error)) ([]string, error) {
	if workers <= 0 {
		workers = defaultMaxWorkers
	}
	results := make([]string, len(crops))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, crop := range crops {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := fn(gctx, crop)
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
