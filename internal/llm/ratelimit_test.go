package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/openai/openai-go/v3"
	"golang.org/x/time/rate"

	"github.com/Epistemic-Technology/pdf-regions/internal/logger"
	"github.com/Epistemic-Technology/pdf-regions/models"
)

// fastThrottle never waits on the token budget and retries within milliseconds.
func fastThrottle(retries int) *throttle {
	return &throttle{
		limiter:    rate.NewLimiter(rate.Inf, 0),
		maxRetries: retries,
		baseDelay:  time.Millisecond,
		maxDelay:   4 * time.Millisecond,
		log:        logger.NewNoOpLogger(),
	}
}

func TestThrottle_RetriesRateLimitedCaptions(t *testing.T) {
	calls := 0
	describe := fastThrottle(5).wrap(func(ctx context.Context, png []byte) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("429 Too Many Requests")
		}
		return "A bar chart of yearly rainfall.", nil
	})

	caption, err := describe(context.Background(), []byte{1})
	if err != nil {
		t.Fatalf("Expected no error after retry, got: %v", err)
	}
	if caption != "A bar chart of yearly rainfall." {
		t.Errorf("caption = %q", caption)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got: %d", calls)
	}
}

func TestThrottle_GivesUp(t *testing.T) {
	calls := 0
	limited := errors.New("rate_limit_exceeded")
	describe := fastThrottle(2).wrap(func(ctx context.Context, png []byte) (string, error) {
		calls++
		return "", limited
	})

	_, err := describe(context.Background(), []byte{1})
	if !errors.Is(err, limited) {
		t.Fatalf("expected the last rate limit error to be wrapped, got %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got: %d", calls)
	}
}

func TestThrottle_OtherErrorsAreNotRetried(t *testing.T) {
	calls := 0
	testErr := errors.New("invalid image")
	describe := fastThrottle(5).wrap(func(ctx context.Context, png []byte) (string, error) {
		calls++
		return "", testErr
	})

	_, err := describe(context.Background(), []byte{1})
	if err != testErr {
		t.Errorf("Expected original error, got: %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got: %d", calls)
	}
}

func TestThrottle_CancelledWhileBackingOff(t *testing.T) {
	th := fastThrottle(5)
	th.baseDelay = time.Hour
	th.maxDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	describe := th.wrap(func(ctx context.Context, png []byte) (string, error) {
		cancel()
		return "", errors.New("429")
	})

	_, err := describe(ctx, []byte{1})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestThrottle_Backoff(t *testing.T) {
	th := &throttle{baseDelay: time.Second, maxDelay: 32 * time.Second}
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 0},
		{1, time.Second},
		{2, 2 * time.Second},
		{5, 16 * time.Second},
		{6, 32 * time.Second},
		{7, 32 * time.Second},
		{64, 32 * time.Second},
	}
	for _, tt := range tests {
		if got := th.backoff(tt.attempt); got != tt.want {
			t.Errorf("backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestIsRateLimitError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"status code in text", errors.New("POST /v1/responses: 429 Too Many Requests"), true},
		{"error code", errors.New(`{"code": "rate_limit_exceeded"}`), true},
		{"wrapped", fmt.Errorf("describe page 3: %w", errors.New("Rate limit reached")), true},
		{"api error 429", &openai.Error{StatusCode: 429}, true},
		{"api error 500", &openai.Error{StatusCode: 500}, false},
		{"other", errors.New("connection reset"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRateLimitError(tt.err); got != tt.want {
				t.Errorf("isRateLimitError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func testCrops(n int) []models.ExportedCrop {
	crops := make([]models.ExportedCrop, n)
	for i := range crops {
		crops[i] = models.ExportedCrop{Page: i / 2, Index: i % 2, Path: fmt.Sprintf("page%d-region%d.png", i/2+1, i%2+1)}
	}
	return crops
}

func TestMapCrops_KeepsCropOrder(t *testing.T) {
	crops := testCrops(8)
	var active, peak atomic.Int32

	got, err := mapCrops(context.Background(), crops, 3, func(ctx context.Context, crop models.ExportedCrop) (string, error) {
		n := active.Add(1)
		defer active.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		// later crops finish first
		time.Sleep(time.Duration(len(crops)-crop.Page*2-crop.Index) * time.Millisecond)
		return strings.TrimSuffix(crop.Path, ".png"), nil
	})
	if err != nil {
		t.Fatalf("mapCrops failed: %v", err)
	}

	want := []string{
		"page1-region1", "page1-region2", "page2-region1", "page2-region2",
		"page3-region1", "page3-region2", "page4-region1", "page4-region2",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("captions mismatch (-want +got):\n%s", diff)
	}
	if peak.Load() > 3 {
		t.Errorf("%d crops in flight, want at most 3", peak.Load())
	}
}

func TestMapCrops_FirstErrorStopsLaterCrops(t *testing.T) {
	crops := testCrops(4)
	testErr := errors.New("model unavailable")
	var started []string

	_, err := mapCrops(context.Background(), crops, 1, func(ctx context.Context, crop models.ExportedCrop) (string, error) {
		started = append(started, crop.Path)
		if crop.Index == 1 {
			return "", testErr
		}
		return "caption", nil
	})
	if err != testErr {
		t.Fatalf("expected the describe error, got %v", err)
	}
	if diff := cmp.Diff([]string{"page1-region1.png", "page1-region2.png"}, started); diff != "" {
		t.Errorf("started crops mismatch (-want +got):\n%s", diff)
	}
}

func TestMapCrops_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := mapCrops(ctx, testCrops(2), 2, func(ctx context.Context, crop models.ExportedCrop) (string, error) {
		t.Error("no crop should be described after cancellation")
		return "", nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
