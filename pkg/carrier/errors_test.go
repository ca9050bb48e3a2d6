package carrier_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/oscar-alvarez-quenty/Quenty-sub001/pkg/carrier"
	"github.com/stretchr/testify/assert"
)

func TestError_MatchesByKind(t *testing.T) {
	err := carrier.NewError("dhl", carrier.KindTimeout, "no answer in 5s")

	assert.True(t, errors.Is(err, carrier.NewError("ups", carrier.KindTimeout, "different carrier")))
	assert.False(t, errors.Is(err, carrier.NewError("dhl", carrier.KindAuthentication, "same carrier")))
}

func TestError_UnwrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := carrier.NewError("fedex", carrier.KindUpstream, "call failed").WithCause(cause)

	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "connection refused")
	assert.Contains(t, err.Error(), "UPSTREAM_ERROR")
}

func TestError_SurvivesWrapping(t *testing.T) {
	inner := carrier.NewError("ups", carrier.KindRateLimited, "bucket empty").
		WithRetryAfter(250 * time.Millisecond)
	wrapped := fmt.Errorf("quoting ups: %w", inner)

	assert.Equal(t, carrier.KindRateLimited, carrier.KindOf(wrapped))

	var ce *carrier.Error
	assert.True(t, errors.As(wrapped, &ce))
	assert.Equal(t, 250*time.Millisecond, ce.RetryAfter)
}

func TestKindOf_ContextErrors(t *testing.T) {
	assert.Equal(t, carrier.KindTimeout, carrier.KindOf(context.DeadlineExceeded))
	assert.Equal(t, carrier.KindTimeout, carrier.KindOf(context.Canceled))
	assert.Equal(t, carrier.KindUpstream, carrier.KindOf(errors.New("anything else")))
}

func TestCountsAgainstBreaker(t *testing.T) {
	counts := []carrier.Kind{carrier.KindTimeout, carrier.KindUpstream}
	for _, kind := range counts {
		err := carrier.NewError("dhl", kind, "transport failure")
		assert.True(t, carrier.CountsAgainstBreaker(err), string(kind))
	}

	ignores := []carrier.Kind{
		carrier.KindAuthentication,
		carrier.KindRateLimited,
		carrier.KindInvalidAddress,
		carrier.KindNoService,
		carrier.KindNotCancellable,
		carrier.KindNotSupported,
	}
	for _, kind := range ignores {
		err := carrier.NewError("dhl", kind, "request rejection")
		assert.False(t, carrier.CountsAgainstBreaker(err), string(kind))
	}
}
