package ratelimit

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jzx17/resilience/pkg/types"
)

func newRequest(t *testing.T) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, "http://example.com/", nil)
	require.NoError(t, err)
	return req
}

func okHandler(ctx context.Context, req *http.Request) (*http.Response, error) {
	return &http.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: http.NoBody}, nil
}

func TestPolicy_PacesCalls(t *testing.T) {
	policy, err := New(50, 1)
	require.NoError(t, err)

	handler := policy.Wrap(okHandler)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := handler(context.Background(), newRequest(t))
		require.NoError(t, err)
	}
	// the first call is burst, the next two wait ~20ms each
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestPolicy_WaitHonorsContext(t *testing.T) {
	policy, err := New(0.1, 1)
	require.NoError(t, err)

	handler := policy.Wrap(okHandler)

	// consume the burst token
	_, err = handler(context.Background(), newRequest(t))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = handler(ctx, newRequest(t))
	assert.Error(t, err)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(0, 1)
	assert.Error(t, err)
	assert.True(t, types.IsConfigError(err))

	_, err = New(10, 0)
	assert.Error(t, err)
	assert.True(t, types.IsConfigError(err))
}
