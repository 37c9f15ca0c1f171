package util

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFirstNonErrorWithValue(t *testing.T) {
	assert := assert.New(t)

	it, err := FirstNonErrorWithValue(context.Background(), false, nil,
		func(ctx context.Context) (string, error) { return "", errors.New("first failed") },
		func(ctx context.Context) (string, error) { return "second", nil },
		func(ctx context.Context) (string, error) { t.Fatal("should not be called"); return "", nil },
	)
	assert.NoError(err)
	assert.Equal("second", it)
}

func TestFirstNonErrorWithValueAllFail(t *testing.T) {
	assert := assert.New(t)

	lastErr := errors.New("last failed")
	_, err := FirstNonErrorWithValue(context.Background(), false, nil,
		func(ctx context.Context) (int, error) { return 0, errors.New("first failed") },
		func(ctx context.Context) (int, error) { return 0, lastErr },
	)
	assert.Equal(lastErr, err)
}

func TestFirstNonErrorWithValueStopsOnFatalError(t *testing.T) {
	assert := assert.New(t)

	fatal := errors.New("fatal")
	_, err := FirstNonErrorWithValue(context.Background(), false,
		func(err error) bool { return err != fatal },
		func(ctx context.Context) (int, error) { return 0, fatal },
		func(ctx context.Context) (int, error) { t.Fatal("should not be called"); return 0, nil },
	)
	assert.Equal(fatal, err)
}

func TestFirstNonErrorWithValueReturnsOnCanceledContext(t *testing.T) {
	assert := assert.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := FirstNonErrorWithValue(ctx, true, nil,
		func(ctx context.Context) (int, error) { t.Fatal("should not be called"); return 0, nil },
	)
	assert.ErrorIs(err, context.Canceled)
}

func TestDedupe(t *testing.T) {
	assert := assert.New(t)

	assert.Equal([]string{"a", "b", "c"}, Dedupe([]string{"a", "b", "a", "c", "b"}, false))
}

func TestTruncateWithEllipsis(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("short", TruncateWithEllipsis("short", 10))
	assert.Equal("lon...", TruncateWithEllipsis("longer string", 3))
}
