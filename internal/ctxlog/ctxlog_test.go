package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := WithLogger(context.Background(), logger)
	require.Same(t, logger, FromContext(ctx))

	assert.Panics(t, func() { FromContext(context.Background()) })
}

func TestCommand(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)))

	Command(ctx, "make -C /x/base -sj")
	assert.Empty(t, buf.String(), "echo is off by default")

	ctx = WithCommandEcho(ctx, true)
	Command(ctx, "make -C /x/base -sj", "dir", "/x/base")
	assert.Contains(t, buf.String(), `command="make -C /x/base -sj"`)
	assert.Contains(t, buf.String(), "dir=/x/base")
}
