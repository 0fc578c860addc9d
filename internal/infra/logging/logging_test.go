package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithAttachesContextIDs(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(&buf, "debug", "json", false, false)

	ctx := WithTraceID(context.Background(), "01HTRACE")
	ctx = WithUserID(ctx, "u-1")
	ctx = WithPaymentID(ctx, "p-1")
	With(ctx, base).Info().Msg("hello")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "01HTRACE", line["trace_id"])
	assert.Equal(t, "u-1", line["user_id"])
	assert.Equal(t, "p-1", line["payment_id"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "warn", "json", false, false)

	l.Info().Msg("dropped")
	assert.Zero(t, buf.Len())
	l.Warn().Msg("kept")
	assert.NotZero(t, buf.Len())
}

func TestNewTraceIDIsULID(t *testing.T) {
	id := NewTraceID()
	_, err := ulid.Parse(id)
	assert.NoError(t, err)
	assert.Equal(t, id, TraceID(WithTraceID(context.Background(), id)))
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "***", Redact("short", false))
	assert.Equal(t, "tok-...yz", Redact("tok-abcdefghxyz", false))
	assert.Equal(t, "tok-abcdefghxyz", Redact("tok-abcdefghxyz", true))
}
