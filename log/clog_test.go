package log

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWithLogValuesIsImmutable(t *testing.T) {
	ctx := context.Background()
	ctx1 := WithLogValues(ctx, "request_id", "abc")
	ctx2 := WithLogValues(ctx1, "media_id", "m1")

	meta1, _ := ctx1.Value(metadataKey{}).(metadata)
	meta2, _ := ctx2.Value(metadataKey{}).(metadata)

	require.Len(t, meta1, 1)
	require.Len(t, meta2, 2)
	require.Equal(t, "abc", meta2["request_id"])
	require.Equal(t, "m1", meta2["media_id"])
}

func TestFlatReturnsPairs(t *testing.T) {
	m := metadata{"a": "1"}
	require.Equal(t, []any{"a", "1"}, m.Flat())
}
