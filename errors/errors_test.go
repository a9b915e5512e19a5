package errors

import (
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnretriable(t *testing.T) {
	err := Unretriable(fmt.Errorf("bar"))
	require.True(t, IsUnretriable(err))
	require.Equal(t, "bar", err.Error())

	wrapped := fmt.Errorf("foo: %w", err)
	require.True(t, IsUnretriable(wrapped))

	require.False(t, IsUnretriable(fmt.Errorf("plain")))
}

func TestWrapAddsKind(t *testing.T) {
	err := Wrap(KindValidationFailure, fmt.Errorf("empty EDL"))
	require.Equal(t, KindValidationFailure, KindOf(err))
	require.True(t, IsUnretriable(err))

	err = Wrap(KindDependencyFailure, fmt.Errorf("upstream 500"))
	require.Equal(t, KindDependencyFailure, KindOf(err))
	require.False(t, IsUnretriable(err))

	require.Equal(t, Kind(""), KindOf(fmt.Errorf("plain")))
}

func TestWriteHTTPErrorStatus(t *testing.T) {
	tests := []struct {
		kind   Kind
		status int
	}{
		{KindInvalidInput, 400},
		{KindNotFound, 404},
		{KindDependencyUnavailable, 412},
		{KindDependencyFailure, 502},
		{KindValidationFailure, 422},
		{KindTransient, 500},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		WriteHTTPError(w, "boom", Wrap(tt.kind, fmt.Errorf("detail")))
		require.Equal(t, tt.status, w.Code, "kind %s", tt.kind)
		require.Contains(t, w.Body.String(), "boom")
	}
}
