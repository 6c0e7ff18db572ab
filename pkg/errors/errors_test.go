package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodeLookupThroughWrapping(t *testing.T) {
	base := New(CodeNotReady, "project is not ready for deployment")
	wrapped := fmt.Errorf("deploy: %w", base)

	require.True(t, IsCode(wrapped, CodeNotReady))
	require.False(t, IsCode(wrapped, CodeNotFound))
	require.Equal(t, CodeNotReady, CodeOf(wrapped))
	require.Equal(t, "project is not ready for deployment", MessageOf(wrapped))
}

func TestPlainErrorsHaveUnknownCode(t *testing.T) {
	err := errors.New("boom")
	require.Equal(t, CodeUnknown, CodeOf(err))
	require.Equal(t, "boom", MessageOf(err))
	require.Equal(t, "", MessageOf(nil))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(cause, CodePersistenceFailure, "save projects failed").WithMeta("collection", "projects")

	require.ErrorIs(t, err, cause)
	require.Equal(t, "persistence_failure: save projects failed: disk full", err.Error())
	require.Equal(t, "projects", err.Meta["collection"])
	require.Equal(t, New(CodeInternal, "x").Error(), Wrap(nil, CodeInternal, "x").Error())
}
