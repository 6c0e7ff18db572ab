package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewIDIsUnique(t *testing.T) {
	seen := make(map[string]struct{}, 5000)
	for i := 0; i < 5000; i++ {
		id := NewID("proj")
		require.True(t, strings.HasPrefix(id, "proj_"), id)
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestNewIDDefaultPrefix(t *testing.T) {
	require.True(t, strings.HasPrefix(NewID(""), "id_"))
}

func TestSlugify(t *testing.T) {
	require.Equal(t, "todo-api", Slugify("Todo API"))
	require.Equal(t, "payment-processing-system", Slugify("  Payment   Processing\tSystem "))
}
