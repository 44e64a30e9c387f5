package session_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessionkit/pkg/session"
)

func TestGenerateID(t *testing.T) {
	t.Parallel()

	urlSafe := regexp.MustCompile(`^[A-Za-z0-9_-]{32}$`)
	seen := make(map[string]struct{}, 1000)

	for range 1000 {
		id, err := session.GenerateID(nil)
		require.NoError(t, err)
		assert.Regexp(t, urlSafe, id)
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %q", id)
		seen[id] = struct{}{}
	}
}
