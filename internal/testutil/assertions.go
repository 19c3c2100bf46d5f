package testutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vk/splode/internal/datablock"
)

// Refs renders blocks as reference strings.
func Refs(blocks []*datablock.Block) []string {
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, b.String())
	}
	return out
}

// AssertUses checks the ordered references of b's uses.
func AssertUses(t *testing.T, b *datablock.Block, expected ...string) {
	t.Helper()
	if len(expected) == 0 {
		assert.Empty(t, b.Uses(), "%s should use nothing", b)
		return
	}
	assert.Equal(t, expected, Refs(b.Uses()), "uses of %s", b)
}

// AssertBefore checks that first appears before second in order.
func AssertBefore(t *testing.T, order []*datablock.Block, first, second *datablock.Block) {
	t.Helper()
	fi, si := -1, -1
	for i, b := range order {
		switch b {
		case first:
			fi = i
		case second:
			si = i
		}
	}
	if assert.True(t, fi >= 0 && si >= 0, "both %s and %s must be scheduled", first, second) {
		assert.Less(t, fi, si, "%s must come before %s", first, second)
	}
}

// AssertLogContains checks that the captured log output has every substring.
func AssertLogContains(t *testing.T, logs *SafeBuffer, substrings ...string) {
	t.Helper()
	out := logs.String()
	for _, s := range substrings {
		assert.True(t, strings.Contains(out, s), "expected log output to contain %q", s)
	}
}
