package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPairKey(t *testing.T) {
	t.Run("order independent", func(t *testing.T) {
		assert.Equal(t, PairKey("a", "b"), PairKey("b", "a"))
	})

	t.Run("sorted tuple", func(t *testing.T) {
		assert.Equal(t, "a:b", PairKey("b", "a"))
	})

	t.Run("candidate method matches", func(t *testing.T) {
		c := DuplicateCandidate{PersonAID: "b", PersonBID: "a"}
		assert.Equal(t, "a:b", c.PairKey())
	})
}

func TestDuplicateCandidate_References(t *testing.T) {
	c := DuplicateCandidate{PersonAID: "a", PersonBID: "b"}

	assert.True(t, c.References("a"))
	assert.True(t, c.References("b"))
	assert.False(t, c.References("c"))
}
