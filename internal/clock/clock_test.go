package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManual(t *testing.T) {
	start := time.Date(2025, 3, 14, 9, 0, 0, 0, time.FixedZone("CET", 3600))
	m := NewManual(start)
	assert.Equal(t, time.UTC, m.Now().Location())
	assert.True(t, m.Now().Equal(start))

	m.Advance(90 * time.Second)
	assert.True(t, m.Now().Equal(start.Add(90*time.Second)))
}

func TestSystemIsUTC(t *testing.T) {
	assert.Equal(t, time.UTC, NewSystem().Now().Location())
}
