package leveling

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestXPForLevel(t *testing.T) {
	assert.Equal(t, 0, XPForLevel(0))
	assert.Equal(t, 0, XPForLevel(-3))

	assert.Equal(t, 100, XPForLevel(1))
	assert.Equal(t, 283, XPForLevel(2))
	assert.Equal(t, 520, XPForLevel(3))
	assert.Equal(t, 800, XPForLevel(4))
	assert.Equal(t, 1118, XPForLevel(5))
}

func TestXPForLevelIncreases(t *testing.T) {
	prev := 0
	for level := 1; level <= 100; level++ {
		cost := XPForLevel(level)
		assert.Greater(t, cost, prev, "cost for level %d should exceed level %d", level, level-1)
		prev = cost
	}
}

func TestLevelFromXP(t *testing.T) {
	tests := []struct {
		xp    int
		level int
	}{
		{0, 0},
		{99, 0},
		{100, 1},
		{382, 1},
		{383, 2},
		{902, 2},
		{903, 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.level, LevelFromXP(tt.xp), "xp=%d", tt.xp)
	}
}

func TestLevelFromXPMatchesCumulative(t *testing.T) {
	for level := 1; level <= 50; level++ {
		threshold := CumulativeXPForLevel(level)
		assert.Equal(t, level, LevelFromXP(threshold), "at threshold for level %d", level)
		assert.Equal(t, level-1, LevelFromXP(threshold-1), "just below threshold for level %d", level)
	}
}

func TestXPToNextLevel(t *testing.T) {
	assert.Equal(t, 100, XPToNextLevel(0))
	assert.Equal(t, 1, XPToNextLevel(99))
	// At exactly 100 XP the user is level 1 and needs the full level 2 cost.
	assert.Equal(t, 283, XPToNextLevel(100))

	for xp := 0; xp <= 2000; xp += 7 {
		assert.Positive(t, XPToNextLevel(xp), "xp=%d", xp)
	}
}
