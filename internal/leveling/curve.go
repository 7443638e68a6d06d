package leveling

import "math"

// XPForLevel returns the XP needed to advance from level-1 to level, using a
// non-linear curve: round(100 * level^1.5). Rounding is half away from zero.
func XPForLevel(level int) int {
	if level <= 0 {
		return 0
	}
	return int(math.Round(100 * math.Pow(float64(level), 1.5)))
}

// LevelFromXP returns the level reached with the given total XP.
func LevelFromXP(xp int) int {
	level := 0
	threshold := XPForLevel(1)
	for xp >= threshold {
		level++
		threshold += XPForLevel(level + 1)
	}
	return level
}

// XPToNextLevel returns how much more XP is needed to reach the next level.
func XPToNextLevel(xp int) int {
	currentLevel := LevelFromXP(xp)
	totalNeeded := 0
	for i := 1; i <= currentLevel+1; i++ {
		totalNeeded += XPForLevel(i)
	}
	return totalNeeded - xp
}

// CumulativeXPForLevel returns the total XP required to sit at the given level.
func CumulativeXPForLevel(level int) int {
	total := 0
	for i := 1; i <= level; i++ {
		total += XPForLevel(i)
	}
	return total
}
