// Package gamification holds the pure arithmetic behind levels, rankings and
// assessment progress. Nothing in here touches storage or the network.
package gamification

// XPPerLevel is the width of one level band.
const XPPerLevel = 250

// LevelFromXP maps accumulated XP onto a level starting at 1.
func LevelFromXP(xp int) int {
	if xp < 0 {
		return 1
	}
	return xp/XPPerLevel + 1
}

// XPToNextLevel is the XP still missing before the next level is reached.
// The result is always within (0, XPPerLevel].
func XPToNextLevel(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return LevelFromXP(xp)*XPPerLevel - xp
}

// LevelProgress is the percentage of the current band already earned.
func LevelProgress(xp int) float64 {
	if xp < 0 {
		return 0
	}
	return float64(xp%XPPerLevel) / XPPerLevel * 100
}
