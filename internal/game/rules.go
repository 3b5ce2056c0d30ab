// internal/game/rules.go
package game

import (
	"fmt"

	"github.com/jason-s-yu/themind/internal/models"
)

const (
	// DeckSize is the highest card value; cards are numbered 1..DeckSize.
	DeckSize = 100

	MinPlayers = 2
	MaxPlayers = 4

	// MaxLives and ShurikensMax are the physical token limits.
	MaxLives     = 5
	ShurikensMax = 3

	StartingShurikens = 1
)

// levelsByPlayers is the number of levels to clear for each table size.
var levelsByPlayers = map[int]int{
	2: 12,
	3: 10,
	4: 8,
}

// lifeBonusLevels and shurikenBonusLevels are granted on entering the level.
var (
	lifeBonusLevels     = []int{3, 6, 9}
	shurikenBonusLevels = []int{2, 5, 8}
)

// Options are the settings chosen when a session is created.
type Options struct {
	PlayerCount int               `json:"playerCount"`
	Difficulty  models.Difficulty `json:"difficulty"`
}

// DefaultOptions returns a medium difficulty table of two.
func DefaultOptions() Options {
	return Options{PlayerCount: MinPlayers, Difficulty: models.DifficultyMedium}
}

// Validate checks the options against the supported table sizes.
func (o Options) Validate() error {
	if o.PlayerCount < MinPlayers || o.PlayerCount > MaxPlayers {
		return NewError(CodeInvalidOptions, fmt.Sprintf("playerCount must be between %d and %d", MinPlayers, MaxPlayers))
	}
	if !o.Difficulty.Valid() {
		return NewError(CodeInvalidOptions, fmt.Sprintf("unknown difficulty %q", o.Difficulty))
	}
	return nil
}

// MaxLevel returns the final level for a table size, or 0 if unsupported.
func MaxLevel(playerCount int) int {
	return levelsByPlayers[playerCount]
}

// StartingLives is one life per player adjusted by difficulty, never below one.
func StartingLives(d models.Difficulty, playerCount int) int {
	lives := playerCount
	switch d {
	case models.DifficultyEasy:
		lives++
	case models.DifficultyHard:
		lives--
	}
	if lives < 1 {
		lives = 1
	}
	if lives > MaxLives {
		lives = MaxLives
	}
	return lives
}

// LivesMax is the most lives a session can hold while playing the given level.
func LivesMax(level int, d models.Difficulty, playerCount int) int {
	max := StartingLives(d, playerCount)
	for _, t := range lifeBonusLevels {
		if t <= level {
			max++
		}
	}
	if max > MaxLives {
		max = MaxLives
	}
	return max
}

// HandSize is the number of cards each player holds at the start of a level.
func HandSize(level int) int {
	return level
}

// LevelBonus reports the rewards granted when entering level.
func LevelBonus(level int) (lives, shurikens int) {
	for _, t := range lifeBonusLevels {
		if t == level {
			lives++
		}
	}
	for _, t := range shurikenBonusLevels {
		if t == level {
			shurikens++
		}
	}
	return lives, shurikens
}
