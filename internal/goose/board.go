package goose

import "github.com/duelhub/duel/internal/models"

// DefaultBoardLength is the finish position of a standard board.
const DefaultBoardLength = 50

const gooseEvery = 7

// GenerateBoard lays out positions 0..length. Every seventh space (other than
// the start and the finish) is a goose; the bridge, star, shuffle, rest and
// checkpoint spaces sit at fixed positions when the board is long enough.
func GenerateBoard(length int) []models.BoardSpace {
	board := make([]models.BoardSpace, 0, length+1)
	for i := 0; i <= length; i++ {
		space := models.BoardSpace{Position: i, Type: models.SpaceNormal}
		switch {
		case i == 0 || i >= length:
			// start and finish are always plain
		case i%gooseEvery == 0:
			space = models.BoardSpace{Position: i, Type: models.SpaceGoose, Emoji: "🦢",
				Description: "Jump to next Goose space!",
				Effect:      &models.SpaceEffect{Type: "goose", Description: "Advance to next Goose space"}}
		case i == 10:
			space = models.BoardSpace{Position: i, Type: models.SpaceBridge, Emoji: "🌉",
				Description: "Bridge: Skip ahead 5 spaces",
				Effect:      &models.SpaceEffect{Type: "advance", Value: 5, Description: "Move forward 5 spaces"}}
		case i == 20:
			space = models.BoardSpace{Position: i, Type: models.SpaceStar, Emoji: "⭐",
				Description: "Star: Draw 2 cards",
				Effect:      &models.SpaceEffect{Type: "draw", Value: 2, Description: "Draw 2 extra cards"}}
		case i == 30:
			space = models.BoardSpace{Position: i, Type: models.SpaceShuffle, Emoji: "🔀",
				Description: "Shuffle: Swap with opponent",
				Effect:      &models.SpaceEffect{Type: "swap", Description: "Swap positions with opponent"}}
		case i == 40:
			space = models.BoardSpace{Position: i, Type: models.SpaceRest, Emoji: "💤",
				Description: "Rest: Skip turn, draw 2 cards",
				Effect:      &models.SpaceEffect{Type: "rest", Value: 2, Description: "Skip turn but draw 2 cards"}}
		case i == 25 || i == 45:
			space = models.BoardSpace{Position: i, Type: models.SpaceCheckpoint, Emoji: "🎯",
				Description: "Checkpoint: Safe zone",
				Effect:      &models.SpaceEffect{Type: "safe", Description: "Immune to traps here"}}
		}
		board = append(board, space)
	}
	return board
}

// nextGoose returns the first goose space after pos, or -1.
func nextGoose(board []models.BoardSpace, pos int) int {
	for _, s := range board {
		if s.Position > pos && s.Type == models.SpaceGoose {
			return s.Position
		}
	}
	return -1
}
