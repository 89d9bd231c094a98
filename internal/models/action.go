package models

import "time"

// ActionRecord is one accepted player action as shipped to the historian
// queue and stored by the historian service. GameID is unique per match;
// room codes are reused once a room is gone.
type ActionRecord struct {
	GameType      string         `json:"game_type"`
	GameID        string         `json:"game_id"`
	RoomCode      string         `json:"room_code"`
	ActionIndex   int            `json:"action_index"`
	ActorID       string         `json:"actor_id"`
	ActionType    string         `json:"action_type"`
	ActionPayload map[string]any `json:"action_payload"`
	Timestamp     int64          `json:"timestamp"`
}

// ActionGameOver closes a game's history.
const ActionGameOver = "game_over"

// GameResult is the final outcome of a finished room.
type GameResult struct {
	GameType  string    `json:"game_type"`
	GameID    string    `json:"game_id"`
	RoomCode  string    `json:"room_code"`
	PlayerIDs []string  `json:"player_ids"`
	WinnerID  string    `json:"winner_id,omitempty"`
	Reason    string    `json:"reason"`
	Turns     int       `json:"turns"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
}
