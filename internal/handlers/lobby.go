package handlers

import (
	"encoding/json"
	"net/http"
	"slices"

	"github.com/duelhub/duel/internal/goose"
	"github.com/duelhub/duel/internal/numberline"
)

// Listing is one joinable room in a lobby list.
type Listing struct {
	GameID     string `json:"gameId"`
	PlayerName string `json:"playerName"`
	CreatedAt  int64  `json:"createdAt"`
}

func sortListings(ls []Listing) []Listing {
	slices.SortFunc(ls, func(a, b Listing) int {
		switch {
		case a.CreatedAt > b.CreatedAt:
			return -1
		case a.CreatedAt < b.CreatedAt:
			return 1
		}
		return 0
	})
	return ls
}

// numberLineListings returns waiting NumberLine rooms, newest first. Must
// not be called with any game lock held.
func (h *Hub) numberLineListings() []Listing {
	out := []Listing{}
	h.numberline.Range(func(code string, g *numberline.Game) bool {
		g.Mu.Lock()
		if g.Joinable() {
			out = append(out, Listing{GameID: code, PlayerName: g.CreatorName, CreatedAt: g.CreatedAt.UnixMilli()})
		}
		g.Mu.Unlock()
		return true
	})
	return sortListings(out)
}

// gooseListings is numberLineListings for goose rooms.
func (h *Hub) gooseListings() []Listing {
	out := []Listing{}
	h.goose.Range(func(code string, g *goose.Game) bool {
		g.Mu.Lock()
		if g.Joinable() {
			out = append(out, Listing{GameID: code, PlayerName: g.CreatorName, CreatedAt: g.CreatedAt.UnixMilli()})
		}
		g.Mu.Unlock()
		return true
	})
	return sortListings(out)
}

func (h *Hub) broadcastGamesList() {
	h.toAll("gamesList", h.numberLineListings())
}

func (h *Hub) broadcastGooseGamesList() {
	h.toAll("gooseGamesList", h.gooseListings())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// ListGamesHandler serves the NumberLine lobby list.
func (h *Hub) ListGamesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.numberLineListings())
}

// ListGooseGamesHandler serves the goose lobby list.
func (h *Hub) ListGooseGamesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.gooseListings())
}

func (h *Hub) StatsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Stats())
}
