// models/game_result.go
package models

import "time"

// GameResult records the server-sanitized outcome of one finished memory game.
// Created exactly once per accepted submission, never updated afterwards.
type GameResult struct {
	ID     string `json:"id" gorm:"primaryKey"`
	UserID string `json:"user_id" gorm:"index;not null"` // opaque identity from the gateway

	// All values below are server-clamped — the raw client payload is never stored.
	Score         int `json:"score"`
	Bonus         int `json:"bonus"`                      // time_remaining × 10
	TotalPoints   int `json:"total_points" gorm:"index"`  // score + bonus, leaderboard key
	TimeRemaining int `json:"time_remaining"`             // seconds, ≤ server estimate
	MatchesFound  int `json:"matches_found"`              // 0–8

	CompletedAt time.Time `json:"completed_at" gorm:"index"`
}
