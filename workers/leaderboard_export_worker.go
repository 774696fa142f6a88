package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"memory-game-server/services"
	"memory-game-server/utils"
)

const leaderboardObjectKey = "leaderboard/top.json"

// LeaderboardExporter periodically publishes the top of the leaderboard to
// R2 so the frontend reads the CDN copy instead of hammering the API.
type LeaderboardExporter struct {
	Scores   *services.ScoreService
	Limit    int
	Interval time.Duration
}

func NewLeaderboardExporter(scores *services.ScoreService, limit int, interval time.Duration) *LeaderboardExporter {
	return &LeaderboardExporter{
		Scores:   scores,
		Limit:    limit,
		Interval: interval,
	}
}

type leaderboardSnapshot struct {
	GeneratedAt time.Time                 `json:"generated_at"`
	Entries     []services.LeaderboardRow `json:"entries"`
}

// Run exports on a fixed interval until ctx is cancelled. A failed export
// logs and retries on the next tick — no snapshot is ever half-published.
func (e *LeaderboardExporter) Run(ctx context.Context) {
	log.Printf("Starting leaderboard export (every %s, top %d)...", e.Interval, e.Limit)

	ticker := time.NewTicker(e.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Leaderboard export stopped.")
			return
		case <-ticker.C:
			if err := e.exportOnce(); err != nil {
				log.Printf("❌ Leaderboard export failed: %v", err)
				continue
			}
		}
	}
}

func (e *LeaderboardExporter) exportOnce() error {
	rows, err := e.Scores.GetLeaderboard(e.Limit)
	if err != nil {
		return fmt.Errorf("failed to fetch leaderboard: %w", err)
	}
	if rows == nil {
		rows = []services.LeaderboardRow{}
	}

	payload, err := json.Marshal(leaderboardSnapshot{
		GeneratedAt: time.Now().UTC(),
		Entries:     rows,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	url, err := utils.UploadBytesToR2(leaderboardObjectKey, payload, "application/json")
	if err != nil {
		return err
	}

	log.Printf("✅ Exported %d leaderboard entrie(s) → %s", len(rows), url)
	return nil
}
