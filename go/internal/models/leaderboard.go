package models

// LeaderboardEntry is one ranked row. Rank is assigned by the external
// ranking service; the client never re-sorts across invalidations,
// only replaces the whole sequence.
type LeaderboardEntry struct {
	Rank           int     `json:"rank"`
	Username       string  `json:"username"`
	AvgWpm         float64 `json:"avg_wpm"`
	AvgAccuracy    float64 `json:"avg_accuracy"`
	AvgConsistency float64 `json:"avg_consistency"`
	BestWpm        float64 `json:"best_wpm"`
	TotalTests     int     `json:"total_tests"`
}
