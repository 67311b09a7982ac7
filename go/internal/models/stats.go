package models

// AggregateStats is a whole-system snapshot refreshed wholesale by the
// external aggregator. OnlineUsers is delivered on a separate push
// event and merged independently of the other fields.
type AggregateStats struct {
	TotalTests      int     `json:"totalTests"`
	TotalUsers      int     `json:"totalUsers"`
	AverageWPM      float64 `json:"averageWPM"`
	AverageAccuracy float64 `json:"averageAccuracy"`
	OnlineUsers     int     `json:"onlineUsers"`
}
