package models

// RecentTest is one historical result in a user profile rollup.
type RecentTest struct {
	Wpm       float64 `json:"wpm"`
	Accuracy  float64 `json:"accuracy"`
	Timestamp string  `json:"timestamp"`
}

// UserProfile is the backend-owned rollup for a single user. The
// client holds a read cache refreshed on load and on push notification
// for the same username.
type UserProfile struct {
	Username       string       `json:"username"`
	AvgWPM         float64      `json:"avgWPM"`
	AvgAccuracy    float64      `json:"avgAccuracy"`
	AvgConsistency float64      `json:"avgConsistency"`
	BestWPM        float64      `json:"bestWPM"`
	TotalTests     int          `json:"totalTests"`
	RecentTests    []RecentTest `json:"recentTests"`
}
