// Per-user moderation counters and the global classifier calibration histogram.
package statstore

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// Per-user counters. Strike counts live here and nowhere else; the escalation
// engine reads and increments them through the store.
type UserStats struct {
	Strikes          int
	ReportsAgainst   int
	ReportsAuthored  int
	ConfirmedReports int
	SentimentTotal   float64
	MessagesSent     int
}

// Average concern score of the user's messages, as a percentage with two
// decimal places.
func (u UserStats) AverageSentiment() float64 {
	if u.MessagesSent == 0 {
		return 0
	}
	return math.Round(u.SentimentTotal/float64(u.MessagesSent)*100*100) / 100
}

// Share of the user's authored reports later confirmed accurate, as a
// percentage with two decimal places.
func (u UserStats) ReportAccuracy() float64 {
	if u.ReportsAuthored == 0 {
		return 0
	}
	return math.Round(float64(u.ConfirmedReports)/float64(u.ReportsAuthored)*100*100) / 100
}

// Calibration histogram bucket: score range (upper-bound labeled, 5 points
// wide), total reviewed cases in range, and how many were confirmed accurate.
type CalibrationBucket struct {
	Total    int
	Accurate int
}

const bucketCount = 20

type StatStore interface {
	AddSentiment(ctx context.Context, userID string, score float64) error
	// Increments the user's strike counter and returns the new count.
	AddStrike(ctx context.Context, userID string) (int, error)
	GetStrikes(ctx context.Context, userID string) (int, error)
	IncrementReportsAgainst(ctx context.Context, userID string) error
	IncrementReportsAuthored(ctx context.Context, userID string) error
	IncrementConfirmedReports(ctx context.Context, userID string) error
	GetUserStats(ctx context.Context, userID string) (UserStats, error)
	// Records a reviewed case's automated score against its review outcome.
	AddCase(ctx context.Context, score float64, accurate bool) error
	// Renders the full calibration histogram as an operational report.
	Overview(ctx context.Context) (string, error)
}

// Maps a score in [0,1] to its bucket's upper bound: the smallest multiple of 5
// greater than or equal to score*100, with a floor of 5 so zero scores land in
// the 0-5 bucket. Exactly 0.80 maps to 80 (the 75-80 bucket); 0.81 maps to 85.
func BucketUpper(score float64) int {
	// snap to basis points first, so float noise on representable-looking
	// inputs (0.80*100 != 80 in float64) cannot shift the boundary
	pct := math.Round(score*10000) / 100
	upper := int(math.Ceil(pct/5)) * 5
	if upper < 5 {
		upper = 5
	}
	if upper > 100 {
		upper = 100
	}
	return upper
}

func bucketIndex(score float64) int {
	return BucketUpper(score)/5 - 1
}

func renderOverview(buckets [bucketCount]CalibrationBucket) string {
	var b strings.Builder
	b.WriteString("Classifier calibration (reports confirmed accurate per score bucket):\n```\n")
	for i, bucket := range buckets {
		lower := i * 5
		upper := lower + 5
		rate := 0.0
		if bucket.Total > 0 {
			rate = float64(bucket.Accurate) / float64(bucket.Total)
		}
		filled := int(math.Round(rate * 10))
		bar := strings.Repeat("#", filled) + strings.Repeat("-", 10-filled)
		fmt.Fprintf(&b, "%3d-%3d%% |%s| %5.1f%% (%d/%d)\n", lower, upper, bar, rate*100, bucket.Accurate, bucket.Total)
	}
	b.WriteString("```")
	return b.String()
}
