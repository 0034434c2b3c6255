package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"quizgen-service/internal/domain"
)

// HistoryReader is the read side the aggregator needs: completed attempts,
// newest first.
type HistoryReader interface {
	ListCompleted(ctx context.Context, userID string) ([]domain.HistoryEntry, error)
}

// Aggregator computes dashboard and profile statistics from the completed
// history snapshot. Every output is derived on request; nothing is cached or
// stored, so results are deterministic for a given snapshot.
type Aggregator struct {
	histories HistoryReader
}

func NewAggregator(histories HistoryReader) *Aggregator {
	return &Aggregator{histories: histories}
}

// Dashboard builds the dashboard view model for a user.
func (a *Aggregator) Dashboard(ctx context.Context, userID string) (domain.DashboardStats, error) {
	entries, err := a.histories.ListCompleted(ctx, userID)
	if err != nil {
		return domain.DashboardStats{}, err
	}

	stats := domain.DashboardStats{
		TotalAttempts:      len(entries),
		AvgScore:           round2(avgScore(entries)),
		BestScore:          bestScore(entries),
		StreakDays:         streakDays(entries),
		AccuracyRate:       accuracyRate(entries),
		AvgTimePerQuestion: avgTimePerQuestion(entries),
		Categories:         categoryPerformance(entries),
		Recent:             recentEntries(entries, 5),
		Performance:        performanceSeries(entries, 7),
	}
	stats.StrongestSubject, stats.StrongestScore, stats.WeakestSubject = extremes(stats.Categories)
	stats.Badges = dashboardBadges(stats.TotalAttempts, stats.BestScore, stats.StreakDays)
	return stats, nil
}

// Profile builds the profile view model, including the extended badge set.
func (a *Aggregator) Profile(ctx context.Context, userID string) (domain.ProfileStats, error) {
	entries, err := a.histories.ListCompleted(ctx, userID)
	if err != nil {
		return domain.ProfileStats{}, err
	}

	perf := categoryPerformance(entries)
	strongest, _, _ := extremes(perf)

	stats := domain.ProfileStats{
		TotalAttempts:    len(entries),
		AvgScore:         round2(avgScore(entries)),
		BestScore:        bestScore(entries),
		AccuracyRate:     accuracyRate(entries),
		StreakDays:       streakDays(entries),
		StrongestSubject: strongest,
		Recent:           recentEntries(entries, 5),
	}
	stats.Badges = profileBadges(entries, stats)
	return stats, nil
}

func avgScore(entries []domain.HistoryEntry) float64 {
	if len(entries) == 0 {
		return 0
	}
	sum := 0.0
	for _, e := range entries {
		sum += e.Score
	}
	return sum / float64(len(entries))
}

func bestScore(entries []domain.HistoryEntry) float64 {
	best := 0.0
	for _, e := range entries {
		if e.Score > best {
			best = e.Score
		}
	}
	return best
}

// streakDays walks completion dates newest to oldest: a gap of exactly one
// calendar day extends the streak, another attempt on the same day is skipped,
// anything else ends the walk.
func streakDays(entries []domain.HistoryEntry) int {
	streak := 0
	var last time.Time
	for _, e := range entries {
		d := dateOf(e.CompletedAt)
		switch {
		case last.IsZero():
			streak = 1
			last = d
		case last.Equal(d):
			continue
		case int(last.Sub(d).Hours()/24) == 1:
			streak++
			last = d
		default:
			return streak
		}
	}
	return streak
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// accuracyRate is overall correct answers per question asked, in percent.
// With no completed rows the denominator defaults to 1, reporting 0%.
func accuracyRate(entries []domain.HistoryEntry) float64 {
	totalCorrect, totalQuestions := 0, 0
	for _, e := range entries {
		totalCorrect += e.CorrectAnswers
		totalQuestions += e.TotalQuestions
	}
	if totalQuestions == 0 {
		totalQuestions = 1
	}
	return round2(100 * float64(totalCorrect) / float64(totalQuestions))
}

// avgTimePerQuestion averages attempt durations and spreads the result over
// the total question count. Nil when no completed rows exist.
func avgTimePerQuestion(entries []domain.HistoryEntry) *float64 {
	if len(entries) == 0 {
		return nil
	}
	var totalDuration time.Duration
	totalQuestions := 0
	for _, e := range entries {
		totalDuration += e.CompletedAt.Sub(e.StartedAt)
		totalQuestions += e.TotalQuestions
	}
	if totalQuestions == 0 {
		totalQuestions = 1
	}
	avgDuration := totalDuration.Seconds() / float64(len(entries))
	v := round2(avgDuration / float64(totalQuestions))
	return &v
}

func categoryPerformance(entries []domain.HistoryEntry) []domain.CategoryPerformance {
	type acc struct {
		name     string
		sum      float64
		attempts int
	}
	byCategory := make(map[string]*acc)
	for _, e := range entries {
		a, ok := byCategory[e.CategoryID]
		if !ok {
			a = &acc{name: e.CategoryName}
			byCategory[e.CategoryID] = a
		}
		a.sum += e.Score
		a.attempts++
	}

	perf := make([]domain.CategoryPerformance, 0, len(byCategory))
	for id, a := range byCategory {
		avg := round2(a.sum / float64(a.attempts))
		perf = append(perf, domain.CategoryPerformance{
			CategoryID: id,
			Name:       a.name,
			AvgScore:   avg,
			Attempts:   a.attempts,
			Status:     classify(avg),
		})
	}
	sort.Slice(perf, func(i, j int) bool {
		if perf[i].Attempts != perf[j].Attempts {
			return perf[i].Attempts > perf[j].Attempts
		}
		return perf[i].Name < perf[j].Name
	})
	return perf
}

func classify(avg float64) string {
	switch {
	case avg >= 85:
		return "Strong"
	case avg >= 70:
		return "Good"
	default:
		return "Needs Work"
	}
}

func extremes(perf []domain.CategoryPerformance) (strongest string, strongestScore float64, weakest string) {
	if len(perf) == 0 {
		return "N/A", 0, "N/A"
	}
	hi, lo := perf[0], perf[0]
	for _, p := range perf[1:] {
		if p.AvgScore > hi.AvgScore {
			hi = p
		}
		if p.AvgScore < lo.AvgScore {
			lo = p
		}
	}
	return hi.Name, hi.AvgScore, lo.Name
}

func recentEntries(entries []domain.HistoryEntry, n int) []domain.HistoryEntry {
	if len(entries) < n {
		n = len(entries)
	}
	return entries[:n]
}

// performanceSeries charts the last n attempts oldest to newest by start time.
func performanceSeries(entries []domain.HistoryEntry, n int) []domain.ScorePoint {
	byStart := make([]domain.HistoryEntry, len(entries))
	copy(byStart, entries)
	sort.Slice(byStart, func(i, j int) bool {
		return byStart[i].StartedAt.After(byStart[j].StartedAt)
	})
	if len(byStart) > n {
		byStart = byStart[:n]
	}

	points := make([]domain.ScorePoint, 0, len(byStart))
	for i := len(byStart) - 1; i >= 0; i-- {
		points = append(points, domain.ScorePoint{
			Label: byStart[i].StartedAt.Format("02 Jan"),
			Score: byStart[i].Score,
		})
	}
	return points
}

func dashboardBadges(attempts int, best float64, streak int) []domain.Badge {
	var badges []domain.Badge
	if attempts >= 1 {
		badges = append(badges, domain.Badge{Icon: "⭐", Name: "First Quiz", Description: "Completed your first quiz"})
	}
	if best >= 90 {
		badges = append(badges, domain.Badge{Icon: "🏆", Name: "High Scorer", Description: "Scored above 90%"})
	}
	if streak >= 3 {
		badges = append(badges, domain.Badge{Icon: "🔥", Name: "Streak Master", Description: fmt.Sprintf("%d-day streak", streak)})
	}
	return badges
}

func profileBadges(entries []domain.HistoryEntry, stats domain.ProfileStats) []domain.Badge {
	badges := dashboardBadges(stats.TotalAttempts, stats.BestScore, stats.StreakDays)
	if stats.AvgScore >= 70 {
		badges = append(badges, domain.Badge{Icon: "🎯", Name: "Consistent", Description: "Maintained 70%+ average"})
	}
	if stats.BestScore == 100 {
		badges = append(badges, domain.Badge{Icon: "🥇", Name: "Perfect Score", Description: "Achieved 100% on a quiz"})
	}
	categories := make(map[string]struct{})
	hardCompleted := 0
	for _, e := range entries {
		categories[e.CategoryID] = struct{}{}
		if e.Difficulty == domain.DifficultyHard {
			hardCompleted++
		}
	}
	if len(categories) >= 3 {
		badges = append(badges, domain.Badge{Icon: "🧭", Name: "Quiz Explorer", Description: fmt.Sprintf("Attempted quizzes in %d categories", len(categories))})
	}
	if hardCompleted >= 1 {
		badges = append(badges, domain.Badge{Icon: "🏔️", Name: "Challenger", Description: "Completed a difficult quiz"})
	}
	return badges
}
