// Package ranking blends heterogeneous relevance signals into one comparable
// scalar for feed and search ordering.
package ranking

import "time"

// Весовые коэффициенты зафиксированы: их менять — значит менять порядок
// выдачи у всех потребителей сразу.
const (
	matchWeight     = 0.6
	signalWeight    = 0.3
	freshnessWeight = 0.1
)

// Score combines a textual match distance, trend and search signals and a
// freshness decay. match is a distance in [0,1], 0 meaning exact: the closer
// the match, the higher the score. createdAt == nil means freshness is not
// applicable and contributes its full weight. Deterministic for identical
// inputs, so consumers can rely on it for stable sorts.
func Score(match, trend, search float64, createdAt *time.Time, now time.Time) float64 {
	return (1-match)*matchWeight + (trend+search)*signalWeight + Freshness(createdAt, now)*freshnessWeight
}

// Freshness decays as 1/(ageDays+1); +1 keeps age 0 finite.
func Freshness(createdAt *time.Time, now time.Time) float64 {
	if createdAt == nil {
		return 1
	}
	ageDays := now.Sub(*createdAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	return 1 / (ageDays + 1)
}
