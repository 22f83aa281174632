package schema

import "math"

// Goal status labels.
const (
	GoalMetValue   = "Met"
	BelowGoalValue = "Below goal"
	NoDataValue    = "No data"
	NoGoalValue    = "-"
)

// TrendFit holds the coefficients of y = Slope*x + Intercept.
type TrendFit struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	Points    int     `json:"points"`
}

// Trendline is a fitted line aligned to a display window.
type Trendline struct {
	Fit    TrendFit `json:"fit"`
	Series Series   `json:"series"`
	Notes  []string `json:"notes,omitempty"`
}

// CommitmentReport is the outcome of one commitment computation.
type CommitmentReport struct {
	Kind        CommitmentKind `json:"kind"`
	Category    Category       `json:"category"`
	Granularity Granularity    `json:"granularity"`
	Available   bool           `json:"available"`
	Reason      string         `json:"reason,omitempty"`
	Commitment  Series         `json:"commitment"`
	Rolling     Series         `json:"rolling_average"`
	Trend       *Trendline     `json:"trend,omitempty"`
	Goal        *float64       `json:"goal,omitempty"`
}

// CountReport is the outcome of a per-period count, optionally broken down by a column.
type CountReport struct {
	Category    Category    `json:"category"`
	Column      string      `json:"column"`
	Breakdown   string      `json:"breakdown,omitempty"`
	Granularity Granularity `json:"granularity"`
	Available   bool        `json:"available"`
	Reason      string      `json:"reason,omitempty"`
	Totals      Series      `json:"totals"`
	Table       *Table      `json:"table,omitempty"`
	Rolling     Series      `json:"rolling_average"`
	Trend       *Trendline  `json:"trend,omitempty"`
}

// CompositeReport is the outcome of a weighted composite computation.
type CompositeReport struct {
	Granularity       Granularity          `json:"granularity"`
	Score             Series               `json:"score"`
	MinPeriod         Period               `json:"min_period"`
	MinPeriodCategory Category             `json:"min_period_category"`
	Weights           map[Category]float64 `json:"weights"`
	Offset            float64              `json:"offset"`
	Components        map[Category]Series  `json:"components"`
	Rolling           Series               `json:"rolling_average"`
	Trend             *Trendline           `json:"trend,omitempty"`
	Notes             []string             `json:"notes,omitempty"`
}

// RateReport is the outcome of the complaint rate per usage computation.
type RateReport struct {
	Granularity   Granularity `json:"granularity"`
	Available     bool        `json:"available"`
	Reason        string      `json:"reason,omitempty"`
	PerHundredRun Series      `json:"per_hundred_runs"`
	PerAccount    Series      `json:"per_account"`
	ValidFrom     Period      `json:"valid_from"`
	Notes         []string    `json:"notes,omitempty"`
}

// GetGoalLabel returns the goal status of a commitment value.
// A nil goal yields NoGoalValue; a NaN value yields NoDataValue.
func GetGoalLabel(value float64, goal *float64) string {
	switch {
	case math.IsNaN(value):
		return NoDataValue
	case goal == nil:
		return NoGoalValue
	case value >= *goal:
		return GoalMetValue
	default:
		return BelowGoalValue
	}
}
