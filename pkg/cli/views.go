package cli

import (
	"encoding/json"
	"sort"
	"strconv"
	"time"

	"mercator-hq/growth/pkg/growth"
)

// The view types wrap engine results so they render as tables for text and
// CSV output while encoding to JSON exactly like the wrapped value.

// AssignmentView renders an assignment.
type AssignmentView struct{ Assignment *growth.Assignment }

func (v AssignmentView) MarshalJSON() ([]byte, error) { return json.Marshal(v.Assignment) }

func (v AssignmentView) Table() Table {
	a := v.Assignment
	return Table{
		Headers: []string{"experiment_id", "subject_id", "variant", "strategy_version", "new_assignment", "assigned_at"},
		Rows: [][]string{{
			a.ExperimentID, a.SubjectID, a.Variant, a.StrategyVersion,
			strconv.FormatBool(a.NewAssignment), formatTime(a.AssignedAt),
		}},
	}
}

// EventView renders a stored funnel event.
type EventView struct{ Event *growth.FunnelEvent }

func (v EventView) MarshalJSON() ([]byte, error) { return json.Marshal(v.Event) }

func (v EventView) Table() Table {
	e := v.Event
	return Table{
		Headers: []string{"id", "subject_id", "stage", "experiment_id", "variant", "strategy_version", "created_at"},
		Rows: [][]string{{
			strconv.FormatInt(e.ID, 10), e.SubjectID, e.Stage, e.ExperimentID,
			e.Variant, e.StrategyVersion, formatTime(e.CreatedAt),
		}},
	}
}

// FunnelView renders funnel stats as one row per (bucket, stage).
type FunnelView struct{ Stats *growth.FunnelStats }

func (v FunnelView) MarshalJSON() ([]byte, error) { return json.Marshal(v.Stats) }

func (v FunnelView) Table() Table {
	t := Table{Headers: []string{"bucket", "stage", "subjects"}}
	for _, bucket := range v.Stats.Buckets {
		stages := v.Stats.Series[bucket]
		names := make([]string, 0, len(stages))
		for stage := range stages {
			names = append(names, stage)
		}
		sort.Strings(names)
		for _, stage := range names {
			t.Rows = append(t.Rows, []string{bucket, stage, strconv.Itoa(stages[stage])})
		}
	}
	return t
}

// ComparisonView renders one row per variant. The p-value and
// significance columns repeat on every row.
type ComparisonView struct{ Comparison *growth.Comparison }

func (v ComparisonView) MarshalJSON() ([]byte, error) { return json.Marshal(v.Comparison) }

func (v ComparisonView) Table() Table {
	c := v.Comparison
	p := ""
	if c.PValue != nil {
		p = strconv.FormatFloat(*c.PValue, 'f', -1, 64)
	}

	t := Table{Headers: []string{
		"experiment_id", "variant", c.FromStage + "_users", c.ToStage + "_users",
		"conversion_rate", "p_value", "significant_at_0_05",
	}}
	for _, variant := range c.Order {
		vs := c.Variants[variant]
		t.Rows = append(t.Rows, []string{
			c.ExperimentID, variant,
			strconv.Itoa(vs.FromStageUsers), strconv.Itoa(vs.ToStageUsers),
			strconv.FormatFloat(vs.ConversionRate, 'f', -1, 64),
			p, strconv.FormatBool(c.SignificantAt005),
		})
	}
	return t
}

// StrategyView renders a single, possibly absent, strategy version.
// An absent version encodes as JSON null and renders no rows.
type StrategyView struct{ Version *growth.StrategyVersion }

func (v StrategyView) MarshalJSON() ([]byte, error) { return json.Marshal(v.Version) }

func (v StrategyView) Table() Table {
	if v.Version == nil {
		return StrategyListView{}.Table()
	}
	return StrategyListView{Versions: []*growth.StrategyVersion{v.Version}}.Table()
}

// StrategyListView renders strategy versions oldest first.
type StrategyListView struct{ Versions []*growth.StrategyVersion }

func (v StrategyListView) MarshalJSON() ([]byte, error) {
	if v.Versions == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(v.Versions)
}

func (v StrategyListView) Table() Table {
	t := Table{Headers: []string{"strategy_type", "version", "is_active", "is_baseline", "created_at"}}
	for _, s := range v.Versions {
		t.Rows = append(t.Rows, []string{
			s.StrategyType, s.Version,
			strconv.FormatBool(s.IsActive), strconv.FormatBool(s.IsBaseline),
			formatTime(s.CreatedAt),
		})
	}
	return t
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
