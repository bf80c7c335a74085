package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var auditDescriptions = map[string]string{
	"create": "registered",
	"update": "edited",
	"delete": "deleted",
}

const weightDescription = "registered weight"

type Aggregator struct {
	roster  RosterSource
	audits  MealAuditSource
	weights WeightSource
	window  int
}

// NewAggregator builds an aggregator. A window below 1 falls back to
// DefaultWindow.
func NewAggregator(roster RosterSource, audits MealAuditSource, weights WeightSource, window int) *Aggregator {
	if window < 1 {
		window = DefaultWindow
	}
	return &Aggregator{roster: roster, audits: audits, weights: weights, window: window}
}

// Aggregate returns the owner's merged feed, newest first. Any source error
// fails the whole call.
func (a *Aggregator) Aggregate(ctx context.Context, ownerID uuid.UUID) (Feed, error) {
	feed := Feed{Items: []Activity{}}
	if ownerID == uuid.Nil {
		return feed, nil
	}

	roster, err := a.roster.ListRoster(ctx, ownerID)
	if err != nil {
		return Feed{}, fmt.Errorf("list roster: %w", err)
	}
	if len(roster) == 0 {
		return feed, nil
	}
	names := make(map[uuid.UUID]string, len(roster))
	ids := make([]uuid.UUID, 0, len(roster))
	for _, p := range roster {
		if _, dup := names[p.ID]; dup {
			continue
		}
		names[p.ID] = p.Name
		ids = append(ids, p.ID)
	}

	var (
		audits  []MealAudit
		weights []WeightRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := a.audits.RecentMealAudits(gctx, ids, a.window)
		if err != nil {
			return fmt.Errorf("fetch meal audits: %w", err)
		}
		audits = rows
		return nil
	})
	g.Go(func() error {
		rows, err := a.weights.RecentWeights(gctx, ids, a.window)
		if err != nil {
			return fmt.Errorf("fetch weights: %w", err)
		}
		weights = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return Feed{}, err
	}

	feed.Truncated = len(audits) >= a.window || len(weights) >= a.window
	if len(audits) > a.window {
		audits = audits[:a.window]
	}
	if len(weights) > a.window {
		weights = weights[:a.window]
	}

	items := make([]Activity, 0, len(audits)+len(weights))
	for _, r := range audits {
		name, ok := names[r.PatientID]
		if !ok {
			continue
		}
		items = append(items, normalizeAudit(r, name))
	}
	for _, r := range weights {
		name, ok := names[r.PatientID]
		if !ok {
			continue
		}
		items = append(items, normalizeWeight(r, name))
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp.After(items[j].Timestamp)
	})
	feed.Items = items
	return feed, nil
}

func normalizeAudit(r MealAudit, name string) Activity {
	cal := calories(r.Details)
	return Activity{
		PatientID:   r.PatientID,
		PatientName: name,
		Category:    CategoryMeal,
		Action:      r.Action,
		Description: auditDescriptions[r.Action],
		Calories:    &cal,
		Timestamp:   r.CreatedAt,
	}
}

func normalizeWeight(r WeightRecord, name string) Activity {
	w := r.WeightKg
	return Activity{
		PatientID:   r.PatientID,
		PatientName: name,
		Category:    CategoryWeight,
		Action:      "create",
		Description: weightDescription,
		WeightKg:    &w,
		Timestamp:   r.RecordedAt,
	}
}

// calories reads details.total_calories. Missing or non-numeric values
// count as 0.
func calories(details map[string]any) float64 {
	switch v := details["total_calories"].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err == nil {
			return f
		}
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err == nil {
			return f
		}
	}
	return 0
}

// ApplyFilter keeps entries whose patient name contains f.Search
// and whose category equals f.Category, both case-insensitive. Empty values and
// the "all" category disable the respective filter. Order is preserved.
func ApplyFilter(items []Activity, f Filter) []Activity {
	term := strings.ToLower(strings.TrimSpace(f.Search))
	category := strings.ToLower(strings.TrimSpace(f.Category))
	if category == CategoryAll {
		category = ""
	}

	out := make([]Activity, 0, len(items))
	for _, it := range items {
		if term != "" && !strings.Contains(strings.ToLower(it.PatientName), term) {
			continue
		}
		if category != "" && !strings.EqualFold(it.Category, category) {
			continue
		}
		out = append(out, it)
	}
	return out
}
