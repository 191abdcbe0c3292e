// Package dashboard computes the CRM summary shown on the home screen.
package dashboard

import (
	"context"
	"errors"
	"sort"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/crm-cli/internal/model"
	"github.com/sells-group/crm-cli/internal/stages"
	"github.com/sells-group/crm-cli/internal/store"
)

const (
	recentActivityLimit = 10
	upcomingTaskLimit   = 8
	unknownSource       = "Unknown"
)

// StageTotal is the amount and count of opportunities in one stage.
type StageTotal struct {
	Stage  string  `json:"stage"`
	Amount float64 `json:"amount"`
	Count  int     `json:"count"`
}

// Count is a labelled tally.
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Summary is the dashboard payload.
type Summary struct {
	TotalLeads        int              `json:"total_leads"`
	OpenOpportunities int              `json:"open_opportunities"`
	PipelineValue     float64          `json:"pipeline_value"`
	WonRevenue        float64          `json:"won_revenue"`
	PipelineByStage   []StageTotal     `json:"pipeline_by_stage"`
	OppsByStage       []Count          `json:"opportunities_by_stage"`
	LeadsBySource     []Count          `json:"leads_by_source"`
	LeadsByStatus     []Count          `json:"leads_by_status"`
	RecentActivities  []model.Activity `json:"recent_activities"`
	UpcomingTasks     []model.Task     `json:"upcoming_tasks"`
}

// Load reads leads, opportunities, the default pipeline, recent activities
// and upcoming tasks concurrently and summarizes them.
func Load(ctx context.Context, st store.Store) (*Summary, error) {
	var (
		leads    []model.Lead
		opps     []model.Opportunity
		pipeline *model.Pipeline
		acts     []model.Activity
		tasks    []model.Task
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		leads, err = st.ListLeads(gCtx, store.LeadFilter{})
		return eris.Wrap(err, "dashboard: list leads")
	})
	g.Go(func() error {
		var err error
		opps, err = st.ListOpportunities(gCtx, store.OpportunityFilter{})
		return eris.Wrap(err, "dashboard: list opportunities")
	})
	g.Go(func() error {
		p, err := st.GetDefaultPipeline(gCtx)
		if errors.Is(err, store.ErrNotFound) {
			pipeline = stages.Default()
			return nil
		}
		pipeline = p
		return eris.Wrap(err, "dashboard: load pipeline")
	})
	g.Go(func() error {
		var err error
		acts, err = st.ListActivities(gCtx, store.ActivityFilter{Limit: recentActivityLimit})
		return eris.Wrap(err, "dashboard: list activities")
	})
	g.Go(func() error {
		var err error
		tasks, err = st.ListTasks(gCtx, store.TaskFilter{
			Statuses: model.ActiveTaskStatuses,
			Limit:    upcomingTaskLimit,
		})
		return eris.Wrap(err, "dashboard: list tasks")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sum := Summarize(leads, opps, pipeline)
	sum.RecentActivities = nonNil(acts)
	sum.UpcomingTasks = nonNil(tasks)
	return sum, nil
}

// Summarize computes the lead and opportunity figures. Stage totals follow
// the order of pipeline.
func Summarize(leads []model.Lead, opps []model.Opportunity, pipeline *model.Pipeline) *Summary {
	sum := &Summary{TotalLeads: len(leads)}

	byStage := make(map[string]*StageTotal)
	for _, o := range opps {
		amount := o.AmountOrZero()
		if !stages.IsClosed(o.Stage) {
			sum.OpenOpportunities++
			sum.PipelineValue += amount
		}
		if o.Stage == stages.ClosedWon {
			sum.WonRevenue += amount
		}
		t, ok := byStage[o.Stage]
		if !ok {
			t = &StageTotal{Stage: o.Stage}
			byStage[o.Stage] = t
		}
		t.Amount += amount
		t.Count++
	}

	names := stages.Names(pipeline)
	known := make(map[string]bool, len(names))
	sum.PipelineByStage = make([]StageTotal, 0, len(names))
	sum.OppsByStage = []Count{}
	for _, name := range names {
		known[name] = true
		t := StageTotal{Stage: name}
		if got, ok := byStage[name]; ok {
			t = *got
			sum.OppsByStage = append(sum.OppsByStage, Count{Name: name, Count: got.Count})
		}
		sum.PipelineByStage = append(sum.PipelineByStage, t)
	}
	// Stages no longer in the pipeline still count toward the pie.
	var extra []Count
	for name, t := range byStage {
		if !known[name] {
			extra = append(extra, Count{Name: name, Count: t.Count})
		}
	}
	sortCounts(extra)
	sum.OppsByStage = append(sum.OppsByStage, extra...)

	sources := make(map[string]int)
	statuses := make(map[string]int)
	for _, l := range leads {
		src := model.Deref(l.Source)
		if src == "" {
			src = unknownSource
		}
		sources[src]++
		statuses[string(l.Status)]++
	}
	sum.LeadsBySource = counts(sources)
	sum.LeadsByStatus = counts(statuses)

	return sum
}

func counts(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for name, n := range m {
		out = append(out, Count{Name: name, Count: n})
	}
	sortCounts(out)
	return out
}

// sortCounts orders by count descending, then name.
func sortCounts(c []Count) {
	sort.Slice(c, func(i, j int) bool {
		if c[i].Count != c[j].Count {
			return c[i].Count > c[j].Count
		}
		return c[i].Name < c[j].Name
	})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
