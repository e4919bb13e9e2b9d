package service

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// MaxTrendDays bounds the CreationTrend window.
const MaxTrendDays = 365

// HelperPerformance is the per-helper part of TicketStats.
type HelperPerformance struct {
	Helper       string
	Name         string
	Active       int
	TotalHandled int
}

// TicketStats aggregates the tickets visible through a filter.
type TicketStats struct {
	Total                  int
	ByStatus               map[domain.TicketStatus]int
	ByPriority             map[domain.TicketPriority]int
	PriorityByStatus       map[domain.TicketPriority]map[domain.TicketStatus]int
	Active                 int
	Unassigned             int
	AverageResolutionHours float64
	Response               ResponseStats
	Helpers                []HelperPerformance
}

// ResponseStats measures the time from creation to the first comment by
// someone other than the creator. Anonymous tickets and tickets without such a
// comment are skipped.
type ResponseStats struct {
	AverageHours float64
	TicketCount  int
}

// AnalyticsService computes read-only statistics.
type AnalyticsService struct {
	tickets   repository.TicketStore
	directory repository.Directory
	now       func() time.Time
}

// AnalyticsDependencies bundles collaborators for analytics.
type AnalyticsDependencies struct {
	TicketStore repository.TicketStore
	Directory   repository.Directory
	Clock       func() time.Time
}

// NewAnalyticsService constructs the service.
func NewAnalyticsService(deps AnalyticsDependencies) *AnalyticsService {
	clock := deps.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &AnalyticsService{tickets: deps.TicketStore, directory: deps.Directory, now: clock}
}

// Stats summarizes the tickets matching filter. Helper rows cover every active
// helper, sorted by tickets handled.
func (s *AnalyticsService) Stats(ctx context.Context, filter repository.TicketFilter) (*TicketStats, error) {
	tickets, err := s.tickets.FetchAll(ctx, filter)
	if err != nil {
		return nil, storeError(err, 0)
	}
	helpers, err := s.directory.ListActive(ctx, domain.RoleHelper)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable("directory unavailable", err)
	}

	stats := &TicketStats{
		Total:      len(tickets),
		ByStatus:         map[domain.TicketStatus]int{},
		ByPriority:       map[domain.TicketPriority]int{},
		PriorityByStatus: map[domain.TicketPriority]map[domain.TicketStatus]int{},
	}
	perHelper := map[string]*HelperPerformance{}
	for _, h := range helpers {
		perHelper[h.Identity] = &HelperPerformance{Helper: h.Identity, Name: h.Name}
	}

	var (
		resolvedCount int
		resolvedHours float64
	)
	for _, t := range tickets {
		stats.ByStatus[t.Status]++
		stats.ByPriority[t.Priority]++
		if stats.PriorityByStatus[t.Priority] == nil {
			stats.PriorityByStatus[t.Priority] = map[domain.TicketStatus]int{}
		}
		stats.PriorityByStatus[t.Priority][t.Status]++
		if t.Status.Active() {
			stats.Active++
		}
		if t.AssignedTo == nil && t.Status != domain.TicketStatusClosed {
			stats.Unassigned++
		}
		if t.ResolvedAt != nil {
			resolvedCount++
			resolvedHours += t.ResolvedAt.Sub(t.CreatedAt).Hours()
		}
		if t.AssignedTo != nil {
			if perf, ok := perHelper[*t.AssignedTo]; ok {
				perf.TotalHandled++
				if t.Status.Active() {
					perf.Active++
				}
			}
		}
	}
	if resolvedCount > 0 {
		stats.AverageResolutionHours = roundHours(resolvedHours / float64(resolvedCount))
	}
	if stats.Response, err = s.responseStats(ctx, tickets); err != nil {
		return nil, err
	}

	stats.Helpers = make([]HelperPerformance, 0, len(helpers))
	for _, h := range helpers {
		perf := perHelper[h.Identity]
		if filter.AssignedTo != nil && perf.Helper != *filter.AssignedTo {
			continue
		}
		stats.Helpers = append(stats.Helpers, *perf)
	}
	sort.SliceStable(stats.Helpers, func(i, j int) bool {
		return stats.Helpers[i].TotalHandled > stats.Helpers[j].TotalHandled
	})
	return stats, nil
}

// CreationTrend counts tickets matching filter created on each of the last
// days calendar days (UTC), keyed by YYYY-MM-DD. Days without tickets map to zero.
func (s *AnalyticsService) CreationTrend(ctx context.Context, filter repository.TicketFilter, days int) (map[string]int, error) {
	if days <= 0 || days > MaxTrendDays {
		return nil, apperrors.NewValidationError("days must be between 1 and 365", map[string]any{
			"field": "days",
			"value": days,
			"max":   MaxTrendDays,
		})
	}
	tickets, err := s.tickets.FetchAll(ctx, filter)
	if err != nil {
		return nil, storeError(err, 0)
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	trend := make(map[string]int, days)
	for i := 0; i < days; i++ {
		trend[today.AddDate(0, 0, -i).Format(time.DateOnly)] = 0
	}
	for _, t := range tickets {
		key := t.CreatedAt.UTC().Format(time.DateOnly)
		if _, ok := trend[key]; ok {
			trend[key]++
		}
	}
	return trend, nil
}

func (s *AnalyticsService) responseStats(ctx context.Context, tickets []domain.Ticket) (ResponseStats, error) {
	var (
		out   ResponseStats
		hours float64
	)
	for _, t := range tickets {
		if t.CreatedBy == nil {
			continue
		}
		comments, err := s.tickets.FetchComments(ctx, t.ID, true)
		if err != nil {
			return ResponseStats{}, storeError(err, t.ID)
		}
		var first *time.Time
		for i := range comments {
			c := comments[i]
			if t.IsCreatedBy(c.Author) {
				continue
			}
			if first == nil || c.CreatedAt.Before(*first) {
				first = &c.CreatedAt
			}
		}
		if first == nil {
			continue
		}
		out.TicketCount++
		hours += first.Sub(t.CreatedAt).Hours()
	}
	if out.TicketCount > 0 {
		out.AverageHours = roundHours(hours / float64(out.TicketCount))
	}
	return out, nil
}

func roundHours(h float64) float64 {
	return math.Round(h*100) / 100
}
