package dto

import (
	"github.com/spec-kit/helpdesk/internal/service"
)

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	Assignee string `json:"assignee" validate:"required,max=320"`
}

// StaffLoadResponse is one helper's workload.
type StaffLoadResponse struct {
	Helper      string `json:"helper"`
	CurrentLoad int    `json:"current_load"`
	Capacity    int    `json:"capacity"`
	Remaining   int    `json:"remaining"`
}

// AutoAssignResponse reports the outcome of an automatic assignment.
type AutoAssignResponse struct {
	Assigned bool   `json:"assigned"`
	Helper   string `json:"helper,omitempty"`
}

// BalanceResponse summarizes a rebalance pass.
type BalanceResponse struct {
	Reassigned  int     `json:"reassigned"`
	AverageLoad float64 `json:"average_load"`
}

// HelperPerformanceResponse is one helper row of the stats.
type HelperPerformanceResponse struct {
	Helper       string `json:"helper"`
	Name         string `json:"name"`
	Active       int    `json:"active"`
	TotalHandled int    `json:"total_handled"`
}

// ResponseTimeResponse is the first-response summary.
type ResponseTimeResponse struct {
	AverageHours float64 `json:"avg_response_hours"`
	TicketCount  int     `json:"ticket_count"`
}

// StatsResponse represents ticket statistics.
type StatsResponse struct {
	Total                  int                         `json:"total"`
	ByStatus               map[string]int              `json:"by_status"`
	ByPriority             map[string]int              `json:"by_priority"`
	PriorityByStatus       map[string]map[string]int   `json:"priority_by_status"`
	Active                 int                         `json:"active"`
	Unassigned             int                         `json:"unassigned"`
	AverageResolutionHours float64                     `json:"average_resolution_hours"`
	Response               ResponseTimeResponse        `json:"response_time"`
	Helpers                []HelperPerformanceResponse `json:"helpers"`
	Trend                  map[string]int              `json:"trend,omitempty"`
}

// NewStaffLoadResponses maps workload rows.
func NewStaffLoadResponses(staff []service.StaffLoad) []StaffLoadResponse {
	out := make([]StaffLoadResponse, 0, len(staff))
	for _, s := range staff {
		out = append(out, StaffLoadResponse{
			Helper:      s.Helper,
			CurrentLoad: s.CurrentLoad,
			Capacity:    s.Capacity,
			Remaining:   s.Remaining,
		})
	}
	return out
}

// NewStatsResponse maps statistics.
func NewStatsResponse(stats *service.TicketStats, trend map[string]int) StatsResponse {
	resp := StatsResponse{
		Total:                  stats.Total,
		ByStatus:               make(map[string]int, len(stats.ByStatus)),
		ByPriority:             make(map[string]int, len(stats.ByPriority)),
		PriorityByStatus:       make(map[string]map[string]int, len(stats.PriorityByStatus)),
		Active:                 stats.Active,
		Unassigned:             stats.Unassigned,
		AverageResolutionHours: stats.AverageResolutionHours,
		Response:               ResponseTimeResponse(stats.Response),
		Helpers:                make([]HelperPerformanceResponse, 0, len(stats.Helpers)),
		Trend:                  trend,
	}
	for status, count := range stats.ByStatus {
		resp.ByStatus[string(status)] = count
	}
	for priority, count := range stats.ByPriority {
		resp.ByPriority[string(priority)] = count
	}
	for priority, byStatus := range stats.PriorityByStatus {
		row := make(map[string]int, len(byStatus))
		for status, count := range byStatus {
			row[string(status)] = count
		}
		resp.PriorityByStatus[string(priority)] = row
	}
	for _, h := range stats.Helpers {
		resp.Helpers = append(resp.Helpers, HelperPerformanceResponse{
			Helper:       h.Helper,
			Name:         h.Name,
			Active:       h.Active,
			TotalHandled: h.TotalHandled,
		})
	}
	return resp
}
