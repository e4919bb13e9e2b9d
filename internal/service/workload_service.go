package service

import (
	"context"
	"math"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// DefaultHelperCapacity is the shared ceiling of active tickets per helper.
const DefaultHelperCapacity = 10

// overloadMargin is how far above the average a helper must be before the
// balancer takes tickets away.
const overloadMargin = 2.0

// StaffLoad is a helper's active ticket count against the shared capacity.
type StaffLoad struct {
	Helper      string
	CurrentLoad int
	Capacity    int
	Remaining   int
}

// BalanceResult summarizes one rebalance pass.
type BalanceResult struct {
	Reassigned  int
	AverageLoad float64
}

// WorkloadService distributes tickets across helpers by current load.
type WorkloadService struct {
	tickets    repository.TicketStore
	directory  repository.Directory
	lifecycle  *LifecycleService
	dispatcher events.Dispatcher
	logger     *zap.Logger
	capacity   int
}

// WorkloadDependencies bundles collaborators for the workload service.
type WorkloadDependencies struct {
	TicketStore    repository.TicketStore
	Directory      repository.Directory
	Lifecycle      *LifecycleService
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
	HelperCapacity int
}

// NewWorkloadService constructs the service.
func NewWorkloadService(deps WorkloadDependencies) *WorkloadService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	capacity := deps.HelperCapacity
	if capacity <= 0 {
		capacity = DefaultHelperCapacity
	}
	return &WorkloadService{
		tickets:    deps.TicketStore,
		directory:  deps.Directory,
		lifecycle:  deps.Lifecycle,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		capacity:   capacity,
	}
}

// CurrentLoad maps every active helper to the number of their tickets that
// are neither Resolved nor Closed. Helpers without tickets map to zero.
func (s *WorkloadService) CurrentLoad(ctx context.Context) (map[string]int, error) {
	helpers, loads, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(helpers))
	for _, h := range helpers {
		out[h.Identity] = loads[h.Identity]
	}
	return out, nil
}

// AvailableStaff lists helpers with most remaining capacity first. Equal
// remaining capacity keeps directory order.
func (s *WorkloadService) AvailableStaff(ctx context.Context) ([]StaffLoad, error) {
	helpers, loads, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	staff := make([]StaffLoad, 0, len(helpers))
	for _, h := range helpers {
		load := loads[h.Identity]
		staff = append(staff, StaffLoad{
			Helper:      h.Identity,
			CurrentLoad: load,
			Capacity:    s.capacity,
			Remaining:   s.capacity - load,
		})
	}
	sort.SliceStable(staff, func(i, j int) bool {
		return staff[i].Remaining > staff[j].Remaining
	})
	return staff, nil
}

// AutoAssign hands the ticket to the helper with the most remaining capacity.
// It reports false without touching the ticket when no helper has room.
func (s *WorkloadService) AutoAssign(ctx context.Context, ticketID int64, changedBy string) (string, bool, error) {
	if _, err := s.lifecycle.GetTicket(ctx, ticketID); err != nil {
		return "", false, err
	}
	staff, err := s.AvailableStaff(ctx)
	if err != nil {
		return "", false, err
	}
	if len(staff) == 0 || staff[0].Remaining <= 0 {
		s.logger.Info("no helper available for auto assignment", zap.Int64("ticket_id", ticketID))
		return "", false, nil
	}

	helper := staff[0].Helper
	if _, err := s.lifecycle.UpdateTicket(ctx, ticketID, TicketUpdateInput{AssignedTo: &helper}, changedBy); err != nil {
		return "", false, err
	}
	return helper, true, nil
}

// AssignTicket assigns the ticket to helper.
func (s *WorkloadService) AssignTicket(ctx context.Context, ticketID int64, helper, changedBy string) (*domain.Ticket, error) {
	return s.lifecycle.UpdateTicket(ctx, ticketID, TicketUpdateInput{AssignedTo: &helper}, changedBy)
}

type balanceTarget struct {
	helper string
	load   int
}

// BalanceWorkload moves Open tickets away from helpers more than two tickets
// above the average load. Each ticket goes to whichever underloaded helper is
// least loaded at that moment; a target leaves the pool once it reaches the
// average. Every move is a separate UpdateTicket call, so a failure part way
// leaves earlier moves in place.
func (s *WorkloadService) BalanceWorkload(ctx context.Context, changedBy string) (BalanceResult, error) {
	staff, err := s.AvailableStaff(ctx)
	if err != nil {
		return BalanceResult{}, err
	}
	if len(staff) < 2 {
		return BalanceResult{}, nil
	}

	total := 0
	for _, st := range staff {
		total += st.CurrentLoad
	}
	average := float64(total) / float64(len(staff))
	result := BalanceResult{AverageLoad: average}

	var (
		overloaded []StaffLoad
		pool       []*balanceTarget
	)
	for _, st := range staff {
		load := float64(st.CurrentLoad)
		switch {
		case load > average+overloadMargin:
			overloaded = append(overloaded, st)
		case load < average:
			pool = append(pool, &balanceTarget{helper: st.Helper, load: st.CurrentLoad})
		}
	}
	sortTargets(pool)

	open := domain.TicketStatusOpen
	for _, source := range overloaded {
		if len(pool) == 0 {
			break
		}
		excess := int(math.Floor(float64(source.CurrentLoad) - average))
		helper := source.Helper
		candidates, err := s.tickets.FetchAll(ctx, repository.TicketFilter{AssignedTo: &helper, Status: &open})
		if err != nil {
			return result, storeError(err, 0)
		}
		if len(candidates) > excess {
			candidates = candidates[:excess]
		}

		for _, ticket := range candidates {
			if len(pool) == 0 {
				break
			}
			target := pool[0]
			pool = pool[1:]
			if _, err := s.lifecycle.UpdateTicket(ctx, ticket.ID, TicketUpdateInput{AssignedTo: &target.helper}, changedBy); err != nil {
				return result, err
			}
			result.Reassigned++
			target.load++
			if float64(target.load) < average {
				pool = append(pool, target)
				sortTargets(pool)
			}
			s.logger.Debug("ticket rebalanced",
				zap.Int64("ticket_id", ticket.ID),
				zap.String("from", helper),
				zap.String("to", target.helper))
		}
	}

	s.logger.Info("workload balanced",
		zap.Int("reassigned", result.Reassigned),
		zap.Float64("average_load", average),
		zap.String("actor", changedBy))
	if result.Reassigned > 0 && s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventWorkloadBalanced,
			Actor:     changedBy,
			Timestamp: s.lifecycle.now(),
			Payload: events.WorkloadBalancedPayload{
				Reassigned:  result.Reassigned,
				AverageLoad: average,
			},
		})
	}
	return result, nil
}

// snapshot reads active helpers and their active ticket counts. It is not
// synchronized with writers.
func (s *WorkloadService) snapshot(ctx context.Context) ([]domain.User, map[string]int, error) {
	helpers, err := s.directory.ListActive(ctx, domain.RoleHelper)
	if err != nil {
		return nil, nil, apperrors.NewStoreUnavailable("directory unavailable", err)
	}
	loads := make(map[string]int, len(helpers))
	for _, h := range helpers {
		loads[h.Identity] = 0
	}

	tickets, err := s.tickets.FetchAll(ctx, repository.TicketFilter{})
	if err != nil {
		return nil, nil, storeError(err, 0)
	}
	for _, t := range tickets {
		if t.AssignedTo == nil || !t.Status.Active() {
			continue
		}
		if _, ok := loads[*t.AssignedTo]; ok {
			loads[*t.AssignedTo]++
		}
	}
	return helpers, loads, nil
}

func sortTargets(pool []*balanceTarget) {
	sort.SliceStable(pool, func(i, j int) bool { return pool[i].load < pool[j].load })
}
