package permission

// Action identifies an operation subject to access control.
type Action int

const (
	ActionCreateTicket Action = iota + 1
	ActionViewTicket
	ActionViewAllTickets
	ActionUpdateTicket
	ActionDeleteTicket
	ActionAssignTicket
	ActionAddComment
	ActionAddInternalComment
	ActionViewInternalComments
	ActionViewWorkload
	ActionManageUsers
	ActionViewAnalytics
)

// Actions lists every action in declaration order.
var Actions = []Action{
	ActionCreateTicket,
	ActionViewTicket,
	ActionViewAllTickets,
	ActionUpdateTicket,
	ActionDeleteTicket,
	ActionAssignTicket,
	ActionAddComment,
	ActionAddInternalComment,
	ActionViewInternalComments,
	ActionViewWorkload,
	ActionManageUsers,
	ActionViewAnalytics,
}

func (a Action) String() string {
	switch a {
	case ActionCreateTicket:
		return "create_ticket"
	case ActionViewTicket:
		return "view_ticket"
	case ActionViewAllTickets:
		return "view_all_tickets"
	case ActionUpdateTicket:
		return "update_ticket"
	case ActionDeleteTicket:
		return "delete_ticket"
	case ActionAssignTicket:
		return "assign_ticket"
	case ActionAddComment:
		return "add_comment"
	case ActionAddInternalComment:
		return "add_internal_comment"
	case ActionViewInternalComments:
		return "view_internal_comments"
	case ActionViewWorkload:
		return "view_workload"
	case ActionManageUsers:
		return "manage_users"
	case ActionViewAnalytics:
		return "view_analytics"
	}
	return "unknown_action"
}

// TicketScoped reports whether deciding the action requires the target ticket.
func (a Action) TicketScoped() bool {
	switch a {
	case ActionViewTicket, ActionUpdateTicket, ActionAddComment, ActionAddInternalComment:
		return true
	}
	return false
}
