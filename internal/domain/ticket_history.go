package domain

import "time"

// TicketField names the ticket attribute a history entry describes.
type TicketField string

const (
	FieldCreated    TicketField = "created"
	FieldStatus     TicketField = "status"
	FieldAssignedTo TicketField = "assigned_to"
)

// TicketHistory is an immutable audit trail entry.
type TicketHistory struct {
	ID        int64
	TicketID  int64
	Field     TicketField
	OldValue  *string
	NewValue  string
	ChangedBy string
	ChangedAt time.Time
}
