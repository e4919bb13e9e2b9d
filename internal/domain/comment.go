package domain

import "time"

// Comment captures a note in a ticket thread. Internal comments are staff-only.
type Comment struct {
	ID        int64
	TicketID  int64
	Author    string
	Body      string
	Internal  bool
	CreatedAt time.Time
}
