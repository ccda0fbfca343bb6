package booking

type Status string

const (
	StatusHeld           Status = "HELD"
	StatusPendingPayment Status = "PENDING_PAYMENT"
	StatusConfirmed      Status = "CONFIRMED"
	StatusFailed         Status = "FAILED"
	StatusCancelled      Status = "CANCELLED"
	StatusExpired        Status = "EXPIRED"
	StatusRefunded       Status = "REFUNDED"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusHeld, StatusPendingPayment, StatusConfirmed, StatusFailed,
		StatusCancelled, StatusExpired, StatusRefunded:
		return true
	default:
		return false
	}
}

// OccupyingStatuses block the practitioner's time. HELD only blocks until
// its hold elapses; the store's exclusion constraint uses the same list.
var OccupyingStatuses = []Status{StatusHeld, StatusPendingPayment, StatusConfirmed, StatusRefunded}

func (s Status) Occupies() bool {
	switch s {
	case StatusHeld, StatusPendingPayment, StatusConfirmed, StatusRefunded:
		return true
	default:
		return false
	}
}

var transitions = map[Status][]Status{
	StatusHeld:           {StatusPendingPayment, StatusExpired, StatusCancelled, StatusConfirmed},
	StatusPendingPayment: {StatusConfirmed, StatusFailed, StatusCancelled, StatusExpired},
	StatusConfirmed:      {StatusRefunded},
	StatusExpired:        {StatusConfirmed},
}

func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}
