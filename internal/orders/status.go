package orders

import "fmt"

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPaid      Status = "PAID"
	StatusCancelled Status = "CANCELLED"
	StatusDelivered Status = "DELIVERED"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:   {StatusPaid: true, StatusCancelled: true},
	StatusPaid:      {StatusDelivered: true, StatusCancelled: true},
	StatusCancelled: {},
	StatusDelivered: {},
}

// CanTransition reports whether an order in from may be moved to to.
// Setting the current status again is allowed and changes nothing.
func CanTransition(from, to Status) bool {
	if _, ok := validNext[to]; !ok {
		return false
	}
	return from == to || validNext[from][to]
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if _, ok := validNext[st]; !ok {
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalid, s)
	}
	return st, nil
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool { return len(validNext[s]) == 0 }
