package market

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusDeclined Status = "declined"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:  {StatusAccepted: true, StatusDeclined: true},
	StatusAccepted: {},
	StatusDeclined: {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Valid reports whether s is one of the known order states.
func (s Status) Valid() bool {
	_, ok := validNext[s]
	return ok
}
