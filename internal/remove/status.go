package remove

import "fmt"

// Status is the outcome of removing one entry or a whole run, ordered from
// least to most severe.
type Status int

const (
	OK Status = iota + 1
	UserDeclined
	Error
)

func (s Status) String() string {
	switch s {
	case OK:
		return "ok"
	case UserDeclined:
		return "declined"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

func (s Status) valid() bool {
	return s == OK || s == UserDeclined || s == Error
}

// Update folds next into the aggregate s. Error always wins and UserDeclined
// wins over OK, so an aggregate never becomes less severe.
func (s *Status) Update(next Status) {
	if next == Error || (next == UserDeclined && *s == OK) {
		*s = next
	}
}
