package binding

// Transition is what a count change does to an account's alert.
type Transition int

const (
	// TransitionClose withdraws the alert; nothing is unread.
	TransitionClose Transition = iota
	// TransitionUpdate refreshes the text without drawing attention.
	TransitionUpdate
	// TransitionUpdateAndRaise refreshes the text and shows the alert again.
	TransitionUpdateAndRaise
)

func (t Transition) String() string {
	switch t {
	case TransitionClose:
		return "close"
	case TransitionUpdate:
		return "update"
	case TransitionUpdateAndRaise:
		return "update_and_raise"
	default:
		return "unknown"
	}
}

// Project decides the transition for a new unread count given the count
// seen at the previous transition. Only an increase raises the alert;
// an unchanged count is treated like a decrease.
func Project(unread, last uint) Transition {
	switch {
	case unread == 0:
		return TransitionClose
	case unread > last:
		return TransitionUpdateAndRaise
	default:
		return TransitionUpdate
	}
}
