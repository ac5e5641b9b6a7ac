package order

// OrderState implements the state pattern for order lifecycle transitions.
type OrderState interface {
	Status() Status
	OnPaid(o *Order) (OrderState, error)
	OnShipped(o *Order) (OrderState, error)
	OnCancelled(o *Order) (OrderState, error)
}

func StateOf(s Status) (OrderState, error) {
	switch s {
	case StatusPending:
		return pendingState{}, nil
	case StatusPaid:
		return paidState{}, nil
	case StatusShipped:
		return shippedState{}, nil
	case StatusCancelled:
		return cancelledState{}, nil
	default:
		return nil, ErrInvalidStatus
	}
}

// PlanTransition validates moving o to target and returns the update to persist.
// A request for the current status returns ok=false and no error, except that a shipped
// order given different tracking details gets a shipped->shipped update carrying them.
func PlanTransition(o *Order, target Status, tracking *Tracking) (update StatusUpdate, ok bool, err error) {
	current, err := StateOf(o.Status)
	if err != nil {
		return StatusUpdate{}, false, err
	}
	if _, err := StateOf(target); err != nil {
		return StatusUpdate{}, false, err
	}
	if target == o.Status {
		if target == StatusShipped && hasTracking(tracking) && (o.Tracking == nil || *o.Tracking != *tracking) {
			t := *tracking
			return StatusUpdate{From: o.Status, To: o.Status, Tracking: &t}, true, nil
		}
		return StatusUpdate{}, false, nil
	}

	var next OrderState
	switch target {
	case StatusPaid:
		next, err = current.OnPaid(o)
	case StatusShipped:
		next, err = current.OnShipped(o)
	case StatusCancelled:
		next, err = current.OnCancelled(o)
	default:
		err = ErrInvalidTransition
	}
	if err != nil {
		return StatusUpdate{}, false, err
	}

	update = StatusUpdate{From: o.Status, To: next.Status()}
	if next.Status() == StatusShipped && hasTracking(tracking) {
		t := *tracking
		update.Tracking = &t
	}
	return update, true, nil
}

func hasTracking(t *Tracking) bool {
	return t != nil && (t.Number != "" || t.Courier != "")
}

type pendingState struct{}

func (pendingState) Status() Status                         { return StatusPending }
func (pendingState) OnPaid(*Order) (OrderState, error)      { return paidState{}, nil }
func (pendingState) OnShipped(*Order) (OrderState, error)   { return nil, ErrInvalidTransition }
func (pendingState) OnCancelled(*Order) (OrderState, error) { return cancelledState{}, nil }

type paidState struct{}

func (paidState) Status() Status                         { return StatusPaid }
func (paidState) OnPaid(*Order) (OrderState, error)      { return paidState{}, nil }
func (paidState) OnShipped(*Order) (OrderState, error)   { return shippedState{}, nil }
func (paidState) OnCancelled(*Order) (OrderState, error) { return cancelledState{}, nil }

// shipped and cancelled are terminal.
type shippedState struct{}

func (shippedState) Status() Status                         { return StatusShipped }
func (shippedState) OnPaid(*Order) (OrderState, error)      { return nil, ErrInvalidTransition }
func (shippedState) OnShipped(*Order) (OrderState, error)   { return shippedState{}, nil }
func (shippedState) OnCancelled(*Order) (OrderState, error) { return nil, ErrInvalidTransition }

type cancelledState struct{}

func (cancelledState) Status() Status                         { return StatusCancelled }
func (cancelledState) OnPaid(*Order) (OrderState, error)      { return nil, ErrInvalidTransition }
func (cancelledState) OnShipped(*Order) (OrderState, error)   { return nil, ErrInvalidTransition }
func (cancelledState) OnCancelled(*Order) (OrderState, error) { return cancelledState{}, nil }
