package user

// Principal is the authenticated caller of a use case.
type Principal struct {
	UserID string
	Role   string
}

// Capability names an action that requires more than being logged in.
type Capability string

const (
	CapManageOrders   Capability = "orders:manage"
	CapViewAllOrders  Capability = "orders:view_all"
	CapManageSettings Capability = "settings:manage"
)

var roleCapabilities = map[string][]Capability{
	RoleAdmin: {CapManageOrders, CapViewAllOrders, CapManageSettings},
}

func (p Principal) Authenticated() bool { return p.UserID != "" }

func (p Principal) Can(c Capability) bool {
	for _, granted := range roleCapabilities[p.Role] {
		if granted == c {
			return true
		}
	}
	return false
}

// Authorize is the single capability gate used by every admin operation.
func Authorize(p Principal, c Capability) error {
	if !p.Authenticated() {
		return ErrUnauthenticated
	}
	if !p.Can(c) {
		return ErrForbidden
	}
	return nil
}

// CanViewOrder allows the owner of an order and anyone holding CapViewAllOrders.
func (p Principal) CanViewOrder(ownerID string) bool {
	if !p.Authenticated() {
		return false
	}
	return p.UserID == ownerID || p.Can(CapViewAllOrders)
}
