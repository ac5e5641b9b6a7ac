package user

import (
	"errors"
	"testing"
)

func TestAuthorize(t *testing.T) {
	t.Parallel()

	admin := Principal{UserID: "a1", Role: RoleAdmin}
	customer := Principal{UserID: "c1", Role: RoleCustomer}

	if err := Authorize(admin, CapManageOrders); err != nil {
		t.Fatalf("admin should manage orders, got %v", err)
	}
	if err := Authorize(customer, CapManageOrders); !errors.Is(err, ErrForbidden) {
		t.Fatalf("customer: got %v, want ErrForbidden", err)
	}
	if err := Authorize(Principal{Role: RoleAdmin}, CapManageOrders); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("anonymous: got %v, want ErrUnauthenticated", err)
	}
}

func TestCanViewOrder(t *testing.T) {
	t.Parallel()

	owner := Principal{UserID: "c1", Role: RoleCustomer}
	other := Principal{UserID: "c2", Role: RoleCustomer}
	admin := Principal{UserID: "a1", Role: RoleAdmin}

	if !owner.CanViewOrder("c1") {
		t.Error("owner should see own order")
	}
	if other.CanViewOrder("c1") {
		t.Error("other customer must not see the order")
	}
	if !admin.CanViewOrder("c1") {
		t.Error("admin should see any order")
	}
}

func TestProfileUpdateKeepsTaxCodeWhenEmpty(t *testing.T) {
	t.Parallel()

	u := &User{ID: "c1", TaxCode: "RSSMRA80A01H501U"}
	ProfileUpdate{ShippingAddress: Address{City: "Campobasso"}}.Apply(u)

	if u.TaxCode != "RSSMRA80A01H501U" {
		t.Errorf("tax code overwritten: %q", u.TaxCode)
	}
	if u.ShippingAddress == nil || u.ShippingAddress.City != "Campobasso" {
		t.Errorf("shipping address not applied: %+v", u.ShippingAddress)
	}
}
