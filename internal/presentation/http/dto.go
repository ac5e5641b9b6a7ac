package httppresentation

import (
	"time"

	"github.com/Zhima-Mochi/colleshop/internal/application/checkout"
	appOrder "github.com/Zhima-Mochi/colleshop/internal/application/order"
	domainOrder "github.com/Zhima-Mochi/colleshop/internal/domain/order"
	"github.com/Zhima-Mochi/colleshop/internal/domain/user"
	"github.com/shopspring/decimal"
)

// checkoutItem mirrors a cart line. Name and price are echoed by the storefront cart
// and accepted, but pricing always comes from the catalog.
type checkoutItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

type checkoutRequest struct {
	Items           []checkoutItem      `json:"items"`
	ShippingAddress domainOrder.Address `json:"shipping_address"`
	BillingAddress  domainOrder.Address `json:"billing_address"`
	TaxCode         string              `json:"customer_tax_code"`
	CustomerName    string              `json:"customer_name"`
	CustomerEmail   string              `json:"customer_email"`
	Total           decimal.Decimal     `json:"total_amount"`
}

func (r checkoutRequest) items() []checkout.Item {
	out := make([]checkout.Item, 0, len(r.Items))
	for _, it := range r.Items {
		out = append(out, checkout.Item{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return out
}

type checkoutResponse struct {
	OrderID         string             `json:"order_id"`
	ClientSecret    string             `json:"client_secret"`
	PaymentIntentID string             `json:"payment_intent_id"`
	MockPayment     bool               `json:"mock_payment"`
	Total           string             `json:"total"`
	Status          domainOrder.Status `json:"status"`
}

type setStatusRequest struct {
	Status         string `json:"status"`
	TrackingNumber string `json:"tracking_number,omitempty"`
	CourierName    string `json:"courier_name,omitempty"`
}

func (r setStatusRequest) tracking() *domainOrder.Tracking {
	if r.TrackingNumber == "" && r.CourierName == "" {
		return nil
	}
	return &domainOrder.Tracking{Number: r.TrackingNumber, Courier: r.CourierName}
}

type lineItemResponse struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Quantity  int    `json:"quantity"`
	LineTotal string `json:"line_total"`
}

type orderResponse struct {
	ID              string                `json:"id"`
	UserID          string                `json:"user_id"`
	Items           []lineItemResponse    `json:"items"`
	Subtotal        string                `json:"subtotal"`
	ShippingFee     string                `json:"shipping_fee"`
	Total           string                `json:"total"`
	Status          domainOrder.Status    `json:"status"`
	ShippingAddress domainOrder.Address   `json:"shipping_address"`
	BillingAddress  domainOrder.Address   `json:"billing_address"`
	Customer        domainOrder.Customer  `json:"customer"`
	PaymentIntentID string                `json:"payment_intent_id"`
	MockPayment     bool                  `json:"mock_payment"`
	Tracking        *domainOrder.Tracking `json:"tracking,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

func toOrderResponse(o *domainOrder.Order) orderResponse {
	items := make([]lineItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, lineItemResponse{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.UnitPrice.StringFixed(2),
			Quantity:  it.Quantity,
			LineTotal: it.LineTotal().StringFixed(2),
		})
	}
	return orderResponse{
		ID:              o.ID,
		UserID:          o.UserID,
		Items:           items,
		Subtotal:        o.Subtotal.StringFixed(2),
		ShippingFee:     o.ShippingFee.StringFixed(2),
		Total:           o.Total.StringFixed(2),
		Status:          o.Status,
		ShippingAddress: o.ShippingAddress,
		BillingAddress:  o.BillingAddress,
		Customer:        o.Customer,
		PaymentIntentID: o.PaymentIntentID,
		MockPayment:     o.MockPayment,
		Tracking:        o.Tracking,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

func toOrderList(orders []*domainOrder.Order) []orderResponse {
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	return out
}

type adminDashboardResponse struct {
	Role          string          `json:"role"`
	TotalUsers    int             `json:"total_users"`
	TotalProducts int             `json:"total_products"`
	TotalOrders   int             `json:"total_orders"`
	TotalRevenue  string          `json:"total_revenue"`
	RecentOrders  []orderResponse `json:"recent_orders"`
}

type customerDashboardResponse struct {
	Role        string         `json:"role"`
	TotalOrders int            `json:"total_orders"`
	TotalSpent  string         `json:"total_spent"`
	LastOrder   *orderResponse `json:"last_order"`
}

func toDashboardResponse(d *appOrder.Dashboard) any {
	if d.Role == user.RoleAdmin {
		return adminDashboardResponse{
			Role:          d.Role,
			TotalUsers:    d.TotalUsers,
			TotalProducts: d.TotalProducts,
			TotalOrders:   d.TotalOrders,
			TotalRevenue:  d.TotalRevenue.StringFixed(2),
			RecentOrders:  toOrderList(d.RecentOrders),
		}
	}
	resp := customerDashboardResponse{
		Role:        d.Role,
		TotalOrders: d.TotalOrders,
		TotalSpent:  d.TotalSpent.StringFixed(2),
	}
	if d.LastOrder != nil {
		last := toOrderResponse(d.LastOrder)
		resp.LastOrder = &last
	}
	return resp
}
