package notification

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	domorder "github.com/Zhima-Mochi/colleshop/internal/domain/order"
)

const shopName = "ColleShop"

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`<h2>Thank you for your order, {{.Name}}!</h2>
<p>Order <strong>#{{.Ref}}</strong> has been received and is waiting for payment.</p>
<table>
<tr><th>Product</th><th>Qty</th><th>Price</th></tr>
{{range .Items}}<tr><td>{{.Name}}</td><td>{{.Quantity}}</td><td>&euro; {{.UnitPrice.StringFixed 2}}</td></tr>
{{end}}</table>
<p>Subtotal: &euro; {{.Order.Subtotal.StringFixed 2}}<br>
Shipping: &euro; {{.Order.ShippingFee.StringFixed 2}}<br>
<strong>Total: &euro; {{.Order.Total.StringFixed 2}}</strong></p>
{{if .Order.MockPayment}}<p><em>Payment is running in test mode: no real charge will be made.</em></p>{{end}}
<p>Shipping to: {{.Order.ShippingAddress.Street}}, {{.Order.ShippingAddress.ZipCode}} {{.Order.ShippingAddress.City}} ({{.Order.ShippingAddress.Country}})</p>
`))

var statusTmpl = template.Must(template.New("status").Parse(`<h2>Hello {{.Name}},</h2>
{{if eq .Status "shipped"}}<p>Good news: order <strong>#{{.Ref}}</strong> is on its way.</p>
{{with .Order.Tracking}}<p>Courier: {{.Courier}}<br>Tracking number: <strong>{{.Number}}</strong></p>{{end}}
{{else if eq .Status "cancelled"}}<p>Order <strong>#{{.Ref}}</strong> has been cancelled. If you already paid, the amount will be refunded.</p>
{{else if eq .Status "paid"}}<p>We received the payment for order <strong>#{{.Ref}}</strong>. We are preparing your parcel.</p>
{{else}}<p>Order <strong>#{{.Ref}}</strong> is now <strong>{{.Status}}</strong>.</p>
{{end}}`))

type view struct {
	Name   string
	Ref    string
	Status string
	Items  []domorder.LineItem
	Order  *domorder.Order
}

func newView(o *domorder.Order) view {
	name := o.Customer.Name
	if name == "" {
		name = "customer"
	}
	return view{
		Name:   name,
		Ref:    shortRef(o.ID),
		Status: string(o.Status),
		Items:  o.Items,
		Order:  o,
	}
}

// shortRef is the customer-facing order reference: the last 8 characters, upper-cased.
func shortRef(id string) string {
	if len(id) > 8 {
		id = id[len(id)-8:]
	}
	return strings.ToUpper(id)
}

func renderConfirmation(o *domorder.Order) (subject, body string, err error) {
	var buf bytes.Buffer
	if err := confirmationTmpl.Execute(&buf, newView(o)); err != nil {
		return "", "", fmt.Errorf("notification: render confirmation: %w", err)
	}
	return fmt.Sprintf("%s - Order confirmation #%s", shopName, shortRef(o.ID)), buf.String(), nil
}

func renderStatusChange(o *domorder.Order) (subject, body string, err error) {
	var buf bytes.Buffer
	if err := statusTmpl.Execute(&buf, newView(o)); err != nil {
		return "", "", fmt.Errorf("notification: render status: %w", err)
	}
	return fmt.Sprintf("%s - Order #%s is %s", shopName, shortRef(o.ID), o.Status), buf.String(), nil
}
