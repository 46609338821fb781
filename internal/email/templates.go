package email

import (
	"bytes"
	"html/template"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ReceiptLine is one order line as shown in the receipt.
type ReceiptLine struct {
	Name     string
	Quantity int
	Price    decimal.Decimal
}

// PaymentReceipt is everything the payment confirmation email shows.
type PaymentReceipt struct {
	OrderID       string
	CustomerName  string
	PlacedAt      time.Time
	Lines         []ReceiptLine
	ItemsPrice    decimal.Decimal
	ShippingPrice decimal.Decimal
	TaxPrice      decimal.Decimal
	TotalPrice    decimal.Decimal
	PaymentMethod string
	Address       []string
}

var receiptTemplate = template.Must(template.New("receipt").Funcs(template.FuncMap{
	"money": formatMoney,
	"date":  func(t time.Time) string { return t.UTC().Format("2006-01-02") },
}).Parse(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<h1 style="font-size: 24px;">Thanks for shopping with us</h1>
	<p>Hi {{.CustomerName}},</p>
	<p>We have finished processing your order.</p>
	<h2 style="font-size: 18px;">[Order {{.OrderID}}] ({{date .PlacedAt}})</h2>
	<table style="width: 100%; border-collapse: collapse; margin: 20px 0;">
		<thead>
			<tr style="background: #f8f9fa;">
				<th style="padding: 12px; text-align: left;">Product</th>
				<th style="padding: 12px; text-align: center;">Quantity</th>
				<th style="padding: 12px; text-align: right;">Price</th>
			</tr>
		</thead>
		<tbody>
			{{- range .Lines}}
			<tr>
				<td style="padding: 12px; border-bottom: 1px solid #eee;">{{.Name}}</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: center;">{{.Quantity}}</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">${{money .Price}}</td>
			</tr>
			{{- end}}
		</tbody>
		<tfoot>
			<tr><td colspan="2">Items Price:</td><td style="text-align: right;">${{money .ItemsPrice}}</td></tr>
			<tr><td colspan="2">Shipping Price:</td><td style="text-align: right;">${{money .ShippingPrice}}</td></tr>
			<tr><td colspan="2">Tax Price:</td><td style="text-align: right;">${{money .TaxPrice}}</td></tr>
			<tr><td colspan="2"><strong>Total Price:</strong></td><td style="text-align: right;"><strong>${{money .TotalPrice}}</strong></td></tr>
			<tr><td colspan="2">Payment Method:</td><td style="text-align: right;">{{.PaymentMethod}}</td></tr>
		</tfoot>
	</table>
	<h2 style="font-size: 18px;">Shipping address</h2>
	<p>
		{{- range $i, $line := .Address}}{{if $i}}<br/>{{end}}{{$line}}{{end -}}
	</p>
	<hr style="border: none; border-top: 1px solid #eee; margin: 30px 0;">
	<p style="font-size: 12px; color: #999;">Thanks for shopping with us.</p>
</body>
</html>`))

// BuildPaymentReceiptBody renders the HTML body of the payment email.
// Customer-supplied text is escaped.
func BuildPaymentReceiptBody(r PaymentReceipt) (string, error) {
	var buf bytes.Buffer
	if err := receiptTemplate.Execute(&buf, r); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// formatMoney renders an amount with two decimals and comma separators.
func formatMoney(d decimal.Decimal) string {
	s := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac := s[:len(s)-3], s[len(s)-3:]

	var result strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			result.WriteByte(',')
		}
		result.WriteRune(c)
	}
	return sign + result.String() + frac
}
