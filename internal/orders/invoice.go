package orders

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/printforge/printforge/internal/pricing"
)

var inrPrinter = message.NewPrinter(language.MustParse("en-IN"))

// FormatINR renders an amount with Indian digit grouping (1,18,000.00).
func FormatINR(amount float64) string {
	return inrPrinter.Sprintf("₹%v", number.Decimal(amount,
		number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}

// RenderInvoiceText produces the plain-text invoice body attached to
// order confirmation mail. Line items mirror the frozen snapshot's audit
// trail so the customer sees exactly what was charged and why.
func RenderInvoiceText(order Order, breakdown pricing.Breakdown) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Invoice for order %s\n", order.OrderNumber)
	fmt.Fprintf(&b, "Billed to: %s <%s>\n", order.Customer.Name, order.Customer.Email)
	fmt.Fprintf(&b, "Created: %s\n\n", order.CreatedAt.Format("02 Jan 2006"))

	fmt.Fprintf(&b, "Base price        %s\n", FormatINR(breakdown.BasePrice))
	for _, mod := range breakdown.Applied {
		fmt.Fprintf(&b, "  %-15s %s -> %s (%s)\n",
			mod.Type, FormatINR(mod.BeforeAmount), FormatINR(mod.AfterAmount), mod.Source)
	}
	fmt.Fprintf(&b, "Unit price        %s x %d\n", FormatINR(breakdown.UnitPrice), breakdown.Quantity)
	fmt.Fprintf(&b, "Subtotal          %s\n", FormatINR(breakdown.Subtotal))
	fmt.Fprintf(&b, "GST (%.1f%%)        %s\n", breakdown.GSTPercentage, FormatINR(breakdown.GSTAmount))
	fmt.Fprintf(&b, "Total payable     %s\n", FormatINR(breakdown.TotalPayable))
	return b.String()
}
