package notify

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"mess/internal/core"
)

var (
	ErrInvalidRecipient = errors.New("invalid recipient email")
	ErrUnknownMember    = errors.New("member not in calculation")
)

// Request is one member's bill email. The bill and overview blocks are
// preformatted plain text.
type Request struct {
	To             string `json:"to"`
	MemberName     string `json:"memberName"`
	Month          string `json:"month"`
	IndividualBill string `json:"individualBill"`
	Overview       string `json:"overview"`
	TotalAmount    string `json:"totalAmount"`
}

// NewRequest builds the email for memberName from a recorded calculation.
func NewRequest(entry core.HistoryEntry, memberName, to, month string) (Request, error) {
	if _, err := mail.ParseAddress(to); err != nil {
		return Request{}, fmt.Errorf("%q: %w", to, ErrInvalidRecipient)
	}
	for _, r := range entry.Results {
		if strings.EqualFold(r.Name, strings.TrimSpace(memberName)) {
			return Request{
				To:             to,
				MemberName:     r.Name,
				Month:          month,
				IndividualBill: IndividualBill(r),
				Overview:       OverviewText(entry.Overview),
				TotalAmount:    core.FormatAmount(r.Outstanding),
			}, nil
		}
	}
	return Request{}, fmt.Errorf("%q: %w", memberName, ErrUnknownMember)
}

// IndividualBill renders one member's breakdown.
func IndividualBill(r core.BillResult) string {
	var b strings.Builder
	b.WriteString("Individual Bill:\n")
	fmt.Fprintf(&b, "Meals: %s\n", trimFloat(r.EffectiveMeals))
	fmt.Fprintf(&b, "Meal Cost: %s\n", core.FormatRupees(r.MealCost))
	fmt.Fprintf(&b, "Establishment Charge: %s\n", core.FormatRupees(r.EstablishmentCharge))
	fmt.Fprintf(&b, "Guest Charges: %s\n", core.FormatRupees(r.Guest))
	fmt.Fprintf(&b, "Fine: %s\n", core.FormatRupees(r.Fine))
	fmt.Fprintf(&b, "Total Bill: %s\n", core.FormatRupees(r.TotalBill))
	fmt.Fprintf(&b, "Deposits: %s\n", core.FormatRupees(r.Deposits))
	fmt.Fprintf(&b, "Outstanding: %s", core.FormatRupees(r.Outstanding))
	return b.String()
}

// OverviewText renders the mess-wide figures.
func OverviewText(o core.Overview) string {
	var b strings.Builder
	b.WriteString("Overview:\n")
	fmt.Fprintf(&b, "Total Members: %d\n", o.TotalMembers)
	fmt.Fprintf(&b, "Total Meals: %s\n", trimFloat(o.TotalMeals))
	fmt.Fprintf(&b, "Meal Rate: %s\n", core.FormatRupees(o.MealRate))
	fmt.Fprintf(&b, "Establishment Charge (per head): %s", core.FormatRupees(o.EstablishmentCharge))
	return b.String()
}

func (r Request) Subject() string {
	return "Mess Bill - " + r.Month
}

func (r Request) Body() string {
	return fmt.Sprintf(`Hello %s,

Your mess bill for %s has been calculated.

%s

%s

Total Amount: Rs. %s

Thank you for your cooperation.

Best regards,
Mess Management`, r.MemberName, r.Month, r.IndividualBill, r.Overview, r.TotalAmount)
}

func trimFloat(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
