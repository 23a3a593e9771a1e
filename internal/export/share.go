package export

import (
	"fmt"
	"strings"

	"mess/internal/core"
)

// ShareText renders a plain-text summary suitable for chat apps.
func ShareText(entry core.HistoryEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Mess Bill (%s)\n", entry.CreatedAt.Format("02 Jan 2006"))
	o := entry.Overview
	fmt.Fprintf(&b, "Members: %d | Meals: %.2f | Meal Rate: %s | Establishment: %s\n\n",
		o.TotalMembers, o.TotalMeals, core.FormatRupees(o.MealRate), core.FormatRupees(o.EstablishmentCharge))
	for _, r := range entry.Results {
		label := "due"
		amount := r.Outstanding
		switch {
		case amount < 0:
			label = "refund"
			amount = -amount
		case amount == 0:
			label = "settled"
		}
		fmt.Fprintf(&b, "%s: total %s, paid %s, %s %s\n",
			r.Name, core.FormatRupees(r.TotalBill), core.FormatRupees(r.Deposits), label, core.FormatRupees(amount))
	}
	return strings.TrimRight(b.String(), "\n")
}
