package core

import "math"

// Calculate apportions the period's expenses across members.
//
// Marketing costs (rice, marketing, gas) less the guest charges collected are
// divided by the total effective meals to get the meal rate. Overhead (cook,
// paper, other) is split evenly across non-guest members. Every non-guest
// member is credited at least BoundMeal meals. Guest-only members pay their
// guest charges and fines only.
//
// Results are returned in input order. TotalBill is left unrounded; only
// Outstanding is rounded (half away from zero).
func Calculate(members []Member, exp ExpenseInputs) (Calculation, error) {
	if len(members) == 0 {
		return Calculation{}, ErrEmptyMembers
	}

	var (
		nonGuest   int
		guestTotal float64
		totalMeals float64
	)
	effective := make([]float64, len(members))
	for i, m := range members {
		guestTotal += m.Guest
		if m.IsGuestOnly {
			continue
		}
		nonGuest++
		effective[i] = math.Max(m.Meals, exp.BoundMeal)
		totalMeals += effective[i]
	}
	if nonGuest == 0 {
		return Calculation{}, ErrNoBillableMembers
	}
	if totalMeals == 0 {
		return Calculation{}, ErrZeroMeals
	}

	mealRate := (exp.MarketingTotal() - guestTotal) / totalMeals
	establishment := exp.OverheadTotal() / float64(nonGuest)

	results := make([]BillResult, len(members))
	for i, m := range members {
		r := BillResult{Member: m, EffectiveMeals: effective[i]}
		if !m.IsGuestOnly {
			r.MealCost = effective[i] * mealRate
			r.EstablishmentCharge = establishment
		}
		r.TotalBill = r.MealCost + r.EstablishmentCharge + m.Guest + m.Fine
		r.Outstanding = RoundOutstanding(r.TotalBill - m.Deposits)
		results[i] = r
	}

	return Calculation{
		Results: results,
		Overview: Overview{
			TotalMeals:          totalMeals,
			MealRate:            mealRate,
			TotalMembers:        nonGuest,
			EstablishmentCharge: establishment,
		},
	}, nil
}

// RoundOutstanding rounds a balance to the nearest whole currency unit,
// halves away from zero.
func RoundOutstanding(v float64) float64 {
	r := math.Round(v)
	if r == 0 {
		return 0 // no negative zero in output
	}
	return r
}

// NonGuestCount returns the number of members who share overhead.
func NonGuestCount(members []Member) int {
	n := 0
	for _, m := range members {
		if !m.IsGuestOnly {
			n++
		}
	}
	return n
}
