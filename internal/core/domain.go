package core

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

type (
	// Member is one person's ledger row for the billing period.
	Member struct {
		Name        string  `json:"name"`
		Meals       float64 `json:"meals"`
		Deposits    float64 `json:"deposits"`
		Guest       float64 `json:"guest"` // guest-meal charges hosted by this member
		Fine        float64 `json:"fine"`
		IsGuestOnly bool    `json:"isGuest"`
	}

	// ExpenseInputs are the period-scoped costs shared by the mess.
	ExpenseInputs struct {
		Rice       float64 `json:"rice" yaml:"rice"`
		Marketing  float64 `json:"marketing" yaml:"marketing"`
		Gas        float64 `json:"gas" yaml:"gas"`
		Paper      float64 `json:"paper" yaml:"paper"`
		Other      float64 `json:"other" yaml:"other"`
		CookCharge float64 `json:"cookCharge" yaml:"cook_charge"` // resolved total, see CookCharge
		BoundMeal  float64 `json:"boundMeal" yaml:"bound_meal"`
	}

	// BillResult is a member plus the amounts derived for them.
	BillResult struct {
		Member
		EffectiveMeals      float64 `json:"effectiveMeals"`
		MealCost            float64 `json:"mealCost"`
		EstablishmentCharge float64 `json:"establishmentCharge"`
		TotalBill           float64 `json:"totalBill"`
		Outstanding         float64 `json:"outstanding"`
	}

	// Overview summarizes a calculation.
	Overview struct {
		TotalMeals          float64 `json:"totalMeals"`
		MealRate            float64 `json:"mealRate"`
		TotalMembers        int     `json:"totalMembers"`
		EstablishmentCharge float64 `json:"establishmentCharge"`
	}

	// Calculation is the output of Calculate.
	Calculation struct {
		Results  []BillResult `json:"results"`
		Overview Overview     `json:"overview"`
	}

	// HistoryEntry is an immutable snapshot of one successful calculation.
	HistoryEntry struct {
		ID        string        `json:"id"`
		CreatedAt time.Time     `json:"createdAt"`
		Members   []Member      `json:"members"`
		Expenses  ExpenseInputs `json:"expenses"`
		Results   []BillResult  `json:"results"`
		Overview  Overview      `json:"overview"`
	}
)

// Calculation failures. All of them are input problems the user can fix.
var (
	ErrEmptyMembers      = errors.New("no members to bill")
	ErrNoBillableMembers = errors.New("at least one non-guest member is required")
	ErrZeroMeals         = errors.New("total meals cannot be zero")
)

// Roster and input validation failures.
var (
	ErrEmptyName       = errors.New("member name is required")
	ErrNameTooLong     = errors.New("member name too long")
	ErrDuplicateMember = errors.New("member already exists")
	ErrMemberNotFound  = errors.New("member not found")
	ErrNegativeMeals   = errors.New("meals cannot be negative")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidFormat   = errors.New("invalid file format")
)

// MaxNameLength bounds member names in bytes.
const MaxNameLength = 100

// IsValidationError reports whether err is caused by bad user input rather
// than a system fault.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrEmptyMembers, ErrNoBillableMembers, ErrZeroMeals,
		ErrEmptyName, ErrNameTooLong, ErrDuplicateMember, ErrNegativeMeals,
		ErrInvalidAmount, ErrInvalidFormat,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (m Member) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return ErrEmptyName
	}
	if len(m.Name) > MaxNameLength {
		return fmt.Errorf("%w (max %d characters)", ErrNameTooLong, MaxNameLength)
	}
	for _, v := range []float64{m.Meals, m.Deposits, m.Guest, m.Fine} {
		if !finite(v) {
			return fmt.Errorf("member %q: %w", m.Name, ErrInvalidAmount)
		}
	}
	if m.Meals < 0 {
		return fmt.Errorf("member %q: %w", m.Name, ErrNegativeMeals)
	}
	return nil
}

func (e ExpenseInputs) Validate() error {
	fields := map[string]float64{
		"rice":        e.Rice,
		"marketing":   e.Marketing,
		"gas":         e.Gas,
		"paper":       e.Paper,
		"other":       e.Other,
		"cook charge": e.CookCharge,
		"bound meal":  e.BoundMeal,
	}
	for name, v := range fields {
		if !finite(v) {
			return fmt.Errorf("%s: %w", name, ErrInvalidAmount)
		}
	}
	if e.BoundMeal < 0 {
		return fmt.Errorf("bound meal: %w", ErrNegativeMeals)
	}
	return nil
}

// MarketingTotal is the per-meal cost pool.
func (e ExpenseInputs) MarketingTotal() float64 {
	return e.Rice + e.Marketing + e.Gas
}

// OverheadTotal is the per-head cost pool.
func (e ExpenseInputs) OverheadTotal() float64 {
	return e.CookCharge + e.Paper + e.Other
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
