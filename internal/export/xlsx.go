package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"mess/internal/core"
)

const (
	summarySheet = "Summary"
	billsSheet   = "Bills"
	inputsSheet  = "Expenses"
)

// XLSX renders a workbook with the overview, the per-member bills and the
// expense inputs of one calculation.
func XLSX(entry core.HistoryEntry) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(billsSheet); err != nil {
		return nil, fmt.Errorf("add bills sheet: %w", err)
	}
	if _, err := f.NewSheet(inputsSheet); err != nil {
		return nil, fmt.Errorf("add expenses sheet: %w", err)
	}

	o := entry.Overview
	summary := [][]any{
		{"Mess Bill"},
		{},
		{"Calculation", entry.ID},
		{"Calculated At", entry.CreatedAt.Format("2006-01-02 15:04")},
		{"Total Members", o.TotalMembers},
		{"Total Meals", o.TotalMeals},
		{"Meal Rate", o.MealRate},
		{"Establishment Charge", o.EstablishmentCharge},
	}
	if err := writeRows(f, summarySheet, summary); err != nil {
		return nil, err
	}

	bills := [][]any{{"Member", "Guest Only", "Meals", "Effective Meals", "Meal Cost",
		"Establishment", "Guest", "Fine", "Total Bill", "Deposits", "Outstanding"}}
	for _, r := range entry.Results {
		bills = append(bills, []any{r.Name, r.IsGuestOnly, r.Meals, r.EffectiveMeals, r.MealCost,
			r.EstablishmentCharge, r.Guest, r.Fine, r.TotalBill, r.Deposits, r.Outstanding})
	}
	if err := writeRows(f, billsSheet, bills); err != nil {
		return nil, err
	}

	e := entry.Expenses
	inputs := [][]any{
		{"Item", "Amount"},
		{"Rice", e.Rice},
		{"Marketing", e.Marketing},
		{"Gas", e.Gas},
		{"Paper", e.Paper},
		{"Other", e.Other},
		{"Cook Charge", e.CookCharge},
		{"Bound Meal", e.BoundMeal},
	}
	if err := writeRows(f, inputsSheet, inputs); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		for j, v := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("set %s!%s: %w", sheet, cell, err)
			}
		}
	}
	return nil
}
