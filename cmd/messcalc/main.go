// Command messcalc bills a member file against a period expense file
// without running the server.
//
//	messcalc -members members.json -expenses period.yaml [-format table|json]
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"mess/internal/core"
)

const (
	exitOK = iota
	exitUsage
	exitCalculation
)

// periodFile is the YAML expense file. cook_per_head is used only when
// cook_charge is zero.
type periodFile struct {
	core.ExpenseInputs `yaml:",inline"`
	CookPerHead        rate `yaml:"cook_per_head"`
}

// rate is a non-negative amount written the way it is typed into the form,
// so "12,5" and "12.5" are equal.
type rate float64

func (r *rate) UnmarshalYAML(n *yaml.Node) error {
	v, err := core.ParseAmount(n.Value)
	if err != nil {
		return fmt.Errorf("line %d: %q: %w", n.Line, n.Value, err)
	}
	*r = rate(v)
	return nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("messcalc", flag.ContinueOnError)
	fs.SetOutput(stderr)
	membersPath := fs.String("members", "members.json", "member list exported from the app")
	expensesPath := fs.String("expenses", "period.yaml", "period expenses in YAML")
	format := fs.String("format", "table", "output format: table or json")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if *format != "table" && *format != "json" {
		fmt.Fprintf(stderr, "unknown format %q\n", *format)
		return exitUsage
	}

	members, err := loadMembers(*membersPath)
	if err != nil {
		fmt.Fprintf(stderr, "members: %v\n", err)
		return exitUsage
	}
	exp, err := loadExpenses(*expensesPath, core.NonGuestCount(members))
	if err != nil {
		fmt.Fprintf(stderr, "expenses: %v\n", err)
		return exitUsage
	}

	calc, err := core.Calculate(members, exp)
	if err != nil {
		fmt.Fprintf(stderr, "calculation failed: %v\n", err)
		return exitCalculation
	}

	if *format == "json" {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(calc); err != nil {
			fmt.Fprintf(stderr, "write output: %v\n", err)
			return exitUsage
		}
		return exitOK
	}
	if err := writeTable(stdout, calc); err != nil {
		fmt.Fprintf(stderr, "write output: %v\n", err)
		return exitUsage
	}
	return exitOK
}

func loadMembers(path string) ([]core.Member, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return core.DecodeMembers(data)
}

func loadExpenses(path string, nonGuest int) (core.ExpenseInputs, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.ExpenseInputs{}, err
	}
	var pf periodFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return core.ExpenseInputs{}, fmt.Errorf("parse %s: %w", path, err)
	}
	exp := pf.ExpenseInputs
	if exp.CookCharge == 0 && pf.CookPerHead != 0 {
		var cook core.CookCharge
		cook.SetPerHead(float64(pf.CookPerHead), nonGuest)
		exp.CookCharge = cook.Total
	}
	if err := exp.Validate(); err != nil {
		return core.ExpenseInputs{}, err
	}
	return exp, nil
}

func writeTable(w io.Writer, calc core.Calculation) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Name\tMeals\tMeal Cost\tEstablishment\tGuest\tFine\tTotal\tDeposits\tOutstanding\t")
	for _, r := range calc.Results {
		fmt.Fprintf(tw, "%s\t%g\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			r.Name, r.EffectiveMeals,
			core.FormatAmount(r.MealCost), core.FormatAmount(r.EstablishmentCharge),
			core.FormatAmount(r.Guest), core.FormatAmount(r.Fine),
			core.FormatAmount(r.TotalBill), core.FormatAmount(r.Deposits),
			core.FormatAmount(r.Outstanding))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	o := calc.Overview
	_, err := fmt.Fprintf(w, "\nMembers: %d  Total meals: %g  Meal rate: %s  Establishment: %s\n",
		o.TotalMembers, o.TotalMeals, core.FormatRupees(o.MealRate), core.FormatRupees(o.EstablishmentCharge))
	return err
}
