// Package analyzer turns a month of expenses into a spend report with advice.
//
// Analyze is a pure function: callers fetch the budget, the expenses dated in
// the current month and the goals, and pass them in.
package analyzer

import (
	"fmt"

	"github.com/shopspring/decimal"

	"budgetly/internal/core"
)

// DefaultOverspendRatio is the share of the monthly budget a single category
// may reach before it gets an overspend message.
var DefaultOverspendRatio = decimal.RequireFromString("0.30")

const (
	MsgExceeded     = "You have exceeded your monthly budget."
	MsgWithinBudget = "You are within your monthly budget."
)

// Report is the outcome of one analysis run.
type Report struct {
	TotalSpent       core.Money
	RemainingBudget  core.Money
	Advice           []string
	ExpensesAnalyzed []core.Expense
	// NoExpenses is set when the month had no expenses at all.
	NoExpenses bool
}

// Analyzer holds the tunables of the analysis. The zero value uses
// DefaultOverspendRatio.
type Analyzer struct {
	OverspendRatio decimal.Decimal
}

// New returns an analyzer flagging categories above ratio × budget. A ratio
// that is not positive selects DefaultOverspendRatio.
func New(ratio decimal.Decimal) *Analyzer {
	if !ratio.IsPositive() {
		ratio = DefaultOverspendRatio
	}
	return &Analyzer{OverspendRatio: ratio}
}

// Analyze runs the default analyzer.
func Analyze(budget *core.Budget, expenses []core.Expense, goals []core.Goal) (Report, error) {
	return (&Analyzer{}).Analyze(budget, expenses, goals)
}

// Analyze computes totals and advice. A nil budget yields core.ErrNoBudget.
// Goal progress is measured against the month's total spend, not against
// money saved toward the goal.
func (a *Analyzer) Analyze(budget *core.Budget, expenses []core.Expense, goals []core.Goal) (Report, error) {
	if budget == nil {
		return Report{}, core.ErrNoBudget
	}

	total := core.TotalSpent(expenses)
	report := Report{
		TotalSpent:       total,
		RemainingBudget:  budget.MonthlyBudget.Sub(total),
		ExpensesAnalyzed: expenses,
		NoExpenses:       len(expenses) == 0,
	}
	if report.ExpensesAnalyzed == nil {
		report.ExpensesAnalyzed = []core.Expense{}
	}

	advice := make([]string, 0, 1+len(goals))
	if total.Cents > budget.MonthlyBudget.Cents {
		advice = append(advice, MsgExceeded)
	} else {
		advice = append(advice, MsgWithinBudget)
	}

	for _, g := range goals {
		progress := g.TargetAmount.Sub(total)
		if progress.Cents <= 0 {
			advice = append(advice, GoalReachedMessage(g.Name))
		} else {
			advice = append(advice, GoalShortfallMessage(g.Name, progress))
		}
	}

	threshold := budget.MonthlyBudget.Decimal().Mul(a.ratio())
	for _, c := range core.SumByCategory(expenses) {
		if c.Amount.Decimal().GreaterThan(threshold) {
			advice = append(advice, OverspendMessage(c.Name))
		}
	}

	report.Advice = advice
	return report, nil
}

func (a *Analyzer) ratio() decimal.Decimal {
	if a == nil || a.OverspendRatio.IsZero() {
		return DefaultOverspendRatio
	}
	return a.OverspendRatio
}

func GoalReachedMessage(goal string) string {
	return fmt.Sprintf("Congratulations! You have reached your goal: %s.", goal)
}

func GoalShortfallMessage(goal string, need core.Money) string {
	return fmt.Sprintf("You need an additional %s to reach your goal: %s.", need, goal)
}

func OverspendMessage(category string) string {
	return fmt.Sprintf("You are spending too much on %s. Consider reducing expenses in this category.", category)
}
