package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"budgetly/internal/analyzer"
	"budgetly/internal/cache"
	"budgetly/internal/core"
	applog "budgetly/internal/log"
	"budgetly/internal/store"
)

// AnalysisStore is what the analysis needs from the data layer.
type AnalysisStore interface {
	store.BudgetStore
	store.ExpenseStore
	store.GoalStore
}

// AnalysisService runs the expense analyzer over the current calendar month.
type AnalysisService struct {
	store    AnalysisStore
	analyzer *analyzer.Analyzer
	loc      *time.Location
	now      func() time.Time
	reports  cache.Cache[analyzer.Report]

	// generations counts invalidations per user. A report is cached only if
	// its user's generation did not move while it was being built.
	mu          sync.Mutex
	generations map[int64]uint64
}

// NewAnalysisService builds the service. reports may be nil to disable caching;
// a nil loc means UTC.
func NewAnalysisService(st AnalysisStore, a *analyzer.Analyzer, loc *time.Location, reports cache.Cache[analyzer.Report]) *AnalysisService {
	if loc == nil {
		loc = time.UTC
	}
	return &AnalysisService{
		store:       st,
		analyzer:    a,
		loc:         loc,
		now:         time.Now,
		reports:     reports,
		generations: make(map[int64]uint64),
	}
}

// CurrentMonth returns the year and month of now in the service location.
func (s *AnalysisService) CurrentMonth() (int, int) {
	now := s.now().In(s.loc)
	return now.Year(), int(now.Month())
}

// Analyze analyzes userID's current month.
func (s *AnalysisService) Analyze(ctx context.Context, userID int64) (analyzer.Report, error) {
	year, month := s.CurrentMonth()
	return s.AnalyzeMonth(ctx, userID, year, month)
}

// AnalyzeMonth returns core.ErrNoBudget when the user never set a budget.
func (s *AnalysisService) AnalyzeMonth(ctx context.Context, userID int64, year, month int) (analyzer.Report, error) {
	key := reportKey(userID, year, month)
	gen := s.generation(userID)
	if s.reports != nil {
		if r, ok := s.reports.Get(key); ok {
			slog.DebugContext(ctx, "Analysis served from cache", applog.FieldComponent, applog.ComponentAnalysis, "user_id", userID)
			return r, nil
		}
	}

	var (
		budget   *core.Budget
		expenses []core.Expense
		goals    []core.Goal
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b, err := s.store.GetBudget(gctx, userID)
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load budget: %w", err)
		}
		budget = &b
		return nil
	})
	g.Go(func() error {
		var err error
		if expenses, err = s.store.ListExpenses(gctx, userID, year, month); err != nil {
			return fmt.Errorf("load expenses: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if goals, err = s.store.ListGoals(gctx, userID); err != nil {
			return fmt.Errorf("load goals: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return analyzer.Report{}, err
	}

	report, err := s.analyzer.Analyze(budget, expenses, goals)
	if err != nil {
		return analyzer.Report{}, err
	}

	s.cacheReport(userID, gen, key, report)

	slog.InfoContext(ctx, "Expenses analyzed",
		applog.FieldComponent, applog.ComponentAnalysis,
		"user_id", userID,
		"year", year,
		"month", month,
		"expenses", len(expenses),
		"total_spent", report.TotalSpent.Cents)
	return report, nil
}

// Invalidate drops every cached report of userID. Reports still being built
// from data read before the call are not cached.
func (s *AnalysisService) Invalidate(userID int64) {
	if s == nil || s.reports == nil {
		return
	}
	s.mu.Lock()
	s.generations[userID]++
	s.mu.Unlock()
	s.reports.DeletePrefix(fmt.Sprintf("user:%d:", userID))
}

func (s *AnalysisService) generation(userID int64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[userID]
}

// cacheReport stores report unless userID was invalidated after gen was read.
func (s *AnalysisService) cacheReport(userID int64, gen uint64, key string, report analyzer.Report) {
	if s.reports == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generations[userID] != gen {
		return
	}
	s.reports.Set(key, report)
}

func reportKey(userID int64, year, month int) string {
	return fmt.Sprintf("user:%d:%04d-%02d", userID, year, month)
}
