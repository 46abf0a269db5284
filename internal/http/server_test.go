package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"budgetly/internal/analyzer"
	"budgetly/internal/auth"
	"budgetly/internal/cache"
	"budgetly/internal/core"
	"budgetly/internal/notify"
	"budgetly/internal/services"
	"budgetly/internal/store/memory"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (s *recordingSender) Send(_ context.Context, n notify.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, n)
	return nil
}

func (s *recordingSender) last(kind notify.Kind) (notify.Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.sent) - 1; i >= 0; i-- {
		if s.sent[i].Kind == kind {
			return s.sent[i], true
		}
	}
	return notify.Notification{}, false
}

type testEnv struct {
	t      *testing.T
	srv    *Server
	sender *recordingSender
}

func newTestEnv(t *testing.T, ratePerMinute int) *testEnv {
	t.Helper()
	st := memory.New()
	issuer := auth.NewIssuer("test-secret-0123456789", time.Hour)
	reports := cache.NewLRUCache[analyzer.Report](100, time.Minute)
	analysis := services.NewAnalysisService(st, analyzer.New(analyzer.DefaultOverspendRatio), time.UTC, reports)
	sender := &recordingSender{}

	srv := NewServer(":0", Deps{
		Accounts:           services.NewAccountService(st, issuer, sender, analysis, time.Hour),
		Budgets:            services.NewBudgetService(st, analysis),
		Expenses:           services.NewExpenseService(st, analysis, analysis.CurrentMonth),
		Goals:              services.NewGoalService(st, analysis),
		Categories:         services.NewCategoryService(st),
		Analysis:           analysis,
		Issuer:             issuer,
		CacheStats:         reports.Stats,
		CORSAllowedOrigins: []string{"http://localhost:3000"},
		RateLimitPerMinute: ratePerMinute,
	})
	t.Cleanup(func() { srv.limiter.Stop() })
	return &testEnv{t: t, srv: srv, sender: sender}
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			if err := json.NewEncoder(&buf).Encode(b); err != nil {
				e.t.Fatalf("encode body: %v", err)
			}
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) register(name, email string) string {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/api/register", "", map[string]string{
		"name": name, "email": email, "password": "secret-password",
	})
	if rec.Code != http.StatusCreated {
		e.t.Fatalf("register %s: status=%d body=%s", email, rec.Code, rec.Body.String())
	}
	var out authView
	decode(e.t, rec, &out)
	return out.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func today() string {
	return time.Now().UTC().Format(core.DateLayout)
}

func TestHealthReadyMetrics(t *testing.T) {
	env := newTestEnv(t, 60)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := env.do(http.MethodGet, path, "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rec.Code)
		}
	}

	rec := env.do(http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status=%d", rec.Code)
	}
	for _, name := range []string{"budgetly_http_requests_total 2", "budgetly_rate_limit_clients", "budgetly_analysis_cache_hits_total"} {
		if !strings.Contains(rec.Body.String(), name) {
			t.Errorf("metrics missing %q:\n%s", name, rec.Body.String())
		}
	}
}

func TestReadyReportsStorageFailure(t *testing.T) {
	env := newTestEnv(t, 60)
	env.srv.deps.Ready = func(context.Context) error { return fmt.Errorf("database is locked") }

	if rec := env.do(http.MethodGet, "/readyz", "", nil); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status=%d, want 503", rec.Code)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t, 60)
	env.register("Ann", "ann@example.com")

	rec := env.do(http.MethodPost, "/api/register", "", map[string]string{
		"name": "Ann again", "email": "ANN@example.com", "password": "secret-password",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("duplicate register status=%d", rec.Code)
	}
	var verr validationBody
	decode(t, rec, &verr)
	if len(verr.Errors["email"]) == 0 {
		t.Errorf("expected email field error, got %v", verr.Errors)
	}

	rec = env.do(http.MethodPost, "/api/login", "", map[string]string{"email": "ann@example.com", "password": "secret-password"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status=%d body=%s", rec.Code, rec.Body.String())
	}
	var login authView
	decode(t, rec, &login)
	if login.Token == "" || login.User.Email != "ann@example.com" {
		t.Errorf("login = %+v", login)
	}

	rec = env.do(http.MethodPost, "/api/login", "", map[string]string{"email": "ann@example.com", "password": "wrong-password"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login status=%d", rec.Code)
	}

	rec = env.do(http.MethodGet, "/api/user", login.Token, nil)
	var me userView
	decode(t, rec, &me)
	if rec.Code != http.StatusOK || me.Name != "Ann" {
		t.Errorf("GET /api/user = %d %+v", rec.Code, me)
	}
}

func TestAuthenticationRequired(t *testing.T) {
	env := newTestEnv(t, 60)

	tests := []struct {
		name  string
		path  string
		token string
	}{
		{"no token", "/api/user", ""},
		{"garbage token", "/api/user", "not-a-jwt"},
		{"analysis alias", "/analyze-expenses", ""},
		{"analysis", "/api/analyze-expenses", "x.y.z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodGet, tt.path, tt.token, nil)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status=%d, want 401", rec.Code)
			}
		})
	}
}

func TestAnalyzeExpenses(t *testing.T) {
	env := newTestEnv(t, 1000)
	token := env.register("Ann", "ann@example.com")

	rec := env.do(http.MethodGet, "/api/analyze-expenses", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("no budget: status=%d", rec.Code)
	}
	var errBody errorBody
	decode(t, rec, &errBody)
	if errBody.Error != "No budget set for this user" {
		t.Errorf("no budget error = %q", errBody.Error)
	}

	if rec := env.do(http.MethodPost, "/api/budget", token, map[string]int64{"monthly_budget": 100000}); rec.Code != http.StatusOK {
		t.Fatalf("set budget status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = env.do(http.MethodGet, "/api/analyze-expenses", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("no expenses: status=%d", rec.Code)
	}
	var empty map[string]any
	decode(t, rec, &empty)
	if empty["error"] != "No expenses found for the current month" {
		t.Errorf("no expenses body = %v", empty)
	}
	if debug, ok := empty["debug"].([]any); !ok || len(debug) != 0 {
		t.Errorf("debug = %#v, want empty array", empty["debug"])
	}

	for _, e := range []map[string]any{
		{"category": "food", "amount": 40000, "date": today()},
		{"category": "transport", "amount": 35000, "date": today(), "description": "train pass"},
	} {
		if rec := env.do(http.MethodPost, "/api/expenses", token, e); rec.Code != http.StatusCreated {
			t.Fatalf("create expense status=%d body=%s", rec.Code, rec.Body.String())
		}
	}
	if rec := env.do(http.MethodPost, "/api/goals", token, map[string]any{"name": "Vacation", "target_amount": 50000, "deadline": "2030-01-01"}); rec.Code != http.StatusCreated {
		t.Fatalf("create goal status=%d body=%s", rec.Code, rec.Body.String())
	}

	for _, path := range []string{"/api/analyze-expenses", "/analyze-expenses"} {
		rec = env.do(http.MethodGet, path, token, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rec.Code)
		}
		var got analysisView
		decode(t, rec, &got)

		if got.TotalSpent != 75000 || got.RemainingBudget != 25000 {
			t.Errorf("%s totals = %d/%d, want 75000/25000", path, got.TotalSpent, got.RemainingBudget)
		}
		want := []string{
			analyzer.MsgWithinBudget,
			analyzer.GoalReachedMessage("Vacation"),
			analyzer.OverspendMessage("food"),
			analyzer.OverspendMessage("transport"),
		}
		if !slices.Equal(got.Advice, want) {
			t.Errorf("%s advice = %q, want %q", path, got.Advice, want)
		}
		if len(got.ExpensesAnalyzed) != 2 || got.ExpensesAnalyzed[1].Description != "train pass" {
			t.Errorf("%s expenses_analyzed = %+v", path, got.ExpensesAnalyzed)
		}
	}

	// A new expense must not be hidden by the cached report.
	env.do(http.MethodPost, "/api/expenses", token, map[string]any{"category": "food", "amount": 30000, "date": today()})
	rec = env.do(http.MethodGet, "/api/analyze-expenses", token, nil)
	var after analysisView
	decode(t, rec, &after)
	if after.TotalSpent != 105000 || after.Advice[0] != analyzer.MsgExceeded {
		t.Errorf("after new expense: total=%d advice=%q", after.TotalSpent, after.Advice)
	}
}

func TestValidationErrors(t *testing.T) {
	env := newTestEnv(t, 1000)
	token := env.register("Ann", "ann@example.com")

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantFields []string
	}{
		{"expense fields", http.MethodPost, "/api/expenses", map[string]any{"category": "", "amount": -1, "date": "2025-02-30"}, []string{"category", "amount", "date"}},
		{"unknown field", http.MethodPost, "/api/expenses", `{"category":"food","amount":1,"date":"2025-01-01","tip":5}`, []string{"tip"}},
		{"malformed json", http.MethodPost, "/api/budget", `{"monthly_budget":`, []string{"body"}},
		{"negative budget", http.MethodPost, "/api/budget", map[string]any{"monthly_budget": -5}, []string{"monthly_budget"}},
		{"goal fields", http.MethodPost, "/api/goals", map[string]any{"name": "", "target_amount": -1, "deadline": "soon"}, []string{"name", "target_amount", "deadline"}},
		{"category priority", http.MethodPost, "/api/categories", map[string]any{"name": "Rent", "priority": -1}, []string{"priority"}},
		{"bad month query", http.MethodGet, "/api/expenses?month=13", nil, []string{"month"}},
		{"short new password", http.MethodPut, "/api/user/password", map[string]any{"current_password": "secret-password", "password": "short"}, []string{"password"}},
		{"wrong current password", http.MethodPut, "/api/user/password", map[string]any{"current_password": "nope-nope", "password": "long-enough"}, []string{"current_password"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(tt.method, tt.path, token, tt.body)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
			}
			var body validationBody
			decode(t, rec, &body)
			if body.Message == "" {
				t.Error("message is empty")
			}
			for _, f := range tt.wantFields {
				if len(body.Errors[f]) == 0 {
					t.Errorf("missing field error %q in %v", f, body.Errors)
				}
			}
		})
	}
}

func TestCrossUserIsolation(t *testing.T) {
	env := newTestEnv(t, 1000)
	ann := env.register("Ann", "ann@example.com")
	bob := env.register("Bob", "bob@example.com")

	rec := env.do(http.MethodPost, "/api/goals", ann, map[string]any{"name": "Car", "target_amount": 1000, "deadline": "2030-01-01"})
	var goal goalView
	decode(t, rec, &goal)

	rec = env.do(http.MethodPost, "/api/expenses", ann, map[string]any{"category": "food", "amount": 10, "date": today()})
	var expense expenseView
	decode(t, rec, &expense)

	rec = env.do(http.MethodPost, "/api/categories", ann, map[string]any{"name": "Food", "priority": 1})
	var category categoryView
	decode(t, rec, &category)

	tests := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodPut, fmt.Sprintf("/api/goals/%d", goal.ID), map[string]any{"name": "Mine", "target_amount": 1, "deadline": "2030-01-01"}},
		{http.MethodDelete, fmt.Sprintf("/api/goals/%d", goal.ID), nil},
		{http.MethodDelete, fmt.Sprintf("/api/expenses/%d", expense.ID), nil},
		{http.MethodPut, fmt.Sprintf("/api/categories/%d", category.ID), map[string]any{"name": "Mine", "priority": 0}},
		{http.MethodDelete, fmt.Sprintf("/api/categories/%d", category.ID), nil},
		{http.MethodDelete, "/api/goals/not-a-number", nil},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			if rec := env.do(tt.method, tt.path, bob, tt.body); rec.Code != http.StatusNotFound {
				t.Errorf("status=%d, want 404", rec.Code)
			}
		})
	}

	rec = env.do(http.MethodGet, "/api/goals", bob, nil)
	var bobGoals []goalView
	decode(t, rec, &bobGoals)
	if len(bobGoals) != 0 {
		t.Errorf("bob sees goals: %+v", bobGoals)
	}

	rec = env.do(http.MethodGet, "/api/expenses", ann, nil)
	var annExpenses []expenseView
	decode(t, rec, &annExpenses)
	if len(annExpenses) != 1 {
		t.Errorf("ann's expense was touched: %+v", annExpenses)
	}

	if rec := env.do(http.MethodDelete, fmt.Sprintf("/api/goals/%d", goal.ID), ann, nil); rec.Code != http.StatusNoContent {
		t.Errorf("owner delete status=%d", rec.Code)
	}
}

func TestBudgetUpsert(t *testing.T) {
	env := newTestEnv(t, 1000)
	token := env.register("Ann", "ann@example.com")

	if rec := env.do(http.MethodGet, "/api/budget", token, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("GET budget before set: status=%d", rec.Code)
	}

	var first, second budgetView
	decode(t, env.do(http.MethodPost, "/api/budget", token, map[string]int64{"monthly_budget": 1000}), &first)
	decode(t, env.do(http.MethodPost, "/api/budget", token, map[string]int64{"monthly_budget": 2500}), &second)
	if first.ID != second.ID {
		t.Errorf("upsert created a second budget: %d vs %d", first.ID, second.ID)
	}

	var got budgetView
	decode(t, env.do(http.MethodGet, "/api/budget", token, nil), &got)
	if got.MonthlyBudget != 2500 {
		t.Errorf("monthly_budget = %d, want 2500", got.MonthlyBudget)
	}
}

func TestCategoriesListedByPriority(t *testing.T) {
	env := newTestEnv(t, 1000)
	token := env.register("Ann", "ann@example.com")

	for _, c := range []map[string]any{
		{"name": "Fun", "priority": 3},
		{"name": "Rent", "priority": 0},
		{"name": "Food", "priority": 1},
	} {
		env.do(http.MethodPost, "/api/categories", token, c)
	}

	var cats []categoryView
	decode(t, env.do(http.MethodGet, "/api/categories", token, nil), &cats)
	var names []string
	for _, c := range cats {
		names = append(names, c.Name)
	}
	if !slices.Equal(names, []string{"Rent", "Food", "Fun"}) {
		t.Errorf("categories = %v", names)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	env := newTestEnv(t, 1000)
	env.register("Ann", "ann@example.com")

	rec := env.do(http.MethodPost, "/api/password/forgot", "", map[string]string{"email": "nobody@example.com"})
	if rec.Code != http.StatusOK {
		t.Fatalf("forgot unknown status=%d", rec.Code)
	}
	if _, ok := env.sender.last(notify.KindPasswordReset); ok {
		t.Fatal("no reset must be sent for an unknown address")
	}

	rec = env.do(http.MethodPost, "/api/password/forgot", "", map[string]string{"email": "ann@example.com"})
	if rec.Code != http.StatusOK {
		t.Fatalf("forgot status=%d", rec.Code)
	}
	n, ok := env.sender.last(notify.KindPasswordReset)
	if !ok || n.Token == "" || n.To != "ann@example.com" {
		t.Fatalf("reset notification = %+v, %v", n, ok)
	}

	rec = env.do(http.MethodPost, "/api/password/reset", "", map[string]string{"email": "ann@example.com", "token": "wrong", "password": "brand-new-password"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("wrong token status=%d", rec.Code)
	}

	rec = env.do(http.MethodPost, "/api/password/reset", "", map[string]string{"email": "ann@example.com", "token": n.Token, "password": "brand-new-password"})
	if rec.Code != http.StatusOK {
		t.Fatalf("reset status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = env.do(http.MethodPost, "/api/login", "", map[string]string{"email": "ann@example.com", "password": "brand-new-password"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login with new password status=%d", rec.Code)
	}

	rec = env.do(http.MethodPost, "/api/password/reset", "", map[string]string{"email": "ann@example.com", "token": n.Token, "password": "another-password"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("reused token status=%d, want 422", rec.Code)
	}
}

func TestDeleteAccount(t *testing.T) {
	env := newTestEnv(t, 1000)
	token := env.register("Ann", "ann@example.com")

	if rec := env.do(http.MethodDelete, "/api/user", token, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rec.Code)
	}
	if _, ok := env.sender.last(notify.KindAccountDeleted); !ok {
		t.Error("account_deleted notification not sent")
	}
	if rec := env.do(http.MethodGet, "/api/user", token, nil); rec.Code != http.StatusNotFound {
		t.Errorf("GET after delete status=%d, want 404", rec.Code)
	}

	// The token is still signed and unexpired; writes with it must not 500.
	writes := []struct {
		path string
		body any
	}{
		{"/api/expenses", map[string]any{"category": "food", "amount": 1, "date": today()}},
		{"/api/budget", map[string]any{"monthly_budget": 1}},
		{"/api/goals", map[string]any{"name": "Car", "target_amount": 1, "deadline": "2030-01-01"}},
		{"/api/categories", map[string]any{"name": "Food", "priority": 0}},
	}
	for _, w := range writes {
		if rec := env.do(http.MethodPost, w.path, token, w.body); rec.Code != http.StatusUnauthorized {
			t.Errorf("POST %s after delete status=%d, want 401", w.path, rec.Code)
		}
	}
}

func TestAmountAboveCapRejected(t *testing.T) {
	env := newTestEnv(t, 1000)
	token := env.register("Ann", "ann@example.com")

	rec := env.do(http.MethodPost, "/api/expenses", token, map[string]any{"category": "food", "amount": core.MaxAmount + 1, "date": today()})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var body validationBody
	decode(t, rec, &body)
	if len(body.Errors["amount"]) == 0 {
		t.Errorf("expected amount error, got %v", body.Errors)
	}
}

func TestWriteRateLimit(t *testing.T) {
	env := newTestEnv(t, 2)

	for i := 0; i < 2; i++ {
		env.do(http.MethodPost, "/api/login", "", map[string]string{"email": "x@example.com", "password": "whatever1"})
	}
	rec := env.do(http.MethodPost, "/api/login", "", map[string]string{"email": "x@example.com", "password": "whatever1"})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third write status=%d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}

	if rec := env.do(http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK {
		t.Errorf("reads are not limited: status=%d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, 60)

	req := httptest.NewRequest(http.MethodOptions, "/api/expenses", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	rec := httptest.NewRecorder()
	env.srv.Handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	env.srv.Handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("foreign origin allowed: %q", got)
	}
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t, 60)
	rec := env.do(http.MethodGet, "/api/nope", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("every response carries a request id")
	}
}
