package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gin-gorm-employees/internal/domain"
	"gin-gorm-employees/internal/transport/http/handler"
	"gin-gorm-employees/internal/transport/http/router"
)

// memRepo 内存实现，只用于 HTTP 层测试
type memRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]domain.Employee
	err    error // 非空时所有操作都返回它
}

func newMemRepo() *memRepo { return &memRepo{rows: map[int64]domain.Employee{}} }

func (m *memRepo) ListAll(context.Context) ([]domain.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.Employee, 0, len(m.rows))
	for _, e := range m.rows {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memRepo) GetByID(_ context.Context, id int64) (*domain.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	e, ok := m.rows[id]
	if !ok {
		return nil, errors.Wrapf(domain.ErrNotFound, "get employee %d", id)
	}
	return &e, nil
}

func (m *memRepo) Insert(_ context.Context, e *domain.Employee) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	if e.FullName == "" || e.Position == "" {
		return 0, errors.Wrap(domain.ErrValidation, "required")
	}
	m.nextID++
	e.ID = m.nextID
	m.rows[e.ID] = *e
	return e.ID, nil
}

func (m *memRepo) Update(_ context.Context, e *domain.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.rows[e.ID]; !ok {
		return errors.Wrapf(domain.ErrNotFound, "update employee %d", e.ID)
	}
	m.rows[e.ID] = *e
	return nil
}

func (m *memRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.rows[id]; !ok {
		return errors.Wrapf(domain.ErrNotFound, "delete employee %d", id)
	}
	delete(m.rows, id)
	return nil
}

type panicRepo struct{ domain.EmployeeRepository }

func (panicRepo) ListAll(context.Context) ([]domain.Employee, error) { panic("boom") }

func newEngine(t *testing.T, repo domain.EmployeeRepository, development bool) http.Handler {
	t.Helper()
	r, err := router.NewWebEngine(zap.NewNop(), router.Options{Development: development},
		handler.NewEmployeeHandler(repo, zap.NewNop()))
	require.NoError(t, err)
	return r
}

func do(h http.Handler, method, target string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestEmployeeHandler_DefaultRoutesRedirect(t *testing.T) {
	h := newEngine(t, newMemRepo(), true)
	for _, p := range []string{"/", "/Employee"} {
		w := do(h, http.MethodGet, p, nil)
		assert.Equal(t, http.StatusFound, w.Code, p)
		assert.Equal(t, handler.RouteList, w.Header().Get("Location"), p)
	}
}

func TestEmployeeHandler_ListAndCreate(t *testing.T) {
	repo := newMemRepo()
	h := newEngine(t, repo, true)

	w := do(h, http.MethodGet, handler.RouteList, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "No employees yet.")

	w = do(h, http.MethodGet, handler.RouteNew, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `action="/Employee/New"`)
	assert.NotContains(t, w.Body.String(), `name="id"`)

	w = do(h, http.MethodPost, handler.RouteNew, url.Values{
		"full_name": {" Ana López "},
		"email":     {"ana@example.com"},
		"position":  {"Clerk"},
		"salary":    {"1234.5"},
		"hire_date": {"2024-02-29"},
	})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, handler.RouteList, w.Header().Get("Location"))

	got, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Ana López", got.FullName)
	assert.InDelta(t, 1234.5, got.Salary, 1e-9)
	require.NotNil(t, got.HireDate)
	assert.Equal(t, "2024-02-29", got.HireDate.Format("2006-01-02"))

	w = do(h, http.MethodGet, handler.RouteList, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Ana López")
	assert.Contains(t, body, "1234.50")
	assert.Contains(t, body, "2024-02-29")
	assert.Contains(t, body, `/Employee/Edit?id=1`)
}

func TestEmployeeHandler_CreateRejectsBadInput(t *testing.T) {
	repo := newMemRepo()
	h := newEngine(t, repo, true)

	cases := map[string]url.Values{
		"salary not a number": {"full_name": {"Ana"}, "position": {"Clerk"}, "salary": {"lots"}},
		"bad date":            {"full_name": {"Ana"}, "position": {"Clerk"}, "hire_date": {"29/02/2024"}},
		"missing name":        {"position": {"Clerk"}},
	}
	for name, form := range cases {
		t.Run(name, func(t *testing.T) {
			w := do(h, http.MethodPost, handler.RouteNew, form)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "Request ID")
		})
	}
	list, _ := repo.ListAll(context.Background())
	assert.Empty(t, list)
}

func TestEmployeeHandler_EditForm(t *testing.T) {
	repo := newMemRepo()
	_, err := repo.Insert(context.Background(), &domain.Employee{FullName: "Ana", Position: "Clerk"})
	require.NoError(t, err)
	h := newEngine(t, repo, true)

	for _, p := range []string{"/Employee/Edit?id=1", "/Employee/Edit/1"} {
		w := do(h, http.MethodGet, p, nil)
		require.Equal(t, http.StatusOK, w.Code, p)
		assert.Contains(t, w.Body.String(), `name="id" value="1"`, p)
		assert.Contains(t, w.Body.String(), `value="Clerk"`, p)
	}

	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodGet, "/Employee/Edit", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodGet, "/Employee/Edit?id=abc", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/Employee/Edit/999", nil).Code)
}

func TestEmployeeHandler_Update(t *testing.T) {
	repo := newMemRepo()
	_, err := repo.Insert(context.Background(), &domain.Employee{FullName: "Ana", Position: "Clerk", Email: "ana@example.com"})
	require.NoError(t, err)
	h := newEngine(t, repo, true)

	w := do(h, http.MethodPost, handler.RouteEdit, url.Values{
		"id": {"1"}, "full_name": {"Ana"}, "position": {"Manager"},
	})
	require.Equal(t, http.StatusFound, w.Code)

	got, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Manager", got.Position)
	assert.Empty(t, got.Email)

	w = do(h, http.MethodPost, handler.RouteEdit, url.Values{
		"id": {"42"}, "full_name": {"Ghost"}, "position": {"None"},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEmployeeHandler_Delete(t *testing.T) {
	repo := newMemRepo()
	for _, n := range []string{"Ana", "Bruno"} {
		_, err := repo.Insert(context.Background(), &domain.Employee{FullName: n, Position: "Clerk"})
		require.NoError(t, err)
	}
	h := newEngine(t, repo, true)

	w := do(h, http.MethodPost, handler.RouteDelete, url.Values{"id": {"1"}})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, handler.RouteList, w.Header().Get("Location"))

	w = do(h, http.MethodPost, handler.RouteDelete, url.Values{"id": {"1"}})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(h, http.MethodPost, "/Employee/Delete/2", nil)
	require.Equal(t, http.StatusFound, w.Code)

	list, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestEmployeeHandler_StoreUnavailable(t *testing.T) {
	repo := newMemRepo()
	repo.err = errors.Wrap(domain.ErrStoreUnavailable, "dial tcp 10.0.0.5:3306: connection refused")

	prod := do(newEngine(t, repo, false), http.MethodGet, handler.RouteList, nil)
	assert.Equal(t, http.StatusServiceUnavailable, prod.Code)
	assert.NotContains(t, prod.Body.String(), "10.0.0.5")
	assert.NotEmpty(t, prod.Header().Get("X-Request-ID"))
	assert.Contains(t, prod.Body.String(), prod.Header().Get("X-Request-ID"))

	dev := do(newEngine(t, repo, true), http.MethodGet, handler.RouteList, nil)
	assert.Equal(t, http.StatusServiceUnavailable, dev.Code)
	assert.Contains(t, dev.Body.String(), "10.0.0.5")
}

func TestEmployeeHandler_PanicRendersErrorPage(t *testing.T) {
	w := do(newEngine(t, panicRepo{}, false), http.MethodGet, handler.RouteList, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "An error occurred while processing your request.")
	assert.NotContains(t, w.Body.String(), "boom")
}

func TestWebEngine_HealthMetricsStatic(t *testing.T) {
	h := newEngine(t, newMemRepo(), false)

	w := do(h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":1}`, w.Body.String())

	do(h, http.MethodGet, handler.RouteList, nil)
	w = do(h, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")

	w = do(h, http.MethodGet, "/static/site.css", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
