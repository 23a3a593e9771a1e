package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"mess/internal/core"
	"mess/internal/ledger/memory"
	applog "mess/internal/log"
	"mess/internal/notify"
	"mess/internal/services"
)

type captureSender struct {
	mu   sync.Mutex
	sent []notify.Request
}

func (c *captureSender) Send(_ context.Context, req notify.Request) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, req)
	return nil
}

func newTestServer(t *testing.T, ready func(context.Context) error, opts ...services.Option) *Server {
	t.Helper()
	billing := services.NewBillingService(memory.New(nil), opts...)
	srv, err := NewServer(Config{
		Addr:    ":0",
		Billing: billing,
		Ready:   ready,
		Logger:  applog.New(applog.Config{Output: io.Discard, Component: applog.ComponentHTTP}),
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv
}

func do(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.RemoteAddr = "192.0.2.1:1234"
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestIndexAndHealth(t *testing.T) {
	srv := newTestServer(t, nil)

	rr := do(t, srv, http.MethodGet, "/", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("index status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Mess Bill Calculator") {
		t.Fatal("index body missing heading")
	}
	if rr.Header().Get("Content-Security-Policy") == "" || rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing security or trace headers")
	}

	for _, path := range []string{"/healthz", "/readyz", "/static/app.css", "/metrics"} {
		if rr := do(t, srv, http.MethodGet, path, nil); rr.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rr.Code)
		}
	}
	if rr := do(t, srv, http.MethodGet, "/nope", nil); rr.Code != http.StatusNotFound {
		t.Errorf("unknown path status = %d", rr.Code)
	}
}

func TestReadyzReportsBackendFailure(t *testing.T) {
	srv := newTestServer(t, func(context.Context) error { return errors.New("db locked") })
	if rr := do(t, srv, http.MethodGet, "/readyz", nil); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status = %d, want 503", rr.Code)
	}
}

func TestRosterEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"add", http.MethodPost, "/api/members", map[string]any{"name": "Asha"}, http.StatusCreated},
		{"add guest", http.MethodPost, "/api/members", map[string]any{"name": "Visitor", "isGuest": true}, http.StatusCreated},
		{"duplicate", http.MethodPost, "/api/members", map[string]any{"name": "asha"}, http.StatusUnprocessableEntity},
		{"blank name", http.MethodPost, "/api/members", map[string]any{"name": "  "}, http.StatusUnprocessableEntity},
		{"name too long", http.MethodPost, "/api/members", map[string]any{"name": strings.Repeat("n", core.MaxNameLength+1)}, http.StatusUnprocessableEntity},
		{"malformed", http.MethodPost, "/api/members", "{", http.StatusBadRequest},
		{"get", http.MethodGet, "/api/members/asha", nil, http.StatusOK},
		{"get unknown", http.MethodGet, "/api/members/Nobody", nil, http.StatusNotFound},
		{"patch", http.MethodPatch, "/api/members/Asha", map[string]any{"meals": 12.5, "deposits": 500}, http.StatusOK},
		{"negative meals", http.MethodPatch, "/api/members/Asha", map[string]any{"meals": -1}, http.StatusUnprocessableEntity},
		{"patch unknown", http.MethodPatch, "/api/members/Nobody", map[string]any{"meals": 1}, http.StatusNotFound},
		{"remove", http.MethodDelete, "/api/members/Visitor", nil, http.StatusNoContent},
		{"remove unknown", http.MethodDelete, "/api/members/Visitor", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rr := do(t, srv, tt.method, tt.path, tt.body); rr.Code != tt.want {
				t.Fatalf("status = %d, want %d: %s", rr.Code, tt.want, rr.Body.String())
			}
		})
	}

	got := decode[membersResponse](t, do(t, srv, http.MethodGet, "/api/members", nil))
	if len(got.Members) != 1 || got.Members[0].Meals != 12.5 || got.Members[0].Deposits != 500 {
		t.Fatalf("members = %+v", got.Members)
	}
}

func TestImportExportMembers(t *testing.T) {
	srv := newTestServer(t, nil)

	if rr := do(t, srv, http.MethodPost, "/api/members/import", `{"name":"x"}`); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("non-array import status = %d", rr.Code)
	}

	longName := `[{"name":"` + strings.Repeat("n", core.MaxNameLength+1) + `"}]`
	rr := do(t, srv, http.MethodPost, "/api/members/import", longName)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("long name import status = %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "too long") {
		t.Errorf("long name import body = %s", rr.Body.String())
	}

	payload := `[{"name":"Asha","meals":20,"deposits":100},{"name":"Ravi","meals":10,"isGuest":false}]`
	rr = do(t, srv, http.MethodPost, "/api/members/import", payload)
	if rr.Code != http.StatusOK {
		t.Fatalf("import status = %d: %s", rr.Code, rr.Body.String())
	}
	if got := decode[membersResponse](t, rr); len(got.Members) != 2 {
		t.Fatalf("imported = %+v", got.Members)
	}

	rr = do(t, srv, http.MethodGet, "/api/members/export", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("export status = %d", rr.Code)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "mess-members.json") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	members, err := core.DecodeMembers(rr.Body.Bytes())
	if err != nil || len(members) != 2 || members[1].Name != "Ravi" {
		t.Fatalf("round trip = %+v, %v", members, err)
	}
}

func TestCalculateFlow(t *testing.T) {
	srv := newTestServer(t, nil)

	if rr := do(t, srv, http.MethodPost, "/api/calculate", nil); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty roster status = %d, want 422", rr.Code)
	}

	do(t, srv, http.MethodPost, "/api/members/import",
		`[{"name":"A","meals":30,"deposits":1000},{"name":"B","meals":20}]`)
	rr := do(t, srv, http.MethodPut, "/api/expenses", services.PeriodInput{Marketing: 1000, Paper: 100, CookMode: core.CookModePerHead, Cook: 50})
	if rr.Code != http.StatusOK {
		t.Fatalf("put expenses = %d: %s", rr.Code, rr.Body.String())
	}
	period := decode[core.Period](t, rr)
	if period.Cook.Total != 100 {
		t.Fatalf("cook total = %v, want 100", period.Cook.Total)
	}
	if rr := do(t, srv, http.MethodPut, "/api/expenses", map[string]any{"cookMode": "weekly"}); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad cook mode status = %d", rr.Code)
	}

	rr = do(t, srv, http.MethodPost, "/api/calculate", nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("calculate status = %d: %s", rr.Code, rr.Body.String())
	}
	entry := decode[core.HistoryEntry](t, rr)
	if entry.Overview.MealRate != 20 || entry.Overview.EstablishmentCharge != 100 {
		t.Fatalf("overview = %+v", entry.Overview)
	}
	if entry.Results[0].Outstanding != -300 || entry.Results[1].Outstanding != 500 {
		t.Fatalf("outstanding = %v, %v", entry.Results[0].Outstanding, entry.Results[1].Outstanding)
	}

	hist := decode[historyResponse](t, do(t, srv, http.MethodGet, "/api/history", nil))
	if len(hist.Entries) != 1 || hist.Entries[0].ID != entry.ID {
		t.Fatalf("history = %+v", hist.Entries)
	}
	if rr := do(t, srv, http.MethodGet, "/api/history/"+entry.ID, nil); rr.Code != http.StatusOK {
		t.Fatalf("get history status = %d", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/api/history/missing", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("missing history status = %d", rr.Code)
	}

	rr = do(t, srv, http.MethodGet, "/api/history/"+entry.ID+"/print.pdf", nil)
	if rr.Code != http.StatusOK || !bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF-")) {
		t.Fatalf("pdf status = %d", rr.Code)
	}
	rr = do(t, srv, http.MethodGet, "/api/history/"+entry.ID+"/export.xlsx", nil)
	if rr.Code != http.StatusOK || !bytes.HasPrefix(rr.Body.Bytes(), []byte("PK")) {
		t.Fatalf("xlsx status = %d", rr.Code)
	}

	rr = do(t, srv, http.MethodPost, "/api/history/"+entry.ID+"/share", nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("share status = %d", rr.Code)
	}
	share := decode[shareResponse](t, rr)
	rr = do(t, srv, http.MethodGet, share.URL, nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "B: total Rs. 500.00") {
		t.Fatalf("share text = %d %q", rr.Code, rr.Body.String())
	}
	if rr := do(t, srv, http.MethodGet, "/share/not-a-token", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown token status = %d", rr.Code)
	}

	if rr := do(t, srv, http.MethodDelete, "/api/share/"+share.Token, nil); rr.Code != http.StatusNoContent {
		t.Fatalf("revoke status = %d", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, share.URL, nil); rr.Code != http.StatusNotFound {
		t.Fatalf("revoked share status = %d, want 404", rr.Code)
	}
}

func TestNotifyEndpoint(t *testing.T) {
	body := map[string]any{
		"month":      "March 2026",
		"recipients": []map[string]string{{"name": "A", "email": "a@example.com"}, {"name": "B", "email": "bad"}},
	}

	unconfigured := newTestServer(t, nil)
	do(t, unconfigured, http.MethodPost, "/api/members/import", `[{"name":"A","meals":1},{"name":"B","meals":1}]`)
	entry := decode[core.HistoryEntry](t, do(t, unconfigured, http.MethodPost, "/api/calculate", nil))
	if rr := do(t, unconfigured, http.MethodPost, "/api/history/"+entry.ID+"/notify", body); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("unconfigured notify status = %d", rr.Code)
	}

	sender := &captureSender{}
	srv := newTestServer(t, nil, services.WithDispatcher(notify.NewDispatcher(sender, 2)))
	do(t, srv, http.MethodPost, "/api/members/import", `[{"name":"A","meals":1},{"name":"B","meals":1}]`)
	entry = decode[core.HistoryEntry](t, do(t, srv, http.MethodPost, "/api/calculate", nil))

	rr := do(t, srv, http.MethodPost, "/api/history/"+entry.ID+"/notify", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("notify status = %d: %s", rr.Code, rr.Body.String())
	}
	report := decode[services.NotifyReport](t, rr)
	if report.Sent != 1 || report.Failed != 1 || len(sender.sent) != 1 {
		t.Fatalf("report = %+v, sent = %d", report, len(sender.sent))
	}

	empty := map[string]any{"month": "March", "recipients": []any{}}
	if rr := do(t, srv, http.MethodPost, "/api/history/"+entry.ID+"/notify", empty); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("no recipients status = %d", rr.Code)
	}
	noMonth := map[string]any{"recipients": []map[string]string{{"name": "A", "email": "a@example.com"}}}
	if rr := do(t, srv, http.MethodPost, "/api/history/"+entry.ID+"/notify", noMonth); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("missing month status = %d", rr.Code)
	}
}
