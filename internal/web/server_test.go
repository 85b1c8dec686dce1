package web

import (
	"bytes"
	"encoding/json"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/hrpulse/internal/config"
	"github.com/JonMunkholm/hrpulse/internal/core"
	_ "github.com/JonMunkholm/hrpulse/internal/core/tables"
	"github.com/JonMunkholm/hrpulse/internal/csvcodec"
	"github.com/JonMunkholm/hrpulse/internal/roster"
	mw "github.com/JonMunkholm/hrpulse/internal/web/middleware"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "test-key"

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 8080},
		Import: config.ImportConfig{
			MaxFileSize:   64 << 10,
			MaxConcurrent: 2,
			MaxWaitTime:   time.Second,
			ReadTimeout:   time.Second,
			SchemaMode:    "free",
			Schema:        "employee_rewards",
		},
		Security: config.SecurityConfig{
			EnableCSP: true,
			APIKeys:   []string{testAPIKey},
		},
		Auth: config.AuthConfig{
			AdminUsername:    "admin",
			AdminPassword:    "admin123",
			EmployeePassword: "password123",
			SessionTTL:       time.Hour,
			CookieName:       "hrpulse_session",
		},
		Audit: config.AuditConfig{Capacity: 100},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	svc, err := core.NewService(roster.NewStore(roster.SampleSnapshot()), cfg)
	require.NoError(t, err)
	s := NewServer(svc, cfg)
	t.Cleanup(func() { _ = s.Shutdown(t.Context()) })
	return s
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

// apiRequest builds a request authenticated with the test API key.
func apiRequest(method, target string, body []byte) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("X-API-Key", testAPIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func login(t *testing.T, s *Server, username, password string) *http.Cookie {
	t.Helper()
	body, _ := json.Marshal(credentials{Username: username, Password: password})
	req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	for _, c := range rec.Result().Cookies() {
		if c.Name == "hrpulse_session" {
			return c
		}
	}
	t.Fatal("no session cookie")
	return nil
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func uploadRequest(t *testing.T, target, fileName, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if fileName != "" {
		part, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-API-Key", testAPIKey)
	return req
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, testConfig())
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "ok", resp.Status)
	require.Equal(t, 20, resp.Records)
	require.Equal(t, "free", resp.Mode)
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	require.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestAuth_AnonymousAccess(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/roster", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "AUTH001", decodeError(t, rec).Code)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/login", rec.Header().Get("Location"))

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.Header.Set("HX-Request", "true")
	rec = serve(s, req)
	require.Equal(t, "/login", rec.Header().Get("HX-Redirect"))

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/login", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `action="/api/login"`)
}

func TestAuth_InvalidAPIKey(t *testing.T) {
	s := newTestServer(t, testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/roster", nil)
	req.Header.Set("X-API-Key", "wrong")

	rec := serve(s, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogin_Admin(t *testing.T) {
	s := newTestServer(t, testConfig())
	cookie := login(t, s, "admin", "admin123")

	req := httptest.NewRequest(http.MethodGet, "/api/roster?pageSize=5", nil)
	req.AddCookie(cookie)
	rec := serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var page core.TableDataResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Equal(t, 20, page.TotalRows)
	require.Len(t, page.Records, 5)
	require.Equal(t, 4, page.TotalPages)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	rec = serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Workforce overview")
}

func TestLogin_FormPost(t *testing.T) {
	s := newTestServer(t, testConfig())

	form := url.Values{"username": {"E004"}, "password": {"password123"}}
	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := serve(s, req)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/me", rec.Header().Get("Location"))

	form.Set("password", "nope")
	req = httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = serve(s, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "Invalid username or password")
}

func TestLogin_BadCredentialsJSON(t *testing.T) {
	s := newTestServer(t, testConfig())
	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"username":"admin","password":"x"}`))
	req.Header.Set("Content-Type", "application/json")

	rec := serve(s, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "AUTH001", decodeError(t, rec).Code)

	req = httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{`))
	req.Header.Set("Content-Type", "application/json")
	rec = serve(s, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "REQ001", decodeError(t, rec).Code)
}

func TestEmployee_ProfileOnly(t *testing.T) {
	s := newTestServer(t, testConfig())
	cookie := login(t, s, "E004", "password123")

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(cookie)
	rec := serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var p core.Profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	require.Equal(t, "David Lee", p.Name)
	require.Equal(t, core.RoleUser, p.Role)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(cookie)
	rec = serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "David Lee")

	req = httptest.NewRequest(http.MethodGet, "/api/roster", nil)
	req.AddCookie(cookie)
	rec = serve(s, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "AUTH002", decodeError(t, rec).Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	rec = serve(s, req)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/me", rec.Header().Get("Location"))
}

func TestLogout(t *testing.T) {
	s := newTestServer(t, testConfig())
	cookie := login(t, s, "admin", "admin123")

	req := httptest.NewRequest(http.MethodPost, "/api/logout", nil)
	req.AddCookie(cookie)
	rec := serve(s, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/roster", nil)
	req.AddCookie(cookie)
	rec = serve(s, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRoster_FiltersAndSorts(t *testing.T) {
	s := newTestServer(t, testConfig())

	target := "/api/roster?" + url.Values{
		"filter[department]": {"eq:Engineering"},
		"sort":               {"Average KPI (%)"},
		"dir":                {"desc"},
	}.Encode()
	rec := serve(s, apiRequest(http.MethodGet, target, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var page core.TableDataResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Equal(t, 6, page.TotalRows)
	require.Equal(t, "E018", page.Records[0].Value(roster.ColEmployeeID).String())
}

func TestImport(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := serve(s, uploadRequest(t, "/api/roster/import", "team.csv", "Employee ID,Employee Name,Score\nA1,Ann,10\nA2,Ben,20\n"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res core.ImportResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Equal(t, 2, res.Records)
	require.Equal(t, []string{"Employee ID", "Employee Name", "Score"}, res.Columns)

	rec = serve(s, apiRequest(http.MethodGet, "/api/roster/history", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var history []core.ImportHistoryEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history, 1)
	require.Equal(t, "team.csv", history[0].FileName)
	require.Equal(t, mw.APIKeyUsername, history[0].ImportedBy)
}

func TestImport_HTMXTriggersRefresh(t *testing.T) {
	s := newTestServer(t, testConfig())
	req := uploadRequest(t, "/api/roster/import", "team.csv", "ID,Name\n1,Ann\n")
	req.Header.Set("HX-Request", "true")

	rec := serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "roster-changed", rec.Header().Get("HX-Trigger"))
	require.Contains(t, rec.Body.String(), "Imported 1 records")
}

func TestImport_Errors(t *testing.T) {
	cfg := testConfig()
	cfg.Import.MaxFileSize = 64
	s := newTestServer(t, cfg)

	rec := serve(s, uploadRequest(t, "/api/roster/import", "", ""))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "FILE004", decodeError(t, rec).Code)

	rec = serve(s, uploadRequest(t, "/api/roster/import", "big.csv", "ID,Name\n"+strings.Repeat("1,Ann\n", 40)))
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	require.Equal(t, "FILE001", decodeError(t, rec).Code)

	rec = serve(s, uploadRequest(t, "/api/roster/import", "empty.csv", "ID,Name\n"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "FILE005", decodeError(t, rec).Code)

	rec = serve(s, apiRequest(http.MethodGet, "/healthz", nil))
	var health healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	require.Equal(t, 20, health.Records, "failed imports must not touch the roster")
}

func TestImport_FixedSchemaMissingColumns(t *testing.T) {
	cfg := testConfig()
	cfg.Import.SchemaMode = "fixed"
	s := newTestServer(t, cfg)

	rec := serve(s, uploadRequest(t, "/api/roster/import", "team.csv", "Employee ID,Employee Name\nE1,Ann\n"))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "VAL004", decodeError(t, rec).Code)
}

func TestPreview(t *testing.T) {
	s := newTestServer(t, testConfig())
	csv := "Employee ID,Employee Name\nE001,Alice Johnson\nE999,New Person\n"

	rec := serve(s, uploadRequest(t, "/api/roster/preview", "next.csv", csv))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var p core.PreviewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	require.Equal(t, 1, p.Summary.NewRows)
	require.Equal(t, 1, p.Summary.MatchedRows)
	require.Equal(t, 19, p.Summary.RemovedRows)
}

func TestRecords_CRUD(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := serve(s, apiRequest(http.MethodPost, "/api/records", []byte(`{"Employee Name":"Uma Stone","Department":"Finance","Average KPI (%)":77}`)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created roster.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id := created.Value(roster.ColEmployeeID).String()
	require.Equal(t, "E021", id)

	rec = serve(s, apiRequest(http.MethodPost, "/api/records", []byte(`{"Employee ID":"E021"}`)))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "REC003", decodeError(t, rec).Code)

	rec = serve(s, apiRequest(http.MethodPatch, "/api/records/"+id, []byte(`{"column":"Average KPI (%)","value":81.5}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = serve(s, apiRequest(http.MethodGet, "/api/records/"+id, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var got roster.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	kpi, ok := got.Value(roster.ColAverageKPI).Float()
	require.True(t, ok)
	require.Equal(t, 81.5, kpi)

	rec = serve(s, apiRequest(http.MethodPut, "/api/records/"+id, []byte(`{"Employee ID":"E777"}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "REC002", decodeError(t, rec).Code)

	rec = serve(s, apiRequest(http.MethodPut, "/api/records/"+id, []byte(`{"Nickname":"U"}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "VAL005", decodeError(t, rec).Code)

	rec = serve(s, apiRequest(http.MethodDelete, "/api/records/"+id, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"deleted":1}`, rec.Body.String())

	rec = serve(s, apiRequest(http.MethodGet, "/api/records/"+id, nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "REC001", decodeError(t, rec).Code)
}

func TestRecords_Upsert(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := serve(s, apiRequest(http.MethodPut, "/api/records/E500?upsert=true", []byte(`{"Employee Name":"Vic Hale"}`)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = serve(s, apiRequest(http.MethodPut, "/api/records/E500?upsert=true", []byte(`{"Department":"Sales"}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = serve(s, apiRequest(http.MethodPut, "/api/records/E501", []byte(`{"Department":"Sales"}`)))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuditLog(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := serve(s, apiRequest(http.MethodDelete, "/api/records/E010", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(s, apiRequest(http.MethodGet, "/api/audit-log?action=record_delete", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var result core.AuditLogResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Equal(t, 1, result.TotalCount)
	require.Equal(t, "E010", result.Entries[0].RowKey)
	require.Equal(t, mw.APIKeyUsername, result.Entries[0].Username)

	rec = serve(s, apiRequest(http.MethodGet, "/api/audit-log/export?action=record_delete", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, csvcodec.ExportContentType, rec.Header().Get("Content-Type"))
	require.True(t, strings.HasPrefix(rec.Body.String(), "ID,Timestamp,Action"))
	require.Contains(t, rec.Body.String(), "record_delete")

	rec = serve(s, apiRequest(http.MethodGet, "/api/audit-log?start=yesterday", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportAndTemplate(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := serve(s, apiRequest(http.MethodGet, "/api/roster/export", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, csvcodec.ExportContentType, rec.Header().Get("Content-Type"))
	require.Equal(t, `attachment; filename="employees.csv"`, rec.Header().Get("Content-Disposition"))
	lines := strings.Split(rec.Body.String(), "\r\n")
	require.Len(t, lines, 21)
	require.Equal(t, strings.Join(roster.SampleHeaders, ","), lines[0])

	rec = serve(s, apiRequest(http.MethodGet, "/api/roster/template", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, strings.Join(roster.SampleHeaders, ","), rec.Body.String())
}

func TestDashboard_NonFiniteCellStillEncodes(t *testing.T) {
	s := newTestServer(t, testConfig())
	rec := serve(s, uploadRequest(t, "/api/roster/import", "kpi.csv",
		"Employee ID,Department,Average KPI (%)\nE1,Ops,Infinity\nE2,Ops,80\n"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(s, apiRequest(http.MethodGet, "/api/dashboard", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Summary struct {
			AvgKPI float64 `json:"avgKpi"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.InDelta(t, 40.0, body.Summary.AvgKPI, 1e-9)
}

func TestWriteJSON_UnencodableIs500(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, map[string]float64{"x": math.Inf(1)})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotEqual(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestReset(t *testing.T) {
	s := newTestServer(t, testConfig())
	rec := serve(s, uploadRequest(t, "/api/roster/import", "one.csv", "ID,Name\n1,Ann\n"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(s, apiRequest(http.MethodPost, "/api/roster/reset", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Records int `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 20, body.Records)
}

func TestDashboardAndSchemas(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := serve(s, apiRequest(http.MethodGet, "/api/dashboard", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"employees":20`)

	rec = serve(s, apiRequest(http.MethodGet, "/api/dashboard?fragment=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	rec = serve(s, apiRequest(http.MethodGet, "/api/schemas", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var schemas []schemaResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &schemas))
	require.Len(t, schemas, 2)

	rec = serve(s, apiRequest(http.MethodGet, "/api/roster/columns", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var cols []core.ColumnInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cols))
	require.Len(t, cols, len(roster.SampleHeaders))
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2, ImportLimit: 1}
	s := newTestServer(t, cfg)

	for i := 0; i < 2; i++ {
		rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
}
