package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/giygas/drugbase-api/entities"
	"github.com/giygas/drugbase-api/interfaces"
	"github.com/giygas/drugbase-api/store"
	"github.com/giygas/drugbase-api/validation"
)

// MockHealthChecker implements interfaces.HealthChecker for testing
type MockHealthChecker struct {
	status     string
	details    map[string]any
	httpStatus int
}

func (m *MockHealthChecker) HealthCheck(ctx context.Context) (string, map[string]any, int) {
	return m.status, m.details, m.httpStatus
}

func (m *MockHealthChecker) CalculateNextUpdate() time.Time {
	return time.Now().Add(time.Hour)
}

func int64p(v int64) *int64 { return &v }

// testDataset: two "Acu" drugs, one of them treating two diseases
func testDataset() entities.Dataset {
	return entities.Dataset{
		Manufacturers: []entities.Manufacturer{{ID: 1, Name: "PharmaCorp"}, {ID: 2, Name: "HealWell"}},
		Diseases:      []entities.Disease{{ID: 1, Name: "Flu"}, {ID: 2, Name: "Cold"}},
		Drugs: []entities.Drug{
			{ID: 1, Name: "Acuvir", Price: int64p(120), Purpose: "antiviral", ManID: int64p(1)},
			{ID: 2, Name: "Acuzol", Price: int64p(80), Purpose: "antifungal", ManID: int64p(2)},
			{ID: 3, Name: "Benpril", Price: int64p(45), Purpose: "blood pressure", ManID: int64p(1)},
		},
		Generics: []entities.Generic{
			{ID: 1, Name: "acuvirine", Price: int64p(30)},
			{ID: 2, Name: "acuzolate", Price: int64p(20)},
			{ID: 3, Name: "benaprilat"},
		},
		DrugAlts: []entities.DrugAlt{{DrugID: 1, GenID: 1}, {DrugID: 2, GenID: 2}, {DrugID: 3, GenID: 3}},
		Treatments: []entities.Treatment{
			{DiseaseID: 1, DrugID: 1, GenID: 1},
			{DiseaseID: 2, DrugID: 1, GenID: 1},
			{DiseaseID: 1, DrugID: 2, GenID: 2},
			{DiseaseID: 2, DrugID: 3, GenID: 3},
		},
	}
}

type testEnv struct {
	store  *store.Store
	router http.Handler
}

func newTestEnv(t *testing.T, ds entities.Dataset) *testEnv {
	t.Helper()
	ctx := context.Background()
	s, err := store.OpenMemory(ctx)
	if err != nil {
		t.Fatalf("Failed to open memory store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if ds.Len() > 0 {
		if _, err := s.BulkLoad(ctx, ds); err != nil {
			t.Fatalf("Failed to load dataset: %v", err)
		}
	}

	health := &MockHealthChecker{status: "healthy", details: map[string]any{"drugs": 3}, httpStatus: http.StatusOK}
	h := NewHTTPHandler(s, validation.NewDataValidator(), health)
	return &testEnv{store: s, router: newRouter(h)}
}

func newRouter(h interfaces.HTTPHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.Home)
	r.Get("/Drug_Search/{id_from}/{query}", h.DrugSearch)
	r.Get("/Disease_Search/{id_from}/{query}", h.DiseaseSearch)
	r.Get("/Multi_Disease_Treatment/{id_from}", h.MultiDiseaseTreatment)
	r.Get("/Multi_Disease_Treatment/{id_from}/{min_diseases}", h.MultiDiseaseTreatment)
	r.Get("/Drug_Description/{name}", h.DrugDescription)
	r.Get("/health", h.HealthCheck)
	r.Get("/dev/manufacturers", h.ListManufacturers)
	r.Get("/dev/diseases", h.ListDiseases)
	r.Get("/dev/drugs", h.ListDrugs)
	r.Get("/dev/generics", h.ListGenerics)
	r.Get("/dev/integrity", h.Integrity)
	r.Post("/dev/manufacturer", h.CreateManufacturer)
	r.Post("/dev/drug", h.CreateDrug)
	r.Post("/dev/generic", h.CreateGeneric)
	r.Post("/dev/disease", h.CreateDisease)
	r.Post("/dev/treatment", h.CreateTreatment)
	r.Put("/dev/manufacturer/{man_id}", h.RenameManufacturer)
	r.Delete("/dev/drug/{drug_id}", h.DeleteDrug)
	return r
}

func (e *testEnv) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

// decodeData unmarshals {"data": [...]} into rows
func decodeData[T any](t *testing.T, rr *httptest.ResponseRecorder) []T {
	t.Helper()
	var body struct {
		Data []T `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body %q: %v", rr.Body.String(), err)
	}
	return body.Data
}

func TestHome(t *testing.T) {
	env := newTestEnv(t, entities.Dataset{})

	rr := env.do(t, http.MethodGet, "/")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Unexpected content type %q", ct)
	}
	if !strings.Contains(rr.Body.String(), "This is the drugbase API") {
		t.Errorf("Unexpected body %s", rr.Body.String())
	}
}

func TestDrugSearchEndpoint(t *testing.T) {
	env := newTestEnv(t, testDataset())

	rr := env.do(t, http.MethodGet, "/Drug_Search/0/Acu")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	rows := decodeData[entities.DrugRow](t, rr)
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	if rows[0].Name != "Acuvir" || rows[0].Diseases != "Cold,Flu" {
		t.Errorf("Unexpected first row %+v", rows[0])
	}
	if rows[1].Name != "Acuzol" || rows[1].GenericName != "acuzolate" {
		t.Errorf("Unexpected second row %+v", rows[1])
	}

	// Rows are positional arrays on the wire
	if !strings.HasPrefix(rr.Body.String(), `{"data":[["Acuvir",1,1,"Cold,Flu",30,120,"acuvirine"]`) {
		t.Errorf("Unexpected wire format %s", rr.Body.String())
	}
}

func TestDrugSearchCursor(t *testing.T) {
	env := newTestEnv(t, testDataset())

	tests := []struct {
		name    string
		target  string
		wantLen int
	}{
		{"after first drug", "/Drug_Search/1/Acu", 1},
		{"past the end", "/Drug_Search/2/Acu", 0},
		{"malformed cursor", "/Drug_Search/abc/Acu", 0},
		{"negative cursor", "/Drug_Search/-3/Acu", 2},
		{"escaped query", "/Drug_Search/0/Ben%70ril", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodGet, tt.target)
			if rr.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", rr.Code)
			}
			if rows := decodeData[entities.DrugRow](t, rr); len(rows) != tt.wantLen {
				t.Errorf("Expected %d rows, got %d", tt.wantLen, len(rows))
			}
		})
	}
}

func TestMalformedCursorReturnsEmptyArray(t *testing.T) {
	env := newTestEnv(t, testDataset())

	for _, target := range []string{"/Drug_Search/x/Acu", "/Disease_Search/1.5/Flu", "/Multi_Disease_Treatment/zz"} {
		rr := env.do(t, http.MethodGet, target)
		if rr.Code != http.StatusOK {
			t.Errorf("%s: expected status 200, got %d", target, rr.Code)
		}
		if body := strings.TrimSpace(rr.Body.String()); body != `{"data":[]}` {
			t.Errorf("%s: expected empty data array, got %s", target, body)
		}
	}
}

func TestCompactPageSize(t *testing.T) {
	ds := entities.Dataset{
		Manufacturers: []entities.Manufacturer{{ID: 1, Name: "BioGen"}},
		Diseases:      []entities.Disease{{ID: 1, Name: "Flu"}},
	}
	for i := int64(1); i <= 10; i++ {
		ds.Drugs = append(ds.Drugs, entities.Drug{ID: i, Name: "Zed" + string(rune('a'+i)), ManID: int64p(1)})
		ds.Generics = append(ds.Generics, entities.Generic{ID: i, Name: "gen"})
		ds.DrugAlts = append(ds.DrugAlts, entities.DrugAlt{DrugID: i, GenID: i})
		ds.Treatments = append(ds.Treatments, entities.Treatment{DiseaseID: 1, DrugID: i, GenID: i})
	}
	env := newTestEnv(t, ds)

	if rows := decodeData[entities.DrugRow](t, env.do(t, http.MethodGet, "/Drug_Search/0/Zed")); len(rows) != store.PageSize {
		t.Errorf("Expected %d rows, got %d", store.PageSize, len(rows))
	}
	if rows := decodeData[entities.DrugRow](t, env.do(t, http.MethodGet, "/Drug_Search/0/Zed?size=compact")); len(rows) != store.CompactPageSize {
		t.Errorf("Expected %d compact rows, got %d", store.CompactPageSize, len(rows))
	}
	if rows := decodeData[entities.DiseaseRow](t, env.do(t, http.MethodGet, "/Disease_Search/0/Flu?size=compact")); len(rows) != store.CompactPageSize {
		t.Errorf("Expected %d compact disease rows, got %d", store.CompactPageSize, len(rows))
	}
}

func TestDrugSearchRejectsMarkup(t *testing.T) {
	env := newTestEnv(t, testDataset())

	rr := env.do(t, http.MethodGet, "/Drug_Search/0/%3Cscript%3E")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", rr.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode error body: %v", err)
	}
	if body["code"] != float64(http.StatusBadRequest) || body["error"] != "Bad Request" {
		t.Errorf("Unexpected error body %v", body)
	}
}

func TestDiseaseSearchEndpoint(t *testing.T) {
	env := newTestEnv(t, testDataset())

	rows := decodeData[entities.DiseaseRow](t, env.do(t, http.MethodGet, "/Disease_Search/0/Col"))
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d: %+v", len(rows), rows)
	}
	for _, r := range rows {
		if r.DiseaseName != "Cold" {
			t.Errorf("Unexpected disease %q", r.DiseaseName)
		}
	}
	if rows[0].DrugID != 1 || rows[1].DrugID != 3 {
		t.Errorf("Expected drug ids 1 then 3, got %d and %d", rows[0].DrugID, rows[1].DrugID)
	}
	if rows[1].GenericPrice != nil {
		t.Errorf("Expected null generic price, got %d", *rows[1].GenericPrice)
	}
}

func TestMultiDiseaseTreatmentEndpoint(t *testing.T) {
	env := newTestEnv(t, testDataset())

	tests := []struct {
		name    string
		target  string
		wantIDs []int64
	}{
		{"default threshold", "/Multi_Disease_Treatment/0", []int64{1}},
		{"explicit threshold", "/Multi_Disease_Treatment/0/1", []int64{1, 2, 3}},
		{"malformed threshold falls back", "/Multi_Disease_Treatment/0/lots", []int64{1}},
		{"threshold above every drug", "/Multi_Disease_Treatment/0/3", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodGet, tt.target)
			if rr.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", rr.Code)
			}
			rows := decodeData[entities.MultiDiseaseRow](t, rr)
			if len(rows) != len(tt.wantIDs) {
				t.Fatalf("Expected %d rows, got %d: %+v", len(tt.wantIDs), len(rows), rows)
			}
			for i, r := range rows {
				if r.DrugID != tt.wantIDs[i] {
					t.Errorf("Row %d: expected drug %d, got %d", i, tt.wantIDs[i], r.DrugID)
				}
			}
		})
	}

	rows := decodeData[entities.MultiDiseaseRow](t, env.do(t, http.MethodGet, "/Multi_Disease_Treatment/0"))
	if rows[0].Manufacturer != "PharmaCorp" || rows[0].DiseaseCount != 2 || rows[0].Diseases != "Cold,Flu" {
		t.Errorf("Unexpected row %+v", rows[0])
	}
}

func TestDrugDescriptionEndpoint(t *testing.T) {
	env := newTestEnv(t, testDataset())

	rr := env.do(t, http.MethodGet, "/Drug_Description/Acuvir")
	if body := strings.TrimSpace(rr.Body.String()); body != `{"data":["antiviral"]}` {
		t.Errorf("Unexpected body %s", body)
	}

	rr = env.do(t, http.MethodGet, "/Drug_Description/Nothing")
	if body := strings.TrimSpace(rr.Body.String()); body != `{"data":[]}` {
		t.Errorf("Expected empty data for unknown drug, got %s", body)
	}
}

func TestHealthCheckEndpoint(t *testing.T) {
	env := newTestEnv(t, entities.Dataset{})

	rr := env.do(t, http.MethodGet, "/health")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode health response: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("Expected healthy, got %q", resp.Status)
	}
	if resp.Uptime == "" {
		t.Error("Expected uptime to be set")
	}
	if _, ok := resp.System["goroutines"]; !ok {
		t.Error("Expected goroutines in system section")
	}
}

func TestHealthCheckPropagatesStatus(t *testing.T) {
	s, err := store.OpenMemory(context.Background())
	if err != nil {
		t.Fatalf("Failed to open memory store: %v", err)
	}
	defer s.Close()

	health := &MockHealthChecker{status: "unhealthy", details: map[string]any{"error": "no data"}, httpStatus: http.StatusServiceUnavailable}
	router := newRouter(NewHTTPHandler(s, validation.NewDataValidator(), health))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", rr.Code)
	}
}

func TestFormatUptimeHuman(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{5 * time.Second, "5s"},
		{2*time.Minute + 3*time.Second, "2m 3s"},
		{time.Hour, "1h 0m 0s"},
		{49*time.Hour + 30*time.Second, "2d 1h 0m 30s"},
	}
	for _, tt := range tests {
		if got := formatUptimeHuman(tt.d); got != tt.want {
			t.Errorf("formatUptimeHuman(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
