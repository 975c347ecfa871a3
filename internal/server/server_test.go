package server

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"ibms-reporting-service/internal/ingest"
	"ibms-reporting-service/internal/models"
	"ibms-reporting-service/internal/store"
)

func newTestRouter(t *testing.T) (*store.Store, *gin.Engine) {
	t.Helper()
	st := store.New()
	return st, New(st, nil).Router()
}

func multipartUpload(t *testing.T, fieldYear, csvBody string) (*bytes.Buffer, string) {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("financialYear", fieldYear); err != nil {
		t.Fatalf("write field: %v", err)
	}
	part, err := writer.CreateFormFile("file", "extract.csv")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(csvBody)); err != nil {
		t.Fatalf("write file: %v", err)
	}
	writer.Close()
	return &body, writer.FormDataContentType()
}

func TestHealthz(t *testing.T) {
	_, router := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if payload["status"] != "ok" {
		t.Errorf("status field = %v", payload["status"])
	}
}

func TestUploadCorporateStrategy(t *testing.T) {
	st, router := newTestRouter(t)

	csvBody := strings.Join(ingest.SchemaHeader(ingest.TableCorporateStrategy), ",") + "\n" +
		"CS1,strategy one,detail\n"
	body, contentType := multipartUpload(t, "2024/25", csvBody)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/uploads/corporatestrategy", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var result ingest.ImportResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if result.RowsImported != 1 || result.State != ingest.StateCommitted {
		t.Errorf("result = %+v", result)
	}
	if result.BatchID == "" {
		t.Error("expected a batch identifier")
	}

	if st.GetCorporateStrategy("CS1", "2024/25") == nil {
		t.Error("uploaded row should be in the store")
	}
}

func TestUploadAcceptsFinancialYearQueryParam(t *testing.T) {
	st, router := newTestRouter(t)

	csvBody := strings.Join(ingest.SchemaHeader(ingest.TableCorporateStrategy), ",") + "\n" +
		"CS9,strategy nine,detail\n"

	// No form field: the year travels in the query string.
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "extract.csv")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(csvBody)); err != nil {
		t.Fatalf("write file: %v", err)
	}
	writer.Close()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/uploads/corporatestrategy?financialYear=2024%2F25", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if st.GetCorporateStrategy("CS9", "2024/25") == nil {
		t.Error("uploaded row should be in the store")
	}
}

func TestUploadHeaderMismatchSurfacesDiagnosticVerbatim(t *testing.T) {
	_, router := newTestRouter(t)

	csvBody := "wrongName,description1,description2\nCS1,a,b\n"
	body, contentType := multipartUpload(t, "2024/25", csvBody)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/uploads/corporatestrategy", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422: %s", w.Code, w.Body.String())
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	msg, _ := payload["error"].(string)
	if !strings.Contains(msg, "wrongName : corporateStrategyNo") {
		t.Errorf("error should carry the per-column diff verbatim, got %q", msg)
	}
}

func TestUploadUnknownTableType(t *testing.T) {
	_, router := newTestRouter(t)

	body, contentType := multipartUpload(t, "2024/25", "a,b,c\n")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/uploads/nonsense", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422: %s", w.Code, w.Body.String())
	}
}

func TestUploadBadFinancialYear(t *testing.T) {
	_, router := newTestRouter(t)

	csvBody := strings.Join(ingest.SchemaHeader(ingest.TableCorporateStrategy), ",") + "\nCS1,a,b\n"
	body, contentType := multipartUpload(t, "2024-25", csvBody)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/uploads/corporatestrategy", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400: %s", w.Code, w.Body.String())
	}
}

func seedGLRecord(st *store.Store, glCode, codeID string) {
	st.UpsertGLRecord(&models.GeneralLedgerRecord{
		GLCode:        glCode,
		FinancialYear: "2024/25",
		CodeID:        codeID,
		CostCentre:    "042",
		Account:       "1",
		Service:       "55",
		Resource:      "1000",
		YTDActual:     decimal.NewFromInt(10),
	})
}

func TestReportCSVDownload(t *testing.T) {
	st, router := newTestRouter(t)
	seedGLRecord(st, "GL1", "A0001")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/api/reports/servicepriority.csv?financialYear=2024/25&costCentre=042", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("content type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "servicepriority_2024-25.csv") {
		t.Errorf("content disposition = %q", cd)
	}

	records, err := csv.NewReader(w.Body).ReadAll()
	if err != nil {
		t.Fatalf("body is not valid CSV: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected header + 1 row, got %d", len(records))
	}
	if records[1][0] != "A0001" {
		t.Errorf("row IBMS ID = %q", records[1][0])
	}
}

func TestReportRejectsMultiYearQuery(t *testing.T) {
	_, router := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/api/reports/download.csv?financialYear=2023/24&financialYear=2024/25&costCentre=042", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400: %s", w.Code, w.Body.String())
	}
}

func TestReportCodeUpdateVariantNeedsAdminRole(t *testing.T) {
	st, router := newTestRouter(t)
	seedGLRecord(st, "GL1", "A0001")

	url := "/api/reports/codeupdate.csv?financialYear=2024/25&codeUpdate=dj0"

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("without role header: status = %d, want 400", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, url, nil)
	req.Header.Set("X-IBMS-Role", "admin")
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("with admin role: status = %d, want 200: %s", w.Code, w.Body.String())
	}
}

func TestReportUnknownFlavor(t *testing.T) {
	_, router := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/reports/summary.csv?financialYear=2024/25&costCentre=042", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400: %s", w.Code, w.Body.String())
	}
}

func TestMetricsRecordAndReport(t *testing.T) {
	_, router := newTestRouter(t)

	payload := `{
		"region": "Swan",
		"quarter": 2,
		"financialYear": "2024/25",
		"areaTreated": "80.5",
		"treatmentTarget": "100",
		"enteredBy": "jbloggs"
	}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/metrics", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("record status = %d: %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/metrics/report.csv?financialYear=2024/25", nil)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("report status = %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Swan") {
		t.Errorf("report should list the recorded entry, got: %s", w.Body.String())
	}
}

func TestCostCentrePutRequiresAdmin(t *testing.T) {
	st, router := newTestRouter(t)

	payload := `{"costCentreNo": "042", "financialYear": "2024/25", "parksManagement": "Yes"}`

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/costcentres", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("without role: status = %d, want 403", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPut, "/api/costcentres", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-IBMS-Role", "admin")
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("with role: status = %d: %s", w.Code, w.Body.String())
	}

	if st.GetCostCentreMapping("042", "2024/25") == nil {
		t.Error("mapping should be stored")
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/costcentres?financialYear=2024/25", nil)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d: %s", w.Code, w.Body.String())
	}
	var mappings []models.CostCentreMapping
	if err := json.Unmarshal(w.Body.Bytes(), &mappings); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(mappings) != 1 || mappings[0].CostCentreNo != "042" {
		t.Errorf("mappings = %+v", mappings)
	}
}
