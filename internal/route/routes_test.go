package route_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"helmetwatch/internal/config"
	"helmetwatch/internal/dto"
	"helmetwatch/internal/frame"
	"helmetwatch/internal/helmet"
	"helmetwatch/internal/logger"
	"helmetwatch/internal/model"
	"helmetwatch/internal/repository/sqlite"
	"helmetwatch/internal/route"
	"helmetwatch/internal/service"
	"helmetwatch/internal/service/monitor"
	"helmetwatch/internal/service/storage"
	"helmetwatch/internal/service/websocket"
)

type oneViolator struct{}

func (oneViolator) Detect(ctx context.Context, f frame.Frame, threshold float64) ([]model.Detection, error) {
	return []model.Detection{{ClassID: 1, Confidence: 0.9, Box: image.Rect(5, 5, 30, 30)}}, nil
}

type blankSource struct{}

func (blankSource) Read() (frame.Frame, error) { return frame.NewPicture(64, 64), nil }
func (blankSource) Close() error { return nil }

type testServer struct {
	handler    http.Handler
	cfg        *config.Config
	violations *sqlite.ViolationRepository
	manager    *service.Manager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()

	log, err := logger.New(filepath.Join(dir, "logs"), nil, nil)
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	t.Cleanup(func() { log.Close() })

	db, err := sqlite.New(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		Password:            "secret",
		ConfidenceThreshold: 0.25,
		ViolationDirectory:  filepath.Join(dir, "violations"),
		UploadDirectory:     filepath.Join(dir, "uploads"),
		StreamInterval:      3,
	}

	violations := sqlite.NewViolationRepository(db)
	hub := websocket.NewHubService(log)
	store, err := storage.NewViolationStore(cfg.ViolationDirectory, violations, hub, log)
	if err != nil {
		t.Fatalf("NewViolationStore failed: %v", err)
	}

	manager := service.NewManager(cfg, oneViolator{}, helmet.DefaultLabels(), helmet.DefaultPalette(), store, hub,
		violations, sqlite.NewSessionRepository(db), sqlite.NewSettingsRepository(db), log)
	manager.SetOpenerFactory(func(string) monitor.Opener {
		return monitor.OpenerFunc(func(ctx context.Context) (monitor.Source, error) {
			return blankSource{}, nil
		})
	})
	t.Cleanup(manager.Stop)

	return &testServer{
		handler:    route.SetupRoutes(manager, cfg, log),
		cfg:        cfg,
		violations: violations,
		manager:    manager,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.AddCookie(&http.Cookie{Name: "authenticated", Value: "true"})
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) doJSON(t *testing.T, method, path string, v interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body []byte
	if v != nil {
		var err error
		if body, err = json.Marshal(v); err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
	}
	return s.do(t, method, path, body, "application/json")
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("invalid JSON %q: %v", rec.Body.String(), err)
	}
}

func (s *testServer) seed(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		v := &model.Violation{
			ViolationTime: time.Now().Add(-time.Duration(i) * time.Minute),
			Filename:      "violator_" + string(rune('a'+i)) + ".jpg",
			ImagePath:     filepath.Join(s.cfg.ViolationDirectory, "violator_"+string(rune('a'+i))+".jpg"),
			CameraSource:  "0",
		}
		if _, err := s.violations.Insert(v); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
}

// ========================================
// Auth
// ========================================

func TestAuth(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"api without cookie", "/api/system/status", "", http.StatusUnauthorized},
		{"page without cookie", "/settings", "", http.StatusSeeOther},
		{"ajax without cookie", "/settings", "XMLHttpRequest", http.StatusUnauthorized},
		{"login page is public", "/login", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("X-Requested-With", tt.header)
			}
			rec := httptest.NewRecorder()
			s.handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, expected %d", rec.Code, tt.want)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		password string
		want     int
	}{
		{"secret", http.StatusSeeOther},
		{"wrong", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("password="+tt.password))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			rec := httptest.NewRecorder()
			s.handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, expected %d", rec.Code, tt.want)
			}
			hasCookie := strings.Contains(rec.Header().Get("Set-Cookie"), "authenticated=true")
			if hasCookie != (tt.want == http.StatusSeeOther) {
				t.Errorf("Set-Cookie = %q", rec.Header().Get("Set-Cookie"))
			}
		})
	}
}

// ========================================
// Upload and detect
// ========================================

func multipartImage(t *testing.T, field string) ([]byte, string) {
	t.Helper()
	var img bytes.Buffer
	if err := jpeg.Encode(&img, image.NewRGBA(image.Rect(0, 0, 64, 64)), nil); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(field, "gate.jpg")
	if err != nil {
		t.Fatalf("CreateFormFile failed: %v", err)
	}
	part.Write(img.Bytes())
	writer.Close()
	return body.Bytes(), writer.FormDataContentType()
}

func TestDetect(t *testing.T) {
	s := newTestServer(t)

	body, contentType := multipartImage(t, "image")
	rec := s.do(t, http.MethodPost, "/detect", body, contentType)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.DetectResponse
	decode(t, rec, &resp)
	if resp.Violations != 1 || len(resp.Saved) != 1 {
		t.Fatalf("response = %+v", resp)
	}

	// the annotated image is served back
	if rec := s.do(t, http.MethodGet, resp.Annotated, nil, ""); rec.Code != http.StatusOK {
		t.Errorf("GET %s = %d", resp.Annotated, rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/violations/"+resp.Saved[0], nil, ""); rec.Code != http.StatusOK {
		t.Errorf("GET crop = %d", rec.Code)
	}
}

func TestDetect_BadRequests(t *testing.T) {
	s := newTestServer(t)

	wrongField, contentType := multipartImage(t, "file")

	var notImage bytes.Buffer
	writer := multipart.NewWriter(&notImage)
	part, _ := writer.CreateFormFile("image", "notes.txt")
	part.Write([]byte("hello"))
	writer.Close()

	tests := []struct {
		name        string
		body        []byte
		contentType string
	}{
		{"not multipart", []byte("{}"), "application/json"},
		{"missing image field", wrongField, contentType},
		{"not an image", notImage.Bytes(), writer.FormDataContentType()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/detect", tt.body, tt.contentType)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, expected 400", rec.Code)
			}
			var resp dto.ErrorResponse
			decode(t, rec, &resp)
			if resp.Code != http.StatusBadRequest || resp.Message == "" {
				t.Errorf("error = %+v", resp)
			}
		})
	}
}

// ========================================
// Violations API
// ========================================

func TestListViolations(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, 5)

	tests := []struct {
		name      string
		query     string
		wantCount int
		wantTotal int
		wantPages int
	}{
		{"default page", "", 5, 5, 1},
		{"paginated", "?page=2&limit=2", 2, 5, 3},
		{"last page", "?page=3&limit=2", 1, 5, 3},
		{"unreviewed", "?reviewed=false", 5, 5, 1},
		{"reviewed", "?reviewed=true", 0, 0, 0},
		{"future start date", "?startDate=2999-01-01", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, "/api/violations"+tt.query, nil, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			var list dto.ViolationList
			decode(t, rec, &list)
			if len(list.Violations) != tt.wantCount || list.Pagination.Total != tt.wantTotal ||
				list.Pagination.TotalPages != tt.wantPages {
				t.Errorf("got %d violations, pagination %+v", len(list.Violations), list.Pagination)
			}
			if list.Stats == nil || list.Stats.Total != 5 {
				t.Errorf("stats = %+v", list.Stats)
			}
		})
	}
}

func TestViolationLifecycle(t *testing.T) {
	s := newTestServer(t)

	crop := filepath.Join(s.cfg.ViolationDirectory, "manual.jpg")
	if err := os.WriteFile(crop, []byte{0xFF, 0xD8, 0xFF, 0xD9}, 0644); err != nil {
		t.Fatal(err)
	}

	confidence := 0.77
	rec := s.doJSON(t, http.MethodPost, "/api/violations", dto.CreateViolationRequest{
		ImagePath:           crop,
		DetectionConfidence: &confidence,
		CameraSource:        "gate",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	var created model.Violation
	decode(t, rec, &created)
	if created.Filename != "manual.jpg" || created.DetectionConfidence != 0.77 || created.CameraSource != "gate" {
		t.Errorf("created = %+v", created)
	}

	path := "/api/violations/" + strconv.FormatInt(created.ID, 10)

	rec = s.doJSON(t, http.MethodPut, path, map[string]bool{"reviewed": true, "flagged": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d", rec.Code)
	}
	var updated model.Violation
	decode(t, rec, &updated)
	if !updated.Reviewed || !updated.Flagged {
		t.Errorf("updated = %+v", updated)
	}

	if rec := s.doJSON(t, http.MethodPut, path, map[string]bool{}); rec.Code != http.StatusBadRequest {
		t.Errorf("empty update status = %d", rec.Code)
	}

	if rec := s.do(t, http.MethodDelete, path, nil, ""); rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if _, err := os.Stat(crop); !os.IsNotExist(err) {
		t.Errorf("crop file should be removed, stat err = %v", err)
	}
	if rec := s.do(t, http.MethodGet, path, nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d", rec.Code)
	}
}

func TestCreateViolation_ImagePath(t *testing.T) {
	s := newTestServer(t)
	outside := filepath.Join(filepath.Dir(s.cfg.ViolationDirectory), "outside.txt")

	tests := []struct {
		name      string
		imagePath string
		want      int
		wantPath  string
	}{
		{"bare filename", "manual.jpg", http.StatusCreated, filepath.Join(s.cfg.ViolationDirectory, "manual.jpg")},
		{"outside file", outside, http.StatusBadRequest, ""},
		{"dot dot escape", filepath.Join(s.cfg.ViolationDirectory, "..", "outside.txt"), http.StatusBadRequest, ""},
		{"relative escape", "../outside.txt", http.StatusBadRequest, ""},
		{"system file", "/etc/passwd", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.doJSON(t, http.MethodPost, "/api/violations", dto.CreateViolationRequest{ImagePath: tt.imagePath})
			if rec.Code != tt.want {
				t.Fatalf("status = %d, expected %d: %s", rec.Code, tt.want, rec.Body.String())
			}
			if tt.want != http.StatusCreated {
				return
			}
			var created model.Violation
			decode(t, rec, &created)
			if created.ImagePath != tt.wantPath {
				t.Errorf("image_path = %s, expected %s", created.ImagePath, tt.wantPath)
			}
		})
	}

	if count, _ := s.violations.Count(nil); count != 1 {
		t.Errorf("stored %d violations, expected only the accepted one", count)
	}
}

func TestDeleteViolation_LeavesOutsideFiles(t *testing.T) {
	s := newTestServer(t)

	outside := filepath.Join(filepath.Dir(s.cfg.ViolationDirectory), "outside.txt")
	if err := os.WriteFile(outside, []byte("keep"), 0644); err != nil {
		t.Fatal(err)
	}
	// rows written before paths were checked may point anywhere
	id, err := s.violations.Insert(&model.Violation{Filename: "outside.txt", ImagePath: outside, CameraSource: "0"})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if rec := s.do(t, http.MethodDelete, "/api/violations/"+strconv.FormatInt(id, 10), nil, ""); rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if _, err := os.Stat(outside); err != nil {
		t.Errorf("file outside the violation directory was removed: %v", err)
	}
}

func TestDeleteViolation_KeepsSharedCrop(t *testing.T) {
	s := newTestServer(t)

	crop := filepath.Join(s.cfg.ViolationDirectory, "violator_1.jpg")
	if err := os.WriteFile(crop, []byte{0xFF, 0xD8, 0xFF, 0xD9}, 0644); err != nil {
		t.Fatal(err)
	}
	var ids []int64
	for i := 0; i < 2; i++ {
		id, err := s.violations.Insert(&model.Violation{Filename: "violator_1.jpg", ImagePath: crop, CameraSource: "0"})
		if err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
		ids = append(ids, id)
	}

	if rec := s.do(t, http.MethodDelete, "/api/violations/"+strconv.FormatInt(ids[0], 10), nil, ""); rec.Code != http.StatusOK {
		t.Fatalf("first delete status = %d", rec.Code)
	}
	if _, err := os.Stat(crop); err != nil {
		t.Fatalf("crop still referenced by violation %d was removed: %v", ids[1], err)
	}

	if rec := s.do(t, http.MethodDelete, "/api/violations/"+strconv.FormatInt(ids[1], 10), nil, ""); rec.Code != http.StatusOK {
		t.Fatalf("second delete status = %d", rec.Code)
	}
	if _, err := os.Stat(crop); !os.IsNotExist(err) {
		t.Errorf("crop should be removed with its last violation, stat err = %v", err)
	}
}

func TestViolationErrors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   int
	}{
		{"get missing", http.MethodGet, "/api/violations/999", nil, http.StatusNotFound},
		{"update missing", http.MethodPut, "/api/violations/999", map[string]bool{"reviewed": true}, http.StatusNotFound},
		{"delete missing", http.MethodDelete, "/api/violations/999", nil, http.StatusNotFound},
		{"create without path", http.MethodPost, "/api/violations", map[string]string{}, http.StatusBadRequest},
		{"zero id", http.MethodGet, "/api/violations/0", nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := s.doJSON(t, tt.method, tt.path, tt.body); rec.Code != tt.want {
				t.Errorf("status = %d, expected %d", rec.Code, tt.want)
			}
		})
	}
}

// ========================================
// System control
// ========================================

func TestSystemControl(t *testing.T) {
	s := newTestServer(t)

	rec := s.doJSON(t, http.MethodPost, "/api/system/control", dto.ControlRequest{Action: dto.ActionStart, CameraSource: "1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("start status = %d: %s", rec.Code, rec.Body.String())
	}
	var started dto.ControlResponse
	decode(t, rec, &started)
	if started.Session == nil || started.CameraSource != "1" {
		t.Errorf("start = %+v", started)
	}

	if rec := s.doJSON(t, http.MethodPost, "/api/system/control", dto.ControlRequest{Action: dto.ActionStart}); rec.Code != http.StatusConflict {
		t.Errorf("second start status = %d", rec.Code)
	}

	var active dto.ActiveSession
	decode(t, s.do(t, http.MethodGet, "/api/system/control", nil, ""), &active)
	if active.ActiveSession == nil || active.ActiveSession.ID != started.Session.ID {
		t.Errorf("active = %+v", active.ActiveSession)
	}

	var status dto.SystemStatus
	decode(t, s.do(t, http.MethodGet, "/api/system/status", nil, ""), &status)
	if status.CameraStatus != service.CameraConnected {
		t.Errorf("status = %+v", status)
	}

	rec = s.doJSON(t, http.MethodPost, "/api/system/control", dto.ControlRequest{Action: dto.ActionStop})
	var stopped dto.ControlResponse
	decode(t, rec, &stopped)
	if rec.Code != http.StatusOK || stopped.Message != "Detection stopped" {
		t.Errorf("stop = %d %+v", rec.Code, stopped)
	}

	decode(t, s.do(t, http.MethodGet, "/api/system/control", nil, ""), &active)
	if active.ActiveSession != nil {
		t.Errorf("session still active: %+v", active.ActiveSession)
	}
}

func TestSystemControl_OtherActions(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		req  dto.ControlRequest
		want int
	}{
		{"stop when idle", dto.ControlRequest{Action: dto.ActionStop}, http.StatusOK},
		{"change camera", dto.ControlRequest{Action: dto.ActionChangeCam, CameraSource: "2"}, http.StatusOK},
		{"change camera without source", dto.ControlRequest{Action: dto.ActionChangeCam}, http.StatusBadRequest},
		{"health check", dto.ControlRequest{Action: dto.ActionHealthCheck, SessionData: &dto.SessionData{Health: "warning"}}, http.StatusOK},
		{"unknown action", dto.ControlRequest{Action: "reboot"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := s.doJSON(t, http.MethodPost, "/api/system/control", tt.req); rec.Code != tt.want {
				t.Errorf("status = %d, expected %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}

	var status dto.SystemStatus
	decode(t, s.do(t, http.MethodGet, "/api/system/status", nil, ""), &status)
	if status.SystemHealth != "warning" {
		t.Errorf("health = %s", status.SystemHealth)
	}
}

func TestSettings(t *testing.T) {
	s := newTestServer(t)

	rec := s.doJSON(t, http.MethodPost, "/api/system/settings", map[string]string{"confidence_threshold": "0.5"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rec.Code, rec.Body.String())
	}

	if rec := s.doJSON(t, http.MethodPost, "/api/system/settings", map[string]string{"confidence_threshold": "2"}); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid update status = %d", rec.Code)
	}

	var settings map[string]string
	decode(t, s.do(t, http.MethodGet, "/api/system/settings", nil, ""), &settings)
	if settings["confidence_threshold"] != "0.5" {
		t.Errorf("settings = %v", settings)
	}
}

// ========================================
// Logs
// ========================================

func TestLogs(t *testing.T) {
	s := newTestServer(t)

	// every request is logged, so info.log exists after the first one
	s.do(t, http.MethodGet, "/api/system/status", nil, "")

	if rec := s.do(t, http.MethodGet, "/logs/info", nil, ""); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "/api/system/status") {
		t.Errorf("info log = %d %q", rec.Code, rec.Body.String())
	}
	if rec := s.do(t, http.MethodGet, "/logs/debug", nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown level status = %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, "/logs/info/clear", nil, ""); rec.Code != http.StatusNoContent {
		t.Errorf("clear status = %d", rec.Code)
	}
}

