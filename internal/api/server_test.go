package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/garage/internal/models"
	"github.com/zulandar/garage/internal/store"
	"github.com/zulandar/garage/internal/uploads"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var imageURLPattern = regexp.MustCompile(`^/uploads/\d+-\d+\.png$`)

// newTestServer starts an httptest server over a fresh in-memory database
// and a temp uploads directory.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.Build{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	gin.SetMode(gin.TestMode)
	router, err := newRouter(db, filepath.Join(t.TempDir(), "uploads"))
	if err != nil {
		t.Fatalf("newRouter: %v", err)
	}

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

// tinyPNG encodes a 1x1 PNG.
func tinyPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func doRequest(t *testing.T, method, url string, body io.Reader) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func sampleRecord(id string) store.Record {
	return store.Record{
		ID:            id,
		Name:          "CB750 Cafe Racer",
		Category:      "honda",
		Year:          1977,
		Description:   "Classic cafe racer conversion",
		Modifications: "clip-ons, rearsets, megaphone exhaust",
		Image:         "https://example.com/cb750.jpg",
		Specs: store.Specs{
			Engine:   "736cc inline-four",
			Power:    "67 hp",
			Torque:   "60 Nm",
			Weight:   "218 kg",
			TopSpeed: "200 km/h",
		},
	}
}

func TestCreateThenList_SpecsReconstituted(t *testing.T) {
	srv := newTestServer(t)
	in := sampleRecord("cb750-cafe")

	resp := postJSON(t, srv.URL+"/api/motorcycles", in)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}
	var created store.Record
	decodeBody(t, resp, &created)
	if created.CreatedAt.IsZero() {
		t.Error("created_at not assigned")
	}

	resp = doRequest(t, http.MethodGet, srv.URL+"/api/motorcycles", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d, want 200", resp.StatusCode)
	}
	var records []store.Record
	decodeBody(t, resp, &records)
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	if records[0].Specs != in.Specs {
		t.Errorf("Specs = %+v, want %+v", records[0].Specs, in.Specs)
	}
	if records[0].Name != in.Name || records[0].Year != in.Year {
		t.Errorf("record = %+v, want input values", records[0])
	}
}

func TestCreate_DuplicateID_Conflict(t *testing.T) {
	srv := newTestServer(t)
	rec := sampleRecord("dup")

	if resp := postJSON(t, srv.URL+"/api/motorcycles", rec); resp.StatusCode != http.StatusCreated {
		t.Fatalf("first create status = %d, want 201", resp.StatusCode)
	}
	resp := postJSON(t, srv.URL+"/api/motorcycles", rec)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate create status = %d, want 409", resp.StatusCode)
	}
}

func TestCreate_InvalidJSON(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Post(srv.URL+"/api/motorcycles", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCreate_MissingRequiredFields(t *testing.T) {
	srv := newTestServer(t)
	resp := postJSON(t, srv.URL+"/api/motorcycles", map[string]interface{}{"id": "x"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestUpdate_FullReplacement(t *testing.T) {
	srv := newTestServer(t)
	if resp := postJSON(t, srv.URL+"/api/motorcycles", sampleRecord("cb750-cafe")); resp.StatusCode != http.StatusCreated {
		t.Fatalf("create failed: %d", resp.StatusCode)
	}

	replacement := store.Record{
		Name:     "CB750 Restomod",
		Category: "honda",
		Year:     1978,
		Specs:    store.Specs{Engine: "823cc big-bore kit"},
	}
	data, _ := json.Marshal(replacement)
	resp := doRequest(t, http.MethodPut, srv.URL+"/api/motorcycles/cb750-cafe", bytes.NewReader(data))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status = %d, want 200", resp.StatusCode)
	}
	var updated store.Record
	decodeBody(t, resp, &updated)
	if updated.ID != "cb750-cafe" {
		t.Errorf("ID = %q, want unchanged", updated.ID)
	}
	if updated.Description != "" || updated.Image != "" {
		t.Errorf("omitted fields survived: %q/%q", updated.Description, updated.Image)
	}
	if updated.Specs.Power != "" {
		t.Errorf("omitted spec survived: %q", updated.Specs.Power)
	}
}

func TestUpdate_UnknownID(t *testing.T) {
	srv := newTestServer(t)
	data, _ := json.Marshal(sampleRecord("ghost"))
	resp := doRequest(t, http.MethodPut, srv.URL+"/api/motorcycles/ghost", bytes.NewReader(data))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestDelete_BothRoutes(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name       string
		doDelete   func(id string) *http.Response
		wantStatus int
	}{
		{
			name: "DELETE verb",
			doDelete: func(id string) *http.Response {
				return doRequest(t, http.MethodDelete, srv.URL+"/api/motorcycles/"+id, nil)
			},
			wantStatus: http.StatusNoContent,
		},
		{
			name: "POST fallback",
			doDelete: func(id string) *http.Response {
				return doRequest(t, http.MethodPost, srv.URL+"/api/motorcycles/"+id+"/delete", nil)
			},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := fmt.Sprintf("del-%d", tt.wantStatus)
			if resp := postJSON(t, srv.URL+"/api/motorcycles", sampleRecord(id)); resp.StatusCode != http.StatusCreated {
				t.Fatalf("create failed: %d", resp.StatusCode)
			}

			resp := tt.doDelete(id)
			resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("delete status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}

			// Second delete of the same id distinguishes "already deleted".
			resp = tt.doDelete(id)
			resp.Body.Close()
			if resp.StatusCode != http.StatusNotFound {
				t.Errorf("repeat delete status = %d, want 404", resp.StatusCode)
			}
		})
	}
}

func TestDeletePostVariant_SuccessBody(t *testing.T) {
	srv := newTestServer(t)
	if resp := postJSON(t, srv.URL+"/api/motorcycles", sampleRecord("gone")); resp.StatusCode != http.StatusCreated {
		t.Fatalf("create failed: %d", resp.StatusCode)
	}

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/motorcycles/gone/delete", nil)
	var body map[string]bool
	decodeBody(t, resp, &body)
	if !body["success"] {
		t.Errorf("body = %v, want {success:true}", body)
	}
}

func TestUpload_DataURI_EndToEnd(t *testing.T) {
	srv := newTestServer(t)
	pngBytes := tinyPNG(t)

	resp := postJSON(t, srv.URL+"/api/upload", map[string]string{
		"image":    "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes),
		"fileName": "x.png",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload status = %d, want 200", resp.StatusCode)
	}
	var body map[string]string
	decodeBody(t, resp, &body)
	ref := body["imageUrl"]
	if !imageURLPattern.MatchString(ref) {
		t.Fatalf("imageUrl = %q, want to match %s", ref, imageURLPattern)
	}

	// The reference is retrievable immediately, byte-identical.
	getResp := doRequest(t, http.MethodGet, srv.URL+ref, nil)
	defer getResp.Body.Close()
	if getResp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s status = %d, want 200", ref, getResp.StatusCode)
	}
	got, err := io.ReadAll(getResp.Body)
	if err != nil {
		t.Fatalf("read asset: %v", err)
	}
	if !bytes.Equal(got, pngBytes) {
		t.Error("served bytes differ from uploaded PNG")
	}
}

func TestUpload_MissingFields(t *testing.T) {
	srv := newTestServer(t)
	tests := []struct {
		name string
		body map[string]string
	}{
		{"no image", map[string]string{"fileName": "x.png"}},
		{"no filename", map[string]string{"image": base64.StdEncoding.EncodeToString([]byte{1})}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/api/upload", tt.body)
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestUpload_OverCeiling(t *testing.T) {
	srv := newTestServer(t)

	// One byte over the decoded ceiling; the encoded form still fits under
	// the transport cap, so the ingestion service does the rejecting.
	payload := base64.StdEncoding.EncodeToString(make([]byte, uploads.MaxBytes+1))
	resp := postJSON(t, srv.URL+"/api/upload", map[string]string{
		"image":    payload,
		"fileName": "big.png",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", resp.StatusCode)
	}
}

func TestUpload_BodyOverTransportCap(t *testing.T) {
	srv := newTestServer(t)

	// A request body past the transport cap is cut off before JSON parsing.
	body := `{"image":"` + strings.Repeat("A", maxUploadBody+1) + `","fileName":"big.png"}`
	resp, err := http.Post(srv.URL+"/api/upload", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", resp.StatusCode)
	}
}

func TestUploadFile_OverCeiling(t *testing.T) {
	srv := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "huge.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write(make([]byte, uploads.MaxBytes+1))
	mw.Close()

	resp, err := http.Post(srv.URL+"/api/upload/file", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST multipart: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", resp.StatusCode)
	}
}

func TestUploadFile_Multipart(t *testing.T) {
	srv := newTestServer(t)
	pngBytes := tinyPNG(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "tank.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write(pngBytes)
	mw.Close()

	resp, err := http.Post(srv.URL+"/api/upload/file", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST multipart: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload status = %d, want 200", resp.StatusCode)
	}
	var body map[string]string
	decodeBody(t, resp, &body)
	if !imageURLPattern.MatchString(body["imageUrl"]) {
		t.Fatalf("imageUrl = %q, want to match %s", body["imageUrl"], imageURLPattern)
	}

	getResp := doRequest(t, http.MethodGet, srv.URL+body["imageUrl"], nil)
	defer getResp.Body.Close()
	got, err := io.ReadAll(getResp.Body)
	if err != nil {
		t.Fatalf("read asset: %v", err)
	}
	if !bytes.Equal(got, pngBytes) {
		t.Error("served bytes differ from uploaded file")
	}
}

func TestUploadFile_MissingFile(t *testing.T) {
	srv := newTestServer(t)
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("note", "no file here")
	mw.Close()

	resp, err := http.Post(srv.URL+"/api/upload/file", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST multipart: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestUploads_UnknownReference(t *testing.T) {
	srv := newTestServer(t)
	resp := doRequest(t, http.MethodGet, srv.URL+"/uploads/nonexistent.png", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestDeleteRecord_LeavesAssetRetrievable(t *testing.T) {
	srv := newTestServer(t)
	pngBytes := tinyPNG(t)

	resp := postJSON(t, srv.URL+"/api/upload", map[string]string{
		"image":    base64.StdEncoding.EncodeToString(pngBytes),
		"fileName": "keep.png",
	})
	var body map[string]string
	decodeBody(t, resp, &body)
	ref := body["imageUrl"]

	rec := sampleRecord("orphaner")
	rec.Image = ref
	if resp := postJSON(t, srv.URL+"/api/motorcycles", rec); resp.StatusCode != http.StatusCreated {
		t.Fatalf("create failed: %d", resp.StatusCode)
	}
	delResp := doRequest(t, http.MethodDelete, srv.URL+"/api/motorcycles/orphaner", nil)
	delResp.Body.Close()
	if delResp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", delResp.StatusCode)
	}

	// Record deletion does not cascade to the asset.
	getResp := doRequest(t, http.MethodGet, srv.URL+ref, nil)
	defer getResp.Body.Close()
	if getResp.StatusCode != http.StatusOK {
		t.Errorf("GET %s after record delete = %d, want 200", ref, getResp.StatusCode)
	}
}

func TestStart_NilDB(t *testing.T) {
	err := Start(context.Background(), StartOpts{DB: nil})
	if err == nil {
		t.Fatal("expected error for nil db")
	}
	if !strings.Contains(err.Error(), "db is required") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "db is required")
	}
}

func TestStartOpts_ZeroValue(t *testing.T) {
	opts := StartOpts{}
	if opts.DB != nil || opts.Port != 0 || opts.Out != nil || opts.UploadsDir != "" {
		t.Error("zero-value StartOpts should have nil/zero fields")
	}
}
