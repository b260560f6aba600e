package workorder

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fieldvoice/internal/domain"
)

func testClient(url string) *Client {
	return NewClient(Config{
		APIBase: url,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestList_Filters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/work-orders" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("status") != "scheduled" {
			t.Errorf("status filter missing: %s", r.URL.RawQuery)
		}
		if r.URL.Query().Get("date") != "2026-09-01" {
			t.Errorf("date filter missing: %s", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode([]domain.WorkOrder{
			{ID: "wo-1", CustomerName: "田中様", Model: "RAS-X40M2", Status: "scheduled"},
		})
	}))
	defer srv.Close()

	orders, err := testClient(srv.URL).List(context.Background(), ListFilter{
		Status: "scheduled",
		Date:   "2026-09-01",
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(orders) != 1 || orders[0].CustomerName != "田中様" {
		t.Errorf("unexpected orders: %+v", orders)
	}
}

func TestList_NoFilterOmitsQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery != "" {
			t.Errorf("empty filter must not send query params: %s", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode([]domain.WorkOrder{})
	}))
	defer srv.Close()

	if _, err := testClient(srv.URL).List(context.Background(), ListFilter{}); err != nil {
		t.Fatalf("List: %v", err)
	}
}

func TestGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/work-orders/wo-7" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(domain.WorkOrder{ID: "wo-7", Model: "SZRC160BYN"})
	}))
	defer srv.Close()

	order, err := testClient(srv.URL).Get(context.Background(), "wo-7")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if order.Model != "SZRC160BYN" {
		t.Errorf("unexpected order: %+v", order)
	}
}

func TestUpdate_PatchShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("expected PATCH, got %s", r.Method)
		}
		var fields map[string]any
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if fields["status"] != "in_progress" {
			t.Errorf("patch fields lost: %+v", fields)
		}
		json.NewEncoder(w).Encode(domain.WorkOrder{ID: "wo-1", Status: "in_progress"})
	}))
	defer srv.Close()

	order, err := testClient(srv.URL).Update(context.Background(), "wo-1",
		map[string]any{"status": "in_progress"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if order.Status != "in_progress" {
		t.Errorf("unexpected order: %+v", order)
	}
}

func TestSubmitReport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/work-reports/rep-1/submit" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(domain.WorkReport{ID: "rep-1", Status: "submitted"})
	}))
	defer srv.Close()

	report, err := testClient(srv.URL).SubmitReport(context.Background(), "rep-1")
	if err != nil {
		t.Fatalf("SubmitReport: %v", err)
	}
	if report.Status != "submitted" {
		t.Errorf("unexpected report: %+v", report)
	}
}

func TestUploadPhoto_MultipartShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		file, header, err := r.FormFile("photo")
		if err != nil {
			t.Fatalf("photo part missing: %v", err)
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if string(data) != "jpegdata" {
			t.Errorf("photo bytes corrupted: %q", data)
		}
		if header.Filename != "before.jpg" {
			t.Errorf("unexpected filename %s", header.Filename)
		}
		if r.FormValue("work_report_id") != "rep-1" {
			t.Errorf("work_report_id missing")
		}
		if r.FormValue("photo_type") != "before" {
			t.Errorf("photo_type missing")
		}
		if r.FormValue("caption") != "設置前" {
			t.Errorf("caption missing")
		}
		json.NewEncoder(w).Encode(domain.WorkPhoto{ID: "ph-1", PhotoType: domain.PhotoBefore})
	}))
	defer srv.Close()

	photo, err := testClient(srv.URL).UploadPhoto(context.Background(),
		"rep-1", domain.PhotoBefore, "設置前", "before.jpg", []byte("jpegdata"))
	if err != nil {
		t.Fatalf("UploadPhoto: %v", err)
	}
	if photo.ID != "ph-1" {
		t.Errorf("unexpected photo: %+v", photo)
	}
}

func TestDeletePhoto(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/api/v1/work-photos/ph-1" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	if err := testClient(srv.URL).DeletePhoto(context.Background(), "ph-1"); err != nil {
		t.Fatalf("DeletePhoto: %v", err)
	}
}

func TestAddMaterial(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var got domain.UsedMaterial
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.Name != "冷媒配管" || got.Quantity != 4.5 {
			t.Errorf("material fields lost: %+v", got)
		}
		got.ID = "m-1"
		json.NewEncoder(w).Encode(got)
	}))
	defer srv.Close()

	material, err := testClient(srv.URL).AddMaterial(context.Background(), domain.UsedMaterial{
		WorkReportID: "rep-1",
		Name:         "冷媒配管",
		Quantity:     4.5,
		Unit:         "m",
	})
	if err != nil {
		t.Fatalf("AddMaterial: %v", err)
	}
	if material.ID != "m-1" {
		t.Errorf("unexpected material: %+v", material)
	}
}

func TestDo_SurfacesDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"detail": "案件が見つかりません"})
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Get(context.Background(), "wo-x")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "案件が見つかりません") {
		t.Errorf("detail message not surfaced: %v", err)
	}
}
