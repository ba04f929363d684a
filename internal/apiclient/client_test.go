package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"

	"scribeview/sync-engine/models"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestGetFileSortsSegments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/files/f1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "f1",
			"status": "completed",
			"segments": [
				{"id": "s2", "text": "later", "start_time": 9, "end_time": 10},
				{"id": "s3", "text": "untimed"},
				{"id": "s1", "text": "early", "start_time": 1, "end_time": 2}
			]
		}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", testLogger())
	file, err := c.GetFile(context.Background(), "f1")
	if err != nil {
		t.Fatal(err)
	}

	var order []string
	for _, seg := range file.Segments {
		order = append(order, seg.ID)
	}
	want := []string{"s1", "s2", "s3"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("segment order = %v, want %v (untimed last)", order, want)
		}
	}
}

func TestErrorResponseBecomesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"message": "pipeline unavailable"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "", testLogger())
	err := c.Reprocess(context.Background(), "f1")
	if err == nil {
		t.Fatal("expected an error")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type %T, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusBadGateway || apiErr.Message != "pipeline unavailable" {
		t.Errorf("unexpected APIError %+v", apiErr)
	}
}

func TestUpdateSegmentSendsText(t *testing.T) {
	var gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		buf := make([]byte, 256)
		n, _ := r.Body.Read(buf)
		gotBody = string(buf[:n])
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, "", testLogger())
	if err := c.UpdateSegment(context.Background(), "f1", "s1", "edited text"); err != nil {
		t.Fatal(err)
	}
	if gotPath != "/api/files/f1/transcript/segments/s1" {
		t.Errorf("path = %q", gotPath)
	}
	if gotBody != `{"text":"edited text"}` {
		t.Errorf("body = %q", gotBody)
	}
}

func TestUpdateTranscriptPutsFullTranscript(t *testing.T) {
	var gotMethod, gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		buf := make([]byte, 512)
		n, _ := r.Body.Read(buf)
		gotBody = string(buf[:n])
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	start, end := 1.0, 2.0
	data := &models.TranscriptData{Segments: []models.TranscriptSegment{
		{ID: "s1", Text: "hello", StartTime: &start, EndTime: &end},
	}}

	c := New(srv.URL, "", testLogger())
	if err := c.UpdateTranscript(context.Background(), "f1", data); err != nil {
		t.Fatal(err)
	}
	if gotMethod != http.MethodPut {
		t.Errorf("method = %q, want PUT", gotMethod)
	}
	if gotPath != "/api/files/f1/transcript" {
		t.Errorf("path = %q", gotPath)
	}
	want := `{"segments":[{"id":"s1","text":"hello","start_time":1,"end_time":2}]}`
	if gotBody != want {
		t.Errorf("body = %q, want %q", gotBody, want)
	}
}

func TestGetSpeakersQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/speakers" || r.URL.Query().Get("file_id") != "f1" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		w.Write([]byte(`[{"name": "SPEAKER_00", "display_name": "Alice"}]`))
	}))
	defer srv.Close()

	c := New(srv.URL, "", testLogger())
	speakers, err := c.GetSpeakers(context.Background(), "f1")
	if err != nil {
		t.Fatal(err)
	}
	if len(speakers) != 1 || speakers[0].DisplayName != "Alice" {
		t.Errorf("speakers = %+v", speakers)
	}
}
