package alarms

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"weatherbot/internal/model"
)

type mockTransport struct {
	body       string
	statusCode int
	err        error
	requests   []string
}

func (m *mockTransport) Do(req *http.Request) (*http.Response, error) {
	m.requests = append(m.requests, req.URL.String())
	if m.err != nil {
		return nil, m.err
	}
	return &http.Response{
		StatusCode: m.statusCode,
		Body:       io.NopCloser(bytes.NewBufferString(m.body)),
	}, nil
}

func loadFixture(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture %s: %v", path, err)
	}
	return string(data)
}

func newTestClient(transport *mockTransport) *Client {
	c := NewWithBaseURL(transport, "https://alarm.test")
	c.backoff = time.Millisecond
	return c
}

func TestFetchLatest(t *testing.T) {
	body := loadFixture(t, "../../testdata/alarm_list.json")

	tests := []struct {
		name       string
		transport  *mockTransport
		count      int
		wantAlarms int
		wantErr    bool
	}{
		{
			name:       "successful fetch",
			transport:  &mockTransport{body: body, statusCode: 200},
			count:      3,
			wantAlarms: 3,
		},
		{
			name:       "count below page size truncates",
			transport:  &mockTransport{body: body, statusCode: 200},
			count:      2,
			wantAlarms: 2,
		},
		{
			name:      "http error status",
			transport: &mockTransport{body: "gone", statusCode: 503},
			count:     3,
			wantErr:   true,
		},
		{
			name:      "network error",
			transport: &mockTransport{err: io.ErrUnexpectedEOF},
			count:     3,
			wantErr:   true,
		},
		{
			name:      "invalid json",
			transport: &mockTransport{body: "<html>block page</html>", statusCode: 200},
			count:     3,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(tt.transport)
			alarms, err := c.FetchLatest(context.Background(), tt.count)

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.wantAlarms, len(alarms)); diff != "" {
				t.Errorf("alarm count mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFetchLatestFields(t *testing.T) {
	transport := &mockTransport{body: loadFixture(t, "../../testdata/alarm_list.json"), statusCode: 200}
	c := newTestClient(transport)

	alarms, err := c.FetchLatest(context.Background(), 1)
	if err != nil {
		t.Fatalf("fetch latest: %v", err)
	}

	want := []model.Alarm{{
		AlertID:   "44010041600000_20240601120000",
		Title:     "广东省广州市气象台发布暴雨红色预警",
		IssueTime: "2024-06-01 12:00",
		URL:       "/publish/alarm/44010041600000_20240601120000.html",
		Pic:       "/product/pic/slys/44010041600000.jpg",
	}}
	if diff := cmp.Diff(want, alarms); diff != "" {
		t.Errorf("alarms mismatch (-want +got):\n%s", diff)
	}

	if len(transport.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(transport.requests))
	}
	if got := transport.requests[0]; !strings.Contains(got, "/rest/findAlarm?pageNo=1&pageSize=1") {
		t.Errorf("unexpected request url %q", got)
	}
}

func TestFetchLatestRetriesTransientErrors(t *testing.T) {
	transport := &mockTransport{err: io.ErrUnexpectedEOF}
	c := newTestClient(transport)

	_, err := c.FetchLatest(context.Background(), 3)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	// Initial attempt plus two retries.
	if got := len(transport.requests); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestFetchDetail(t *testing.T) {
	tests := []struct {
		name        string
		transport   *mockTransport
		wantTitle   string
		wantContent string
		wantErr     bool
	}{
		{
			name:        "alarmtext div",
			transport:   &mockTransport{body: loadFixture(t, "../../testdata/alarm_detail.html"), statusCode: 200},
			wantTitle:   "广东省广州市气象台发布暴雨红色预警 - 中国气象局",
			wantContent: "广州市气象台于6月1日12时00分发布暴雨红色预警信号：预计未来3小时内本市降水量将达100毫米以上，请停课停业并做好防御工作。",
		},
		{
			name:        "paragraph fallback",
			transport:   &mockTransport{body: loadFixture(t, "../../testdata/alarm_detail_noalarmtext.html"), statusCode: 200},
			wantTitle:   "气象预警详情",
			wantContent: "请关注天气变化，注意防御强降水可能引发的城市内涝等灾害。",
		},
		{
			name:        "fetch failure keeps placeholder",
			transport:   &mockTransport{statusCode: 500, body: "boom"},
			wantContent: "暂无详情",
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(tt.transport)
			detail, err := c.FetchDetail(context.Background(), "/publish/alarm/a.html")

			if tt.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			want := model.AlarmDetail{Title: tt.wantTitle, Content: tt.wantContent}
			if diff := cmp.Diff(want, detail); diff != "" {
				t.Errorf("detail mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	c := NewWithBaseURL(&mockTransport{}, "https://alarm.test/")

	tests := []struct {
		in   string
		want string
	}{
		{"/publish/alarm/a.html", "https://alarm.test/publish/alarm/a.html"},
		{"https://elsewhere.example/x.html", "https://elsewhere.example/x.html"},
	}
	for _, tt := range tests {
		if got := c.Resolve(tt.in); got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
