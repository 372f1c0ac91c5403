package statsd

import (
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"
)

func TestNormalizeMetricName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		" job/metric ":  "job_metric",
		"foo..bar":      "foo.bar",
		"multi  space":  "multi__space",
		".job.duration": "job.duration",
	}

	for input, want := range tests {
		if got := normalizeMetricName(input); got != want {
			t.Fatalf("normalizeMetricName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestFormatLine(t *testing.T) {
	t.Parallel()

	c := &Client{
		prefix: "promptjobs",
		globalTags: cleanTags(map[string]string{
			"env": "prod",
			//nolint:gocritic // whitespace is part of the test case
			" service ": " api ",
		}),
	}

	got := c.formatLine("job.transition", "1", "c", map[string]string{
		"result": " success ",
		"":       "ignored",
		"env":    "stage",
	})
	want := "promptjobs.job.transition:1|c|#env:stage,result:success,service:api"
	if got != want {
		t.Fatalf("formatLine mismatch\n got: %q\nwant: %q", got, want)
	}

	if got := (&Client{}).formatLine("queue.in_flight", "3", "g", nil); got != "queue.in_flight:3|g" {
		t.Fatalf("formatLine without tags = %q", got)
	}
	if got := c.formatLine("  ", "1", "c", nil); got != "" {
		t.Fatalf("empty metric name should render nothing, got %q", got)
	}
}

func TestClientWritesOverConnection(t *testing.T) {
	t.Parallel()

	clientConn, peerConn := net.Pipe()
	defer peerConn.Close()

	c := &Client{conn: clientConn, logger: slog.Default()}

	done := make(chan string, 1)
	go func() {
		buf := make([]byte, 256)
		n, _ := peerConn.Read(buf)
		done <- string(buf[:n])
	}()

	c.Timing("job.duration", 1500*time.Microsecond, map[string]string{"transition": "processed"})

	select {
	case line := <-done:
		if line != "job.duration:1.5|ms|#transition:processed" {
			t.Fatalf("unexpected line %q", line)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no metric written")
	}
}

func TestClientEnabledAndClose(t *testing.T) {
	t.Parallel()

	clientConn, peerConn := net.Pipe()
	defer peerConn.Close()

	client := &Client{conn: clientConn}
	if !client.Enabled() {
		t.Fatal("expected client.Enabled to report true with active connection")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if client.Enabled() {
		t.Fatal("expected client.Enabled to report false after Close")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("Close (second call) error: %v", err)
	}

	var nilClient *Client
	if nilClient.Enabled() {
		t.Fatal("nil client should report disabled")
	}
	nilClient.Count("x", 1, nil)
	if err := nilClient.Close(); err != nil {
		t.Fatalf("nil client Close error: %v", err)
	}
}

func TestNewClientDisabledWithoutAddress(t *testing.T) {
	t.Parallel()

	client, err := NewClient(Config{Enabled: true, Address: "   "})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	if client.Enabled() {
		t.Fatal("expected client to stay disabled when address is empty")
	}
}

func TestNewClientDialError(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{Enabled: true, Address: "bad address"})
	if err == nil {
		t.Fatal("expected NewClient to error for invalid address")
	}
	if !strings.Contains(err.Error(), "statsd dial") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRecorderFind(t *testing.T) {
	t.Parallel()

	var r Recorder
	r.Count("job.transition", 1, map[string]string{"transition": "processed", "result": "success"})
	r.Count("job.transition", 1, map[string]string{"transition": "reported", "result": "error"})
	r.Gauge("queue.in_flight", 2, nil)

	if got := len(r.Find("job.transition", map[string]string{"result": "error"})); got != 1 {
		t.Fatalf("Find by tag = %d samples, want 1", got)
	}
	if got := len(r.Find("job.transition", nil)); got != 2 {
		t.Fatalf("Find by name = %d samples, want 2", got)
	}
	if got := r.Find("queue.in_flight", nil); len(got) != 1 || got[0].Value != 2 {
		t.Fatalf("gauge sample = %+v", got)
	}
}
