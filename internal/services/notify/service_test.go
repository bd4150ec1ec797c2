package notify

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"sleeptimer/internal/eventbus"
	"sleeptimer/pkg/logx"
)

type recordingSink struct {
	mu    sync.Mutex
	got   []Message
	fail  int // fail the first n sends
	block chan struct{}
	seen  chan struct{}
}

func newRecordingSink() *recordingSink {
	return &recordingSink{seen: make(chan struct{}, 16)}
}

func (*recordingSink) Name() string { return "rec" }

func (r *recordingSink) Send(ctx context.Context, m Message) error {
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail > 0 {
		r.fail--
		return errors.New("transient")
	}
	r.got = append(r.got, m)
	r.seen <- struct{}{}
	return nil
}

func (r *recordingSink) messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.got...)
}

func waitSeen(t *testing.T, r *recordingSink) {
	t.Helper()
	select {
	case <-r.seen:
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
}

func TestWarnDeliversToEverySink(t *testing.T) {
	t.Parallel()
	a, b := newRecordingSink(), newRecordingSink()
	bus := eventbus.New()
	events, unsub := bus.Subscribe(8)
	defer unsub()

	s := New(Config{Enabled: true, RatePerSec: 100}, []Sink{a, b}, logx.Nop(), bus)
	s.Start(context.Background())
	defer s.Stop(context.Background())

	if err := s.Warn(context.Background(), "Sleep Timer", "Your computer will sleep in 1 minute"); err != nil {
		t.Fatalf("Warn: %v", err)
	}
	waitSeen(t, a)
	waitSeen(t, b)
	if got := a.messages(); len(got) != 1 || got[0].Title != "Sleep Timer" {
		t.Fatalf("sink a got %+v", got)
	}
	if e := <-events; e.Type != TopicSent {
		t.Fatalf("first bus event %q, want %q", e.Type, TopicSent)
	}
	if len(s.History()) < 1 {
		t.Fatal("history not recorded")
	}
}

func TestDedupWindowSuppressesRepeats(t *testing.T) {
	t.Parallel()
	sink := newRecordingSink()
	s := New(Config{Enabled: true, RatePerSec: 100, DedupWindow: time.Minute}, []Sink{sink}, logx.Nop(), nil)
	var clockMu sync.Mutex
	now := time.Date(2024, time.January, 1, 21, 59, 0, 0, time.UTC)
	s.now = func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		return now
	}
	s.Start(context.Background())
	defer s.Stop(context.Background())

	for i := 0; i < 3; i++ {
		if err := s.Warn(context.Background(), "t", "b"); err != nil {
			t.Fatal(err)
		}
	}
	waitSeen(t, sink)

	clockMu.Lock()
	now = now.Add(2 * time.Minute)
	clockMu.Unlock()
	if err := s.Warn(context.Background(), "t", "b"); err != nil {
		t.Fatal(err)
	}
	waitSeen(t, sink)
	if got := len(sink.messages()); got != 2 {
		t.Fatalf("delivered %d messages, want 2", got)
	}
}

func TestRetryAfterTransientFailure(t *testing.T) {
	t.Parallel()
	sink := newRecordingSink()
	sink.fail = 1
	s := New(Config{Enabled: true, RatePerSec: 100, RetryMax: 2, RetryBase: time.Millisecond}, []Sink{sink}, logx.Nop(), nil)
	s.Start(context.Background())
	defer s.Stop(context.Background())

	if err := s.Warn(context.Background(), "t", "b"); err != nil {
		t.Fatal(err)
	}
	waitSeen(t, sink)
}

func TestQueueFull(t *testing.T) {
	t.Parallel()
	sink := newRecordingSink()
	sink.block = make(chan struct{})
	s := New(Config{Enabled: true, RatePerSec: 100, QueueSize: 1}, []Sink{sink}, logx.Nop(), nil)
	s.Start(context.Background())

	ctx := context.Background()
	if err := s.Warn(ctx, "1", "b"); err != nil {
		t.Fatal(err)
	}
	// Wait for the worker to pick up the first message.
	deadline := time.Now().Add(2 * time.Second)
	for {
		s.mu.Lock()
		n := len(s.queue)
		s.mu.Unlock()
		if n == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("worker never dequeued")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err := s.Warn(ctx, "2", "b"); err != nil {
		t.Fatal(err)
	}
	if err := s.Warn(ctx, "3", "b"); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("err = %v, want ErrQueueFull", err)
	}
	close(sink.block)
	s.Stop(context.Background())
	if err := s.Warn(ctx, "4", "b"); !errors.Is(err, ErrStopped) {
		t.Fatalf("after stop err = %v, want ErrStopped", err)
	}
}

func TestDisabled(t *testing.T) {
	t.Parallel()
	s := New(Config{}, nil, logx.Nop(), nil)
	s.Start(context.Background())
	if err := s.Warn(context.Background(), "t", "b"); !errors.Is(err, ErrDisabled) {
		t.Fatalf("err = %v, want ErrDisabled", err)
	}
}

func TestDesktopCommand(t *testing.T) {
	t.Parallel()
	m := Message{Title: `Sleep "Timer"`, Body: "Your computer will sleep in 1 minute"}
	tests := []struct {
		goos    string
		want    string
		wantErr bool
	}{
		{"linux", "notify-send", false},
		{"darwin", "osascript", false},
		{"plan9", "", true},
	}
	for _, tt := range tests {
		argv, err := DesktopCommand(tt.goos, m)
		if tt.wantErr {
			if !errors.Is(err, ErrNoDesktop) {
				t.Fatalf("%s: err = %v", tt.goos, err)
			}
			continue
		}
		if err != nil || argv[0] != tt.want {
			t.Fatalf("%s: argv = %v, err = %v", tt.goos, argv, err)
		}
	}
	argv, _ := DesktopCommand("darwin", m)
	if !strings.Contains(argv[2], `with title "Sleep \"Timer\""`) {
		t.Fatalf("title not escaped: %s", argv[2])
	}

	var ran []string
	sink := DesktopSink{GOOS: "linux", Run: func(ctx context.Context, argv []string) error {
		ran = argv
		return nil
	}}
	if err := sink.Send(context.Background(), m); err != nil || ran[len(ran)-1] != m.Body {
		t.Fatalf("Send ran %v, err %v", ran, err)
	}
}

func TestTelegramSink(t *testing.T) {
	t.Parallel()
	var (
		mu   sync.Mutex
		path string
		body string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		path, body = r.URL.Path, string(b)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"},"text":"x"}}`)
	}))
	defer srv.Close()

	sink, err := NewTelegramSink(TelegramConfig{Token: "123:abc", ChatID: 42, APIURL: srv.URL})
	if err != nil {
		t.Fatalf("NewTelegramSink: %v", err)
	}
	if err := sink.Send(context.Background(), Message{Title: "Sleep Timer", Body: "soon"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if !strings.HasSuffix(path, "/sendMessage") || !strings.Contains(body, "Sleep Timer") {
		t.Fatalf("request path %q body %q", path, body)
	}

	if _, err := NewTelegramSink(TelegramConfig{Token: "x"}); err == nil {
		t.Fatal("missing chat id must fail")
	}
}
