package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func drain(ch chan []byte) []string {
	var out []string
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe("")
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe("")
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: TypePolicyCreated, Data: map[string]string{"actor": "alice"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: policy.created") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"actor":"alice"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestTopicRouting(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	a := b.Subscribe("session-a")
	other := b.Subscribe("session-b")
	global := b.Subscribe("")

	b.Publish(Event{Topic: "session-a", Type: TypeDisclosureChanged, Data: map[string]string{"state": "open"}})
	b.Publish(Event{Type: TypeCapabilitiesChanged, Data: map[string]string{}})
	time.Sleep(50 * time.Millisecond)

	gotA := drain(a)
	if len(gotA) != 2 || !strings.Contains(gotA[0], TypeDisclosureChanged) {
		t.Errorf("session-a got %q", gotA)
	}
	if got := drain(other); len(got) != 1 || !strings.Contains(got[0], TypeCapabilitiesChanged) {
		t.Errorf("session-b got %q", got)
	}
	if got := drain(global); len(got) != 1 {
		t.Errorf("global got %q", got)
	}
}

func TestCloseTopic(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	a := b.Subscribe("s1")
	keep := b.Subscribe("s2")

	b.CloseTopic("s1")

	select {
	case _, ok := <-a:
		if ok {
			t.Fatal("expected s1 channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for topic close")
	}
	if b.ClientCount() != 1 {
		t.Errorf("clients = %d, want 1", b.ClientCount())
	}
	b.Unsubscribe(keep)
}

func TestPublishPolicyEvent_CapabilitiesThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe("")
	defer b.Unsubscribe(ch)

	b.PublishPolicyEvent("created", "alice.yaml", "alice")
	b.PublishPolicyEvent("updated", "bob.yaml", "bob")

	time.Sleep(50 * time.Millisecond)
	capsCount := 0
	policyCount := 0
	for _, s := range drain(ch) {
		if strings.Contains(s, TypeCapabilitiesChanged) {
			capsCount++
		} else {
			policyCount++
		}
	}

	if policyCount != 2 {
		t.Errorf("policy events = %d, want 2", policyCount)
	}
	if capsCount != 1 {
		t.Errorf("capabilities events = %d, want 1 (throttled)", capsCount)
	}
}

func TestServeTopic(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/s1/stream", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeTopic(w, req, "s1")
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.Publish(Event{Topic: "s1", Type: TypeNavigationRequested, Data: map[string]string{"url": "/leases"}})
	b.Publish(Event{Topic: "s2", Type: TypeDisclosureChanged, Data: map[string]string{}})
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: navigation.requested") {
		t.Errorf("handler output missing event: %q", body)
	}
	if strings.Contains(body, TypeDisclosureChanged) {
		t.Errorf("handler leaked another topic: %q", body)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestServeTopic_EndsWhenTopicClosed(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/s1/stream", nil)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeTopic(w, req, "s1")
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)

	b.CloseTopic("s1")
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler did not return after topic close")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe("")
	defer b.Unsubscribe(ch)

	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe("s1")
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	b.Publish(Event{Type: TypePolicyUpdated, Data: map[string]string{"path": "x.yaml"}})
	b.PublishPolicyEvent("updated", "x.yaml", "x")
	b.CloseTopic("s1")
}
