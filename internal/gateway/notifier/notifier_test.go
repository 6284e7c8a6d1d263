package notifier

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/cangate-io/cangate/internal/safety"
	"github.com/cangate-io/cangate/pkg/mqtt"
	"github.com/cangate-io/cangate/pkg/mqtt/topic"
)

type published struct {
	topic   string
	retain  bool
	payload []byte
}

// fakeClient records publishes and lets tests drive subscribed handlers.
type fakeClient struct {
	pubs     []published
	handlers map[string]mqtt.MessageHandler
}

func newFakeClient() *fakeClient {
	return &fakeClient{handlers: make(map[string]mqtt.MessageHandler)}
}

func (f *fakeClient) Start(ctx context.Context) error           { return nil }
func (f *fakeClient) Disconnect(ctx context.Context)            {}
func (f *fakeClient) AwaitConnection(ctx context.Context) error { return nil }

func (f *fakeClient) Publish(_ context.Context, topic string, _ int, retain bool, payload []byte) error {
	f.pubs = append(f.pubs, published{topic: topic, retain: retain, payload: payload})
	return nil
}

func (f *fakeClient) Subscribe(_ context.Context, topic string, _ int, h mqtt.MessageHandler) error {
	f.handlers[topic] = h
	return nil
}

func (f *fakeClient) Unsubscribe(_ context.Context, topic string) error {
	delete(f.handlers, topic)
	return nil
}

func TestPublishStateRetained(t *testing.T) {
	fc := newFakeClient()
	n := New(fc, topic.NewBuilder("cangate/v1"), "veh-1")

	snap := safety.Snapshot{Profile: "psa", ControlsAllowed: true}
	if err := n.PublishState(context.Background(), snap); err != nil {
		t.Fatalf("PublishState: %v", err)
	}

	if len(fc.pubs) != 1 {
		t.Fatalf("published %d messages, want 1", len(fc.pubs))
	}
	p := fc.pubs[0]
	if p.topic != "cangate/v1/state/veh-1" {
		t.Errorf("topic = %q", p.topic)
	}
	if !p.retain {
		t.Error("state snapshot not retained")
	}

	var got safety.Snapshot
	if err := json.Unmarshal(p.payload, &got); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if got.Profile != "psa" || !got.ControlsAllowed {
		t.Errorf("round-trip snapshot = %+v", got)
	}
}

func TestSubscribeCommands(t *testing.T) {
	fc := newFakeClient()
	n := New(fc, topic.NewBuilder("cangate/v1"), "veh-1")

	var got []safety.Frame
	submit := func(f safety.Frame) error {
		got = append(got, f)
		return nil
	}
	ctx := context.Background()
	if err := n.SubscribeCommands(ctx, submit); err != nil {
		t.Fatalf("SubscribeCommands: %v", err)
	}

	h, ok := fc.handlers["cangate/v1/command/veh-1"]
	if !ok {
		t.Fatalf("no handler on command topic, have %v", fc.handlers)
	}

	body, _ := json.Marshal(CommandRequest{ID: 1010, Bus: 2, Data: []byte{1, 2, 3, 4, 5, 6, 7, 8}})
	h(ctx, "cangate/v1/command/veh-1", body)

	if len(got) != 1 || got[0].ID != 1010 || got[0].Bus != 2 || len(got[0].Data) != 8 {
		t.Fatalf("submitted frames = %+v", got)
	}

	// Garbage and oversized payloads are dropped before submission.
	h(ctx, "cangate/v1/command/veh-1", []byte("{"))
	body, _ = json.Marshal(CommandRequest{ID: 1, Data: make([]byte, 9)})
	h(ctx, "cangate/v1/command/veh-1", body)
	if len(got) != 1 {
		t.Errorf("invalid payloads reached the relay: %+v", got)
	}
}
