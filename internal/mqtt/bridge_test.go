package mqtt

import (
	"encoding/json"
	"log/slog"
	"testing"
)

func newTestBridge() *Bridge {
	return NewBridge("tcp://127.0.0.1:1883", "fleet/+/telemetry", nil, slog.Default())
}

func TestTopicVehicleID(t *testing.T) {
	cases := []struct {
		topic string
		want  string
	}{
		{"fleet/amb42/telemetry", "amb42"},
		{"fleet/ amb42 /telemetry", "amb42"},
		{"fleet/amb42/status", ""},
		{"other/amb42/telemetry", ""},
		{"fleet/telemetry", ""},
		{"fleet/a/b/telemetry", ""},
	}
	for _, tc := range cases {
		if got := topicVehicleID(tc.topic); got != tc.want {
			t.Errorf("topicVehicleID(%q) = %q, want %q", tc.topic, got, tc.want)
		}
	}
}

func TestWithTopicVehicleIDInjectsFromTopic(t *testing.T) {
	b := newTestBridge()
	out := b.withTopicVehicleID("fleet/amb42/telemetry", []byte(`{"latitude": 1.5}`))

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(out, &doc); err != nil {
		t.Fatalf("output not JSON: %v", err)
	}
	if string(doc["vehicle_id"]) != `"amb42"` {
		t.Fatalf("vehicle_id = %s, want \"amb42\"", doc["vehicle_id"])
	}
	if string(doc["latitude"]) != "1.5" {
		t.Fatalf("payload field lost: %s", out)
	}
}

func TestWithTopicVehicleIDKeepsExplicitID(t *testing.T) {
	b := newTestBridge()
	in := []byte(`{"vehicle_id": "explicit", "latitude": 1}`)
	out := b.withTopicVehicleID("fleet/amb42/telemetry", in)
	if string(out) != string(in) {
		t.Fatalf("payload with explicit vehicle_id must pass through untouched: %s", out)
	}
}

func TestWithTopicVehicleIDPassesMalformedThrough(t *testing.T) {
	b := newTestBridge()
	for _, in := range []string{"not json", `[1,2]`, `null`} {
		out := b.withTopicVehicleID("fleet/amb42/telemetry", []byte(in))
		if string(out) != in {
			t.Fatalf("malformed payload %q must pass through, got %q", in, out)
		}
	}
}

func TestWithTopicVehicleIDUnmatchedTopic(t *testing.T) {
	b := newTestBridge()
	in := []byte(`{"latitude": 1}`)
	out := b.withTopicVehicleID("fleet/amb42/status", in)
	if string(out) != string(in) {
		t.Fatalf("unmatched topic must not modify the payload: %s", out)
	}
}
