package operation

import (
	"encoding/json"
	"testing"
	"time"

	"fastbot/internal/action"
	"fastbot/internal/geom"
)

func TestMarshalJSONRoundTripWithTarget(t *testing.T) {
	op := Operation{
		Act:      action.CLICK,
		Pos:      &geom.Rect{Left: 1, Top: 2, Right: 3, Bottom: 4},
		Throttle: 200 * time.Millisecond,
		WaitTime: time.Second,
		Editable: true,
		AdbInput: true,
		Text:     "hello",
		Widget:   &TargetWidget{Class: "android.widget.Button"},
		StateID:  7,
		ActionID: 9,
	}

	data, err := json.Marshal(op)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal to map: %v", err)
	}
	if raw["act"] != "CLICK" {
		t.Fatalf("expected act=CLICK, got %v", raw["act"])
	}

	var back Operation
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back.Act != action.CLICK || back.Pos == nil || *back.Pos != *op.Pos {
		t.Fatalf("round trip mismatch: %+v", back)
	}
	if back.Throttle != op.Throttle || back.WaitTime != op.WaitTime {
		t.Fatalf("duration round trip mismatch: %+v", back)
	}
}

func TestMarshalJSONNilPosBecomesNull(t *testing.T) {
	op := Operation{Act: action.BACK}
	data, err := json.Marshal(op)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var raw map[string]any
	json.Unmarshal(data, &raw)
	if raw["pos"] != nil {
		t.Fatalf("expected null pos, got %v", raw["pos"])
	}
}
