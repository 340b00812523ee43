// Package operation is the engine's output type: the single instruction
// Model.Step hands back to the driver each time it is called (spec.md
// §6.2).
package operation

import (
	"encoding/json"
	"time"

	"fastbot/internal/action"
	"fastbot/internal/geom"
)

// TargetWidget is the "widget" JSON field: an xpath-ish description of the
// element an Operation acts on, embedded for driver-side logging/replay
// rather than re-resolution.
type TargetWidget struct {
	Class       string `json:"class,omitempty"`
	ResourceID  string `json:"resource_id,omitempty"`
	Text        string `json:"text,omitempty"`
	ContentDesc string `json:"content_desc,omitempty"`
}

// Operation is the structured form of spec.md §6.2's output; MarshalJSON
// produces the equivalent JSON form from the same fields.
type Operation struct {
	Act      action.Type
	Pos      *geom.Rect
	Throttle time.Duration
	WaitTime time.Duration
	Editable bool
	AdbInput bool
	Text     string
	Widget   *TargetWidget
	StateID  int
	ActionID int
}

type wireOperation struct {
	Act      action.Type   `json:"act"`
	Pos      *[4]int32     `json:"pos"`
	Throttle int64         `json:"throttle"`
	WaitTime int64         `json:"wait_time"`
	Editable bool          `json:"editable"`
	AdbInput bool          `json:"adb_input"`
	Text     string        `json:"text"`
	Widget   *TargetWidget `json:"widget"`
	StateID  int           `json:"sid"`
	ActionID int           `json:"aid"`
}

// MarshalJSON implements the spec.md §6.2 JSON form: pos is [l,t,r,b] or
// null, throttle/wait_time are milliseconds.
func (op Operation) MarshalJSON() ([]byte, error) {
	w := wireOperation{
		Act:      op.Act,
		Throttle: op.Throttle.Milliseconds(),
		WaitTime: op.WaitTime.Milliseconds(),
		Editable: op.Editable,
		AdbInput: op.AdbInput,
		Text:     op.Text,
		Widget:   op.Widget,
		StateID:  op.StateID,
		ActionID: op.ActionID,
	}
	if op.Pos != nil {
		s := op.Pos.AsSlice()
		w.Pos = &s
	}
	return json.Marshal(w)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (op *Operation) UnmarshalJSON(data []byte) error {
	var w wireOperation
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	op.Act = w.Act
	op.Throttle = time.Duration(w.Throttle) * time.Millisecond
	op.WaitTime = time.Duration(w.WaitTime) * time.Millisecond
	op.Editable = w.Editable
	op.AdbInput = w.AdbInput
	op.Text = w.Text
	op.Widget = w.Widget
	op.StateID = w.StateID
	op.ActionID = w.ActionID
	if w.Pos != nil {
		op.Pos = &geom.Rect{Left: w.Pos[0], Top: w.Pos[1], Right: w.Pos[2], Bottom: w.Pos[3]}
	}
	return nil
}
