//go:build integration

package webdemo_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fastbot/internal/action"
	"fastbot/internal/operation"
	"fastbot/internal/uitree"
	"fastbot/internal/webdemo"
)

func TestDriverSnapshotAndApplyAgainstLocalPage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `<html><body>
			<button id="go">Go</button>
			<input id="name" placeholder="your name">
		</body></html>`)
	}))
	defer ts.Close()

	cfg := webdemo.Config{Headless: true, Timeout: 20 * time.Second}
	d, err := webdemo.Open(cfg, ts.URL)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer d.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	root, err := d.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	button := root.RecursiveFindFirst(func(e *uitree.Element) bool {
		return e.ResourceID == "go"
	})
	if button == nil {
		t.Fatal("expected to find the #go button in the snapshot tree")
	}

	input := root.RecursiveFindFirst(func(e *uitree.Element) bool {
		return e.ResourceID == "name"
	})
	if input == nil {
		t.Fatal("expected to find the #name input in the snapshot tree")
	}
	if input.Class != "android.widget.EditText" {
		t.Fatalf("expected input mapped to EditText class, got %q", input.Class)
	}

	op := &operation.Operation{Act: action.CLICK, Pos: &button.Bounds}
	if err := d.Apply(ctx, op); err != nil {
		t.Fatalf("Apply click: %v", err)
	}
}
