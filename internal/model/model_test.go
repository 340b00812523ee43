package model

import (
	"testing"

	"fastbot/internal/action"
	"fastbot/internal/config"
	"fastbot/internal/preference"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Persistence.Enabled = false
	cfg.Agent.BlockDetectionEnabled = true
	return cfg
}

func sampleXML(resourceID, text string) []byte {
	return []byte(`<?xml version="1.0"?>
<hierarchy>
  <node class="android.widget.FrameLayout" bounds="[0,0][1000,2000]">
    <node class="android.widget.Button" resource-id="` + resourceID + `" text="` + text + `" bounds="[10,10][200,100]" clickable="true" enabled="true"/>
  </node>
</hierarchy>`)
}

func TestStepBuildsOperationFromXMLSnapshot(t *testing.T) {
	m := New(testConfig(), nil)
	op := m.Step("device-1", sampleXML("com.app:id/ok", "OK"), "MainActivity")
	if op == nil {
		t.Fatal("expected a non-nil operation")
	}
	if op.Act == action.NOP && op.Pos == nil {
		t.Fatalf("expected a resolved action against the parsed tree, got %+v", op)
	}
}

func TestStepReturnsNopOnMalformedSnapshot(t *testing.T) {
	m := New(testConfig(), nil)
	op := m.Step("device-1", []byte("not xml at all"), "MainActivity")
	if op.Act != action.NOP {
		t.Fatalf("expected NOP on unparseable snapshot, got %v", op.Act)
	}
}

func TestStepCreatesDefaultReuseAgentForFirstDevice(t *testing.T) {
	m := New(testConfig(), nil)
	m.Step("device-1", sampleXML("com.app:id/ok", "OK"), "MainActivity")

	m.mu.Lock()
	ag, ok := m.agents["device-1"]
	m.mu.Unlock()
	if !ok {
		t.Fatal("expected an agent registered for device-1")
	}
	if ag.DeviceID != "device-1" {
		t.Fatalf("expected DeviceID device-1, got %q", ag.DeviceID)
	}
}

func TestStepReusesSameAgentAcrossCalls(t *testing.T) {
	m := New(testConfig(), nil)
	m.Step("device-1", sampleXML("com.app:id/ok", "OK"), "MainActivity")
	m.Step("device-1", sampleXML("com.app:id/ok2", "OK2"), "MainActivity")

	m.mu.Lock()
	n := len(m.agents)
	m.mu.Unlock()
	if n != 1 {
		t.Fatalf("expected exactly one agent for one device, got %d", n)
	}
}

func TestStepSkipsPolicyWhenCustomActionInjected(t *testing.T) {
	p, err := preference.Load(preference.Sources{
		XPathActions: []byte(`[{"activity":"MainActivity","prob":1,"times":1,"actions":[{"type":"BACK"}]}]`),
	}, config.RewriteConfig{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	m := New(testConfig(), p)
	op := m.Step("device-1", sampleXML("com.app:id/ok", "OK"), "MainActivity")
	if op.Act != action.BACK {
		t.Fatalf("expected injected BACK action, got %v", op.Act)
	}

	m.mu.Lock()
	n := len(m.agents)
	m.mu.Unlock()
	if n != 0 {
		t.Fatalf("expected no agent created when policy was skipped, got %d", n)
	}
}

func TestReuseModelPathIsPerDevice(t *testing.T) {
	cfg := testConfig()
	cfg.Persistence.Path = "reuse.bin"
	m := New(cfg, nil)
	a := m.reuseModelPath("device-a")
	b := m.reuseModelPath("device-b")
	if a == b {
		t.Fatalf("expected distinct per-device paths, got %q twice", a)
	}
	if a != "reuse-device-a.bin" {
		t.Fatalf("unexpected path %q", a)
	}
}

func TestCloseStopsAllAgents(t *testing.T) {
	m := New(testConfig(), nil)
	m.Step("device-1", sampleXML("com.app:id/ok", "OK"), "MainActivity")
	m.Step("device-2", sampleXML("com.app:id/ok", "OK"), "MainActivity")

	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
