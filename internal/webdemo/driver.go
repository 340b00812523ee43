// Package webdemo is a go-rod-backed "device" that drives a Chromium page
// instead of an Android one, so the engine can be exercised end-to-end in
// CI without an emulator. It maps a page's live DOM into a uitree.Element
// tree and an Operation back into mouse/keyboard input (SPEC_FULL.md §4.8).
package webdemo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"fastbot/internal/action"
	"fastbot/internal/geom"
	"fastbot/internal/operation"
	"fastbot/internal/uitree"
)

// Config configures the demo browser. The zero value launches a headless
// Chromium.
type Config struct {
	DebuggerURL string
	Headless    bool
	Timeout     time.Duration
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 15 * time.Second
	}
	return c.Timeout
}

// Driver owns one browser page and presents it as a single Fastbot device.
type Driver struct {
	browser *rod.Browser
	page    *rod.Page
	cfg     Config
}

// Open launches or attaches to Chromium and opens url in a fresh page.
func Open(cfg Config, url string) (*Driver, error) {
	controlURL := cfg.DebuggerURL
	if controlURL == "" {
		u, err := launcher.New().Headless(cfg.Headless).Launch()
		if err != nil {
			return nil, fmt.Errorf("webdemo: launch chromium: %w", err)
		}
		controlURL = u
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("webdemo: connect: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("webdemo: open page: %w", err)
	}
	if err := page.Timeout(cfg.timeout()).WaitLoad(); err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("webdemo: wait for page load: %w", err)
	}

	return &Driver{browser: browser, page: page, cfg: cfg}, nil
}

// Close releases the page and the underlying browser connection.
func (d *Driver) Close() error {
	_ = d.page.Close()
	return d.browser.Close()
}

// DeviceID identifies this driver's page as a Model device, stable for
// the lifetime of the Driver.
func (d *Driver) DeviceID() string {
	return fmt.Sprintf("webdemo-%s", d.page.TargetID)
}

// Activity reports the page's current URL path, standing in for an
// Android activity name.
func (d *Driver) Activity(ctx context.Context) (string, error) {
	info, err := d.page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("webdemo: page info: %w", err)
	}
	return info.URL, nil
}

// domNode mirrors the nested shape the page-side script below returns.
type domNode struct {
	Tag        string     `json:"tag"`
	ID         string     `json:"id"`
	Classes    string     `json:"classes"`
	Text       string     `json:"text"`
	Role       string     `json:"role"`
	Label      string     `json:"label"`
	Clickable  bool       `json:"clickable"`
	Editable   bool       `json:"editable"`
	Scrollable bool       `json:"scrollable"`
	Rect       [4]float64 `json:"rect"`
	Children   []domNode  `json:"children"`
}

// captureScript mirrors the teacher's flat DOM-walk
// (internal/browser/session_manager.go captureDOMFacts), reshaped into a
// nested tree instead of a fact list since uitree.Element needs parent
// pointers, not a flat relation.
const captureScript = `
() => {
	function rectOf(el) {
		const r = el.getBoundingClientRect()
		return [r.left, r.top, r.right, r.bottom]
	}
	function walk(el) {
		const style = window.getComputedStyle(el)
		const visible = style.display !== 'none' && style.visibility !== 'hidden' && style.opacity !== '0'
		const tag = el.tagName.toLowerCase()
		const editable = tag === 'input' || tag === 'textarea' || el.isContentEditable === true
		const clickable = editable || tag === 'button' || tag === 'a' ||
			el.onclick !== null || el.getAttribute('role') === 'button' ||
			style.cursor === 'pointer'
		const children = []
		for (const child of el.children) {
			if (visible) children.push(walk(child))
		}
		return {
			tag: tag,
			id: el.id || '',
			classes: el.className && el.className.toString ? el.className.toString() : '',
			text: (el.innerText || '').slice(0, 256),
			role: el.getAttribute('role') || '',
			label: el.getAttribute('aria-label') || el.getAttribute('placeholder') || '',
			clickable: clickable,
			editable: editable,
			scrollable: el.scrollHeight > el.clientHeight || el.scrollWidth > el.clientWidth,
			rect: rectOf(el),
			children: children
		}
	}
	return walk(document.body)
}
`

// Snapshot captures the page's current DOM as a uitree.Element tree,
// ready for Normalize and Model.Step the same way an XML dump would be.
func (d *Driver) Snapshot(ctx context.Context) (*uitree.Element, error) {
	res, err := d.page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS:           captureScript,
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil {
		return nil, fmt.Errorf("webdemo: evaluate dom capture: %w", err)
	}

	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("webdemo: marshal eval result: %w", err)
	}

	var root domNode
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("webdemo: decode dom tree: %w", err)
	}

	return buildElement(root, 0), nil
}

func buildElement(n domNode, index int) *uitree.Element {
	e := uitree.NewElement()
	e.Bounds = geom.Rect{
		Left:   int32(n.Rect[0]),
		Top:    int32(n.Rect[1]),
		Right:  int32(n.Rect[2]),
		Bottom: int32(n.Rect[3]),
	}
	e.Index = index
	e.SetClass(domClass(n))
	e.SetResourceID(n.ID)
	e.SetText(n.Text)
	desc := n.Label
	if desc == "" {
		desc = n.Role
	}
	e.SetContentDesc(desc)
	e.SetClickable(n.Clickable)
	e.SetEnabled(true)
	e.SetScrollable(n.Scrollable)
	if n.Editable {
		e.SetClickable(true)
		e.SetLongClickable(true)
	}

	for i, child := range n.Children {
		e.AddChild(buildElement(child, i))
	}
	return e
}

// domClass synthesizes an Android-style class name from a tag so
// downstream EditText detection (internal/uitree/normalize.go,
// internal/model's isEditableClass) keeps working unmodified against web
// input elements.
func domClass(n domNode) string {
	if n.Editable {
		return "android.widget.EditText"
	}
	return "html." + n.Tag
}

// clickScript dispatches a synthetic click at page coordinates by asking
// the DOM for the topmost element there first, the same
// elementFromPoint-plus-dispatch approach rod's own higher-level helpers
// use under the hood; staying at the Evaluate layer keeps this in the one
// rod surface the teacher's session_manager.go exercises directly.
const clickScript = `
(x, y) => {
	const el = document.elementFromPoint(x, y)
	if (!el) return false
	el.dispatchEvent(new MouseEvent('click', { bubbles: true, cancelable: true, clientX: x, clientY: y }))
	return true
}
`

const typeScript = `
(x, y, text) => {
	const el = document.elementFromPoint(x, y)
	if (!el) return false
	el.focus()
	el.value = text
	el.dispatchEvent(new Event('input', { bubbles: true }))
	el.dispatchEvent(new Event('change', { bubbles: true }))
	return true
}
`

const scrollScript = `
(dx, dy) => { window.scrollBy(dx, dy) }
`

const backScript = `() => { window.history.back() }`
const reloadScript = `() => { window.location.reload() }`

// Apply executes op against the live page: CLICK/LONG_CLICK dispatch a
// synthetic click at the target's center, scrolls pan the viewport, BACK
// walks browser history, and a START/RESTART family action reloads the
// page in place of an app restart.
func (d *Driver) Apply(ctx context.Context, op *operation.Operation) error {
	if op.Act == action.NOP || op.Act == action.SHELL_EVENT || op.Act == action.CRASH || op.Act == action.FEED {
		return nil
	}

	page := d.page.Context(ctx)

	switch op.Act {
	case action.BACK:
		return evalVoid(page, backScript)
	case action.START, action.RESTART, action.CLEAN_RESTART, action.ACTIVATE:
		return evalVoid(page, reloadScript)
	}

	if op.Pos == nil {
		return nil
	}
	center := op.Pos.Center()

	switch op.Act {
	case action.SCROLL_TOP_DOWN, action.SCROLL_BOTTOM_UP, action.SCROLL_BOTTOM_UP_N:
		return evalVoid(page, scrollScript, 0, float64(op.Pos.Height()))
	case action.SCROLL_LEFT_RIGHT, action.SCROLL_RIGHT_LEFT:
		return evalVoid(page, scrollScript, float64(op.Pos.Width()), 0)
	}

	if op.Editable && op.Text != "" {
		_, err := page.Evaluate(&rod.EvalOptions{
			JS:           typeScript,
			JSArgs:       []interface{}{float64(center.X), float64(center.Y), op.Text},
			ByValue:      true,
			AwaitPromise: true,
		})
		return err
	}

	_, err := page.Evaluate(&rod.EvalOptions{
		JS:           clickScript,
		JSArgs:       []interface{}{float64(center.X), float64(center.Y)},
		ByValue:      true,
		AwaitPromise: true,
	})
	return err
}

func evalVoid(page *rod.Page, js string, args ...interface{}) error {
	_, err := page.Evaluate(&rod.EvalOptions{
		JS:           js,
		JSArgs:       args,
		AwaitPromise: true,
	})
	return err
}
