package preference

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/multierr"

	"bitbucket.org/creachadair/stringset"

	"fastbot/internal/config"
)

// Sources bundles the raw bytes of every spec.md §6.4 rewrite source.
// Each field is an opaque byte blob; Load never opens a file itself —
// the caller (cmd/fastbot) resolves config.RewriteConfig's paths and
// reads them.
type Sources struct {
	Mapping        []byte // max.mapping
	Config         []byte // max.config
	Strings        []byte // max.strings
	FuzzingStrings []byte // max.fuzzing.strings
	XPathActions   []byte // max.xpath.actions
	BlackWidgets   []byte // max.widget.black
	TreePruning    []byte // max.tree.pruning
	ValidStrings   []byte // max.valid.strings
}

// Load builds a Preference from sources, using defaults for the three
// max.config booleans when that source is absent or fails to parse. A
// failing source does not abort the load: Load returns a best-effort
// Preference plus a multierr-joined set of ConfigErrors, one per skipped
// source (spec.md §7).
func Load(sources Sources, defaults config.RewriteConfig) (*Preference, error) {
	p := newPreference()
	p.randomPickFromStringList = defaults.RandomPickFromStringList
	p.doInputTextFuzzing = defaults.DoInputTextFuzzing
	p.listenMode = defaults.ListenMode

	var errs error

	if len(sources.Mapping) > 0 {
		m, err := parseMapping(sources.Mapping)
		if err != nil {
			errs = multierr.Append(errs, ConfigError{"max.mapping", err})
		} else {
			p.mapping = m
		}
	}

	if len(sources.Config) > 0 {
		if err := p.applyConfigKV(sources.Config); err != nil {
			errs = multierr.Append(errs, ConfigError{"max.config", err})
		}
	}

	if len(sources.Strings) > 0 {
		p.presetStrings = parseLines(sources.Strings, "")
	}

	if len(sources.FuzzingStrings) > 0 {
		p.fuzzStrings = parseLines(sources.FuzzingStrings, "#")
	}

	if len(sources.XPathActions) > 0 {
		var events []CustomEvent
		if err := json.Unmarshal(sources.XPathActions, &events); err != nil {
			errs = multierr.Append(errs, ConfigError{"max.xpath.actions", err})
		} else {
			p.events = events
		}
	}

	if len(sources.BlackWidgets) > 0 {
		var rules []BlackWidgetRule
		if err := json.Unmarshal(sources.BlackWidgets, &rules); err != nil {
			errs = multierr.Append(errs, ConfigError{"max.widget.black", err})
		} else {
			p.blackWidgets = rules
		}
	}

	if len(sources.TreePruning) > 0 {
		var rules []TreePruningRule
		if err := json.Unmarshal(sources.TreePruning, &rules); err != nil {
			errs = multierr.Append(errs, ConfigError{"max.tree.pruning", err})
		} else {
			p.treePruning = rules
		}
	}

	if len(sources.ValidStrings) > 0 {
		p.validStrings = stringset.New(parseLines(sources.ValidStrings, "")...)
	}

	return p, errs
}

// parseMapping parses max.mapping's line-oriented "<hex id> <old.R.id.X> →
// :id/new" format (spec.md §6.4) into old-resource-id → new-resource-id.
// The left-hand side's last whitespace-separated token is taken as the key
// since that is the actual resource-id form a parsed Element carries;
// any hex-id prefix is metadata the de-obfuscation table does not need.
func parseMapping(data []byte) (map[string]string, error) {
	out := make(map[string]string)
	sc := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		sep := "→"
		idx := strings.Index(text, sep)
		if idx < 0 {
			sep = "->"
			idx = strings.Index(text, sep)
		}
		if idx < 0 {
			return nil, fmt.Errorf("line %d: missing %q separator", line, "→")
		}
		left := strings.TrimSpace(text[:idx])
		right := strings.TrimSpace(text[idx+len(sep):])
		if left == "" || right == "" {
			return nil, fmt.Errorf("line %d: empty mapping side", line)
		}
		fields := strings.Fields(left)
		key := fields[len(fields)-1]
		out[key] = right
	}
	return out, sc.Err()
}

// applyConfigKV parses max.config's key=value lines (spec.md §6.4) into
// the three recognized booleans; unrecognized keys are ignored since the
// file format allows forward-compatible additions.
func (p *Preference) applyConfigKV(data []byte) error {
	sc := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		idx := strings.Index(text, "=")
		if idx < 0 {
			return fmt.Errorf("line %d: missing '=' in %q", line, text)
		}
		key := strings.TrimSpace(text[:idx])
		val := strings.TrimSpace(text[idx+1:])
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("line %d: %q is not a bool", line, val)
		}
		switch key {
		case "max.randomPickFromStringList":
			p.randomPickFromStringList = b
		case "max.doinputtextFuzzing":
			p.doInputTextFuzzing = b
		case "max.listenMode":
			p.listenMode = b
		}
	}
	return sc.Err()
}

// parseLines splits data into trimmed, non-empty lines, optionally
// stripping comment lines starting with commentPrefix (spec.md §6.4
// "`#` comments in the fuzz file").
func parseLines(data []byte, commentPrefix string) []string {
	var out []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		if commentPrefix != "" && strings.HasPrefix(text, commentPrefix) {
			continue
		}
		out = append(out, text)
	}
	return out
}
