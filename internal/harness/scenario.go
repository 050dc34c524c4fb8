package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/plumage/internal/listener"
	"github.com/roach88/plumage/internal/query"
	"github.com/roach88/plumage/internal/store"
)

// Scenario is a scripted sequence of store operations with expectations.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Manifests lists plugin manifests to set up, in order.
	Manifests []string `yaml:"manifests"`

	// IDs are handed out as generated document ID cores before the
	// fallback sequence kicks in.
	IDs []string `yaml:"ids,omitempty"`

	// UserID is stamped into document metadata.
	UserID string `yaml:"user_id,omitempty"`

	// Steps run in order against a fresh store.
	Steps []Step `yaml:"steps"`

	// Assertions validate the trace and final state after all steps.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Op names a step operation.
type Op string

const (
	OpSet       Op = "set"
	OpUnsafeSet Op = "unsafe_set"
	OpGet       Op = "get"
	OpDelete    Op = "delete"
	OpFind      Op = "find"
	OpListen    Op = "listen"
	OpUnlisten  Op = "unlisten"
)

// Step is one store operation.
type Step struct {
	Op         Op     `yaml:"op"`
	Collection string `yaml:"collection"`
	ID         string `yaml:"id,omitempty"`
	PrefixID   string `yaml:"prefix_id,omitempty"`
	SuffixID   string `yaml:"suffix_id,omitempty"`

	// set, unsafe_set
	Value           any            `yaml:"value,omitempty"`
	Merge           bool           `yaml:"merge,omitempty"`
	Replace         bool           `yaml:"replace,omitempty"`
	Update          *store.Update  `yaml:"update,omitempty"`
	Metadata        map[string]any `yaml:"metadata,omitempty"`
	StopPropagation bool           `yaml:"stop_propagation,omitempty"`

	// get
	Position string `yaml:"position,omitempty"`
	Expand   bool   `yaml:"expand,omitempty"`

	// delete
	Cascade bool `yaml:"cascade,omitempty"`

	// find
	Where *query.Spec `yaml:"where,omitempty"`
	Limit int         `yaml:"limit,omitempty"`

	// listen, unlisten. Name labels the listener in the trace.
	Name       string `yaml:"name,omitempty"`
	Event      string `yaml:"event,omitempty"`
	Priority   *int   `yaml:"priority,omitempty"`
	Force      bool   `yaml:"force,omitempty"`
	CaptureAll bool   `yaml:"capture_all,omitempty"`
	Fail       bool   `yaml:"fail,omitempty"`

	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect checks a step's outcome. Unset fields are not checked.
type Expect struct {
	// Outcome defaults to ok when any other field is set.
	Outcome string `yaml:"outcome,omitempty"`
	ID      string `yaml:"id,omitempty"`
	// Item is a subset match against the returned item.
	Item any `yaml:"item,omitempty"`
	// Refs are the find result IDs or the expanded "collection/id" refs.
	Refs []string `yaml:"refs,omitempty"`
}

// Assertion validates the trace or final state.
type Assertion struct {
	// Type is one of notified, notify_order, notify_count, final_state.
	Type string `yaml:"type"`

	// Notification filters. Empty fields match anything.
	Listener   string `yaml:"listener,omitempty"`
	Collection string `yaml:"collection,omitempty"`
	Event      string `yaml:"event,omitempty"`
	ID         string `yaml:"id,omitempty"`

	// Listeners is the expected order of first notifications.
	Listeners []string `yaml:"listeners,omitempty"`

	// Count is the exact number of matches for notify_count.
	Count int `yaml:"count,omitempty"`

	// Expect is a subset match on the final item for final_state.
	Expect any `yaml:"expect,omitempty"`
	// Absent asserts the document no longer exists.
	Absent bool `yaml:"absent,omitempty"`
}

// Assertion type constants.
const (
	AssertNotified    = "notified"
	AssertNotifyOrder = "notify_order"
	AssertNotifyCount = "notify_count"
	AssertFinalState  = "final_state"
)

// LoadScenario reads and parses a scenario YAML file. Manifest paths are
// resolved relative to the file. Unknown fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	for i, m := range scenario.Manifests {
		if !filepath.IsAbs(m) {
			scenario.Manifests[i] = filepath.Join(base, m)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Manifests) == 0 {
		return fmt.Errorf("manifests list is required and must be non-empty")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for _, m := range s.Manifests {
		if _, err := os.Stat(m); os.IsNotExist(err) {
			return fmt.Errorf("manifest file not found: %s", m)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, s *Step) error {
	switch s.Op {
	case OpSet, OpUnsafeSet, OpGet, OpDelete, OpFind:
		if s.Collection == "" {
			return fmt.Errorf("steps[%d]: collection is required for %s", index, s.Op)
		}
	case OpListen:
		if s.Name == "" || s.Collection == "" {
			return fmt.Errorf("steps[%d]: name and collection are required for listen", index)
		}
		if !listener.Event(s.Event).Valid() {
			return fmt.Errorf("steps[%d]: event must be update or delete, got %q", index, s.Event)
		}
	case OpUnlisten:
		if s.Name == "" {
			return fmt.Errorf("steps[%d]: name is required for unlisten", index)
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, s.Op)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertNotified:
	case AssertNotifyOrder:
		if len(a.Listeners) == 0 {
			return fmt.Errorf("assertions[%d]: listeners list is required for notify_order", index)
		}
	case AssertNotifyCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for notify_count", index)
		}
	case AssertFinalState:
		if a.Collection == "" {
			return fmt.Errorf("assertions[%d]: collection is required for final_state", index)
		}
		if a.Expect == nil && !a.Absent {
			return fmt.Errorf("assertions[%d]: expect or absent is required for final_state", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
