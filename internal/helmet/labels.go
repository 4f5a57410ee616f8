// Package helmet holds the label policy of the helmet detector: which class
// names exist, which of them mean compliance or violation, and how each is
// drawn.
package helmet

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	CompliantLabel = "With Helmet"
	ViolationLabel = "Without Helmet"
)

// Class is the policy category of a detection.
type Class int

const (
	Unknown Class = iota
	Compliant
	Violation
)

func (c Class) String() string {
	switch c {
	case Compliant:
		return "compliant"
	case Violation:
		return "violation"
	default:
		return "unknown"
	}
}

// ClassOf maps a label to its class. Only the two sentinel labels match exactly.
func ClassOf(label string) Class {
	switch label {
	case CompliantLabel:
		return Compliant
	case ViolationLabel:
		return Violation
	default:
		return Unknown
	}
}

// Labels is the ordered class name table of a model.
type Labels struct {
	names []string
}

// DefaultLabels returns the class table of the helmet dataset.
func DefaultLabels() Labels {
	return NewLabels([]string{CompliantLabel, ViolationLabel})
}

func NewLabels(names []string) Labels {
	return Labels{names: append([]string(nil), names...)}
}

// Len returns the number of known classes.
func (l Labels) Len() int {
	return len(l.names)
}

// Names returns a copy of the class names in model order.
func (l Labels) Names() []string {
	return append([]string(nil), l.names...)
}

// Resolve returns the label and class for a model class index. Indexes outside
// the table never fail; they resolve to "unknown_<id>" and Unknown.
func (l Labels) Resolve(classID int) (string, Class) {
	if classID < 0 || classID >= len(l.names) {
		return fmt.Sprintf("unknown_%d", classID), Unknown
	}
	label := l.names[classID]
	return label, ClassOf(label)
}

// dataset mirrors the parts of an ultralytics data.yaml we read.
type dataset struct {
	Names yaml.Node `yaml:"names"`
}

// LoadLabels reads class names from a dataset data.yaml. Both the list form
// (names: [a, b]) and the index map form (names: {0: a, 1: b}) are accepted.
func LoadLabels(path string) (Labels, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Labels{}, fmt.Errorf("failed to read labels file: %w", err)
	}

	var ds dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return Labels{}, fmt.Errorf("failed to parse labels file: %w", err)
	}

	switch ds.Names.Kind {
	case yaml.SequenceNode:
		var names []string
		if err := ds.Names.Decode(&names); err != nil {
			return Labels{}, fmt.Errorf("failed to decode names list: %w", err)
		}
		return NewLabels(names), nil

	case yaml.MappingNode:
		var indexed map[int]string
		if err := ds.Names.Decode(&indexed); err != nil {
			return Labels{}, fmt.Errorf("failed to decode names map: %w", err)
		}
		names := make([]string, len(indexed))
		for id, name := range indexed {
			if id < 0 || id >= len(names) {
				return Labels{}, fmt.Errorf("class index %d out of range 0..%d", id, len(names)-1)
			}
			names[id] = name
		}
		return NewLabels(names), nil
	}

	return Labels{}, fmt.Errorf("no class names in %s", path)
}
