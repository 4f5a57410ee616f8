package helmet

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLabels_Resolve(t *testing.T) {
	labels := NewLabels([]string{CompliantLabel, ViolationLabel, "Person"})

	tests := []struct {
		name      string
		classID   int
		wantLabel string
		wantClass Class
	}{
		{"compliant", 0, CompliantLabel, Compliant},
		{"violation", 1, ViolationLabel, Violation},
		{"other known label", 2, "Person", Unknown},
		{"past the end", 3, "unknown_3", Unknown},
		{"negative", -1, "unknown_-1", Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, class := labels.Resolve(tt.classID)
			if label != tt.wantLabel || class != tt.wantClass {
				t.Errorf("Resolve(%d) = (%q, %v), expected (%q, %v)",
					tt.classID, label, class, tt.wantLabel, tt.wantClass)
			}
		})
	}
}

func TestClassOf_IsExact(t *testing.T) {
	for _, label := range []string{"without helmet", "Without Helmet ", "WITH HELMET", ""} {
		if c := ClassOf(label); c != Unknown {
			t.Errorf("ClassOf(%q) = %v, expected unknown", label, c)
		}
	}
}

func TestPalette_Color(t *testing.T) {
	p := DefaultPalette()

	if p.Color(Compliant) != Green {
		t.Errorf("compliant color = %v", p.Color(Compliant))
	}
	if p.Color(Violation) != Red {
		t.Errorf("violation color = %v", p.Color(Violation))
	}
	if p.Color(Unknown) != White {
		t.Errorf("fallback color = %v", p.Color(Unknown))
	}
	if p.Color(Class(42)) != White {
		t.Error("out-of-range class should use the fallback color")
	}
}

func TestPalette_WithOverrides(t *testing.T) {
	p, err := DefaultPalette().WithOverrides("", "#0000ff", "")
	if err != nil {
		t.Fatalf("WithOverrides failed: %v", err)
	}
	if p.Violation.B != 255 || p.Violation.R != 0 {
		t.Errorf("violation override = %v", p.Violation)
	}
	if p.Compliant != Green {
		t.Error("empty override should keep the compliant color")
	}

	if _, err := DefaultPalette().WithOverrides("not-a-color", "", ""); err == nil {
		t.Error("expected an error for an invalid hex color")
	}
}

func TestLoadLabels(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"list form", "path: ../datasets\nnames: ['With Helmet', 'Without Helmet']\n", []string{"With Helmet", "Without Helmet"}},
		{"map form", "names:\n  1: Without Helmet\n  0: With Helmet\n", []string{"With Helmet", "Without Helmet"}},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "data"+string(rune('a'+i))+".yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("Failed to write yaml: %v", err)
			}
			labels, err := LoadLabels(path)
			if err != nil {
				t.Fatalf("LoadLabels failed: %v", err)
			}
			if !reflect.DeepEqual(labels.Names(), tt.want) {
				t.Errorf("names = %v, expected %v", labels.Names(), tt.want)
			}
		})
	}
}

func TestLoadLabels_Invalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.yaml")

	if err := os.WriteFile(path, []byte("train: images/train\n"), 0644); err != nil {
		t.Fatalf("Failed to write yaml: %v", err)
	}
	if _, err := LoadLabels(path); err == nil {
		t.Error("expected an error when names are missing")
	}

	if err := os.WriteFile(path, []byte("names:\n  5: Helmet\n"), 0644); err != nil {
		t.Fatalf("Failed to write yaml: %v", err)
	}
	if _, err := LoadLabels(path); err == nil {
		t.Error("expected an error for a sparse names map")
	}

	if _, err := LoadLabels(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
