package config

import (
	"reflect"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIDENCE_THRESHOLD", "")
	t.Setenv("CLASS_NAMES", "")
	t.Setenv("QUALIFIED_NAMES", "")

	cfg := Load()

	if cfg.ConfidenceThreshold != 0.25 {
		t.Errorf("ConfidenceThreshold = %v, expected 0.25", cfg.ConfidenceThreshold)
	}
	if !reflect.DeepEqual(cfg.ClassNames, []string{"With Helmet", "Without Helmet"}) {
		t.Errorf("ClassNames = %v", cfg.ClassNames)
	}
	if cfg.QualifiedNames {
		t.Error("QualifiedNames should default to false")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CONFIDENCE_THRESHOLD", "0.4")
	t.Setenv("CLASS_NAMES", " helmet , head ,, ")
	t.Setenv("QUALIFIED_NAMES", "true")
	t.Setenv("VIOLATION_DIR", "/tmp/violators")

	cfg := Load()

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, expected 9090", cfg.Port)
	}
	if cfg.ConfidenceThreshold != 0.4 {
		t.Errorf("ConfidenceThreshold = %v, expected 0.4", cfg.ConfidenceThreshold)
	}
	if !reflect.DeepEqual(cfg.ClassNames, []string{"helmet", "head"}) {
		t.Errorf("ClassNames = %v", cfg.ClassNames)
	}
	if !cfg.QualifiedNames {
		t.Error("QualifiedNames should be true")
	}
	if cfg.ViolationDirectory != "/tmp/violators" {
		t.Errorf("ViolationDirectory = %s", cfg.ViolationDirectory)
	}
}

func TestGetEnvAsInt_Invalid(t *testing.T) {
	tests := []struct {
		value    string
		expected int
	}{
		{"abc", 7},
		{"12.5", 7},
		{"", 7},
		{"3", 3},
	}

	for _, tt := range tests {
		t.Setenv("HELMETWATCH_TEST_INT", tt.value)
		if got := getEnvAsInt("HELMETWATCH_TEST_INT", 7); got != tt.expected {
			t.Errorf("getEnvAsInt(%q) = %d, expected %d", tt.value, got, tt.expected)
		}
	}
}
