package helmet

import (
	"fmt"

	"helmetwatch/internal/config"
)

// FromConfig builds the label table and palette selected by cfg. Class names
// come from the dataset file when LabelsPath is set.
func FromConfig(cfg *config.Config) (Labels, Palette, error) {
	labels := NewLabels(cfg.ClassNames)
	if cfg.LabelsPath != "" {
		loaded, err := LoadLabels(cfg.LabelsPath)
		if err != nil {
			return Labels{}, Palette{}, err
		}
		labels = loaded
	}
	if labels.Len() == 0 {
		labels = DefaultLabels()
	}

	palette, err := DefaultPalette().WithOverrides(cfg.CompliantColor, cfg.ViolationColor, cfg.FallbackColor)
	if err != nil {
		return Labels{}, Palette{}, fmt.Errorf("invalid color override: %w", err)
	}
	return labels, palette, nil
}
