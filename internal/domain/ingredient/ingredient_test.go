package ingredient

import "testing"

func TestColorOf(t *testing.T) {
	if got := DefaultCatalog.ColorOf("Tired"); got != "from-blue-300 to-blue-400" {
		t.Errorf("Expected preset color for Tired, got %s", got)
	}
	if got := DefaultCatalog.ColorOf("Homesick"); got != FallbackColor {
		t.Errorf("Expected fallback color for custom label, got %s", got)
	}
}

func TestLabelsPreserveOrder(t *testing.T) {
	labels := DefaultCatalog.Labels()
	if len(labels) != 15 {
		t.Fatalf("Expected 15 presets, got %d", len(labels))
	}
	if labels[0] != "Tired" || labels[14] != "Inspired" {
		t.Errorf("Unexpected catalog order: %v", labels)
	}
}
