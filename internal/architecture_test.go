package internal

import (
	"testing"

	"github.com/kcmvp/archunit"
)

// TestArchitecture keeps the power core free of transport and storage.
// Adapters depend on power, never the other way round.
func TestArchitecture(t *testing.T) {
	core := archunit.Packages("power", []string{".../internal/power/..."})
	api := archunit.Packages("api", []string{".../internal/api/..."})
	history := archunit.Packages("history", []string{".../internal/history/..."})
	infrastructure := archunit.Packages("infrastructure", []string{".../internal/infrastructure/..."})
	panel := archunit.Packages("panel", []string{".../internal/panel/..."})

	if err := core.ShouldNotReferLayers(api); err != nil {
		t.Errorf("power depends on the HTTP layer: %v", err)
	}
	if err := core.ShouldNotReferLayers(history); err != nil {
		t.Errorf("power depends on history storage: %v", err)
	}
	if err := core.ShouldNotReferLayers(infrastructure); err != nil {
		t.Errorf("power depends on infrastructure: %v", err)
	}
	if err := history.ShouldNotReferLayers(api); err != nil {
		t.Errorf("history depends on the HTTP layer: %v", err)
	}
	if err := infrastructure.ShouldNotReferLayers(core); err != nil {
		t.Errorf("infrastructure depends on the power core: %v", err)
	}
	if err := panel.ShouldNotReferLayers(api); err != nil {
		t.Errorf("panel depends on the HTTP layer: %v", err)
	}
}

func TestPackagesPresent(t *testing.T) {
	for _, name := range []string{"power", "api", "history", "panel"} {
		layer := archunit.Packages(name, []string{".../internal/" + name})
		if len(layer.Packages()) == 0 {
			t.Errorf("no %s package found", name)
		}
	}
}
