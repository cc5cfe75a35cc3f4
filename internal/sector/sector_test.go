package sector

import (
	"math"
	"testing"
)

func TestDistance(t *testing.T) {
	a := &Transform{X: 0, Y: 0}
	b := &Transform{X: 3, Y: 4}
	if d := Distance(a, b); d != 5 {
		t.Errorf("Distance = %v, want 5", d)
	}
	if d := Distance(a, a); d != 0 {
		t.Errorf("Distance to self = %v", d)
	}
}

func TestGenerateSitesDeterministic(t *testing.T) {
	cfg := GenConfig{Seed: 7, Count: 32, Radius: 30}
	resources := []string{"iron_ore", "water_ice", "helium3"}

	a := GenerateSites(cfg, resources)
	b := GenerateSites(cfg, resources)
	if len(a) != 32 || len(b) != 32 {
		t.Fatalf("got %d/%d sites, want 32", len(a), len(b))
	}
	for i := range a {
		if a[i].X != b[i].X || a[i].Y != b[i].Y {
			t.Fatalf("site %d position differs between runs", i)
		}
		for res, r := range a[i].Richness {
			if b[i].Richness[res] != r {
				t.Fatalf("site %d richness %s differs between runs", i, res)
			}
		}
	}

	// Resource order must not matter: layers bind by sorted id.
	c := GenerateSites(cfg, []string{"water_ice", "helium3", "iron_ore"})
	for i := range a {
		for res, r := range a[i].Richness {
			if c[i].Richness[res] != r {
				t.Fatalf("site %d richness %s depends on input order", i, res)
			}
		}
	}
}

func TestGenerateSitesBounds(t *testing.T) {
	cfg := GenConfig{Seed: 1, Count: 100, Radius: 30}
	for i, site := range GenerateSites(cfg, []string{"iron_ore"}) {
		if d := math.Hypot(site.X, site.Y); d > cfg.Radius {
			t.Errorf("site %d at distance %v, beyond radius %v", i, d, cfg.Radius)
		}
		for res, r := range site.Richness {
			if r < 0 || r > 1 {
				t.Errorf("site %d richness %s = %v, outside [0,1]", i, res, r)
			}
		}
		if site.Claimed {
			t.Errorf("site %d generated claimed", i)
		}
	}
}

func TestDifferentSeedsDiffer(t *testing.T) {
	resources := []string{"iron_ore"}
	a := GenerateSites(GenConfig{Seed: 1, Count: 8, Radius: 30}, resources)
	b := GenerateSites(GenConfig{Seed: 2, Count: 8, Radius: 30}, resources)
	same := true
	for i := range a {
		if a[i].X != b[i].X || a[i].Y != b[i].Y {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical placements")
	}
}
