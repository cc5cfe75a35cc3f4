package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeDataDir(t *testing.T, resources, recipes string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "resources.json"), []byte(resources), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "recipes.json"), []byte(recipes), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

const goodResources = `{
  "iron_ore": {"name": "Iron Ore", "tier": 0, "base_value": 15, "category": "raw"},
  "refined_metal": {"name": "Refined Metal", "tier": 1, "base_value": 40, "category": "processed"}
}`

const goodRecipes = `{
  "refine_metal": {
    "name": "Refine Metal",
    "inputs": {"iron_ore": 2},
    "outputs": {"refined_metal": 1},
    "cycle_ticks": 10,
    "capacity": 50,
    "category": "processed"
  }
}`

func TestLoad(t *testing.T) {
	dir := writeDataDir(t, goodResources, goodRecipes)
	r, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := r.ResourceIDs(); len(got) != 2 {
		t.Errorf("loaded %d resources, want 2", len(got))
	}
	rec, ok := r.Recipe("refine_metal")
	if !ok || rec.ID != "refine_metal" || rec.Inputs["iron_ore"] != 2 {
		t.Errorf("recipe id injection failed: %+v", rec)
	}
}

func TestLoadSchemaRejections(t *testing.T) {
	cases := []struct {
		name      string
		resources string
		recipes   string
	}{
		{"missing file dir", "", ""},
		{"malformed json", `{"iron_ore": `, goodRecipes},
		{"missing required field", `{"iron_ore": {"tier": 0, "base_value": 15, "category": "raw"}}`, goodRecipes},
		{"negative base value", `{"iron_ore": {"name": "x", "tier": 0, "base_value": -1, "category": "raw"}}`, goodRecipes},
		{"fractional quantity", goodResources, `{
  "refine_metal": {
    "name": "Refine Metal",
    "inputs": {"iron_ore": 1.5},
    "outputs": {"refined_metal": 1},
    "cycle_ticks": 10,
    "capacity": 50,
    "category": "processed"
  }
}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var dir string
			if tc.name == "missing file dir" {
				dir = t.TempDir()
			} else {
				dir = writeDataDir(t, tc.resources, tc.recipes)
			}
			if _, err := Load(dir); !errors.Is(err, ErrInvalidData) {
				t.Errorf("got %v, want ErrInvalidData", err)
			}
		})
	}
}

// The shipped data files must always load.
func TestLoadShippedData(t *testing.T) {
	r, err := Load(filepath.Join("..", "..", "data"))
	if err != nil {
		t.Fatalf("Load(data): %v", err)
	}
	for _, recID := range r.RecipeIDs() {
		rec, _ := r.Recipe(recID)
		for res := range rec.Inputs {
			if _, ok := r.Resource(res); !ok {
				t.Errorf("recipe %s input %s unknown", recID, res)
			}
		}
	}
}
