package registry

import (
	"errors"
	"testing"
)

func testResources() []ResourceDef {
	return []ResourceDef{
		{ID: "iron_ore", Name: "Iron Ore", Tier: 0, BaseValue: 15, Category: "raw"},
		{ID: "silicates", Name: "Silicates", Tier: 0, BaseValue: 8, Category: "raw"},
		{ID: "refined_metal", Name: "Refined Metal", Tier: 1, BaseValue: 40, Category: "processed"},
	}
}

func testRecipes() []RecipeDef {
	return []RecipeDef{
		{
			ID: "refine_metal", Name: "Refine Metal",
			Inputs:     map[string]int{"iron_ore": 2},
			Outputs:    map[string]int{"refined_metal": 1},
			CycleTicks: 10, Capacity: 50, Category: "processed",
		},
	}
}

func TestFromDefs(t *testing.T) {
	r, err := FromDefs(testResources(), testRecipes())
	if err != nil {
		t.Fatalf("FromDefs: %v", err)
	}

	res, ok := r.Resource("iron_ore")
	if !ok || res.BaseValue != 15 {
		t.Errorf("iron_ore lookup: ok=%v def=%+v", ok, res)
	}
	if _, ok := r.Resource("unobtanium"); ok {
		t.Error("unknown resource lookup should fail")
	}

	rec, ok := r.Recipe("refine_metal")
	if !ok || rec.CycleTicks != 10 {
		t.Errorf("refine_metal lookup: ok=%v def=%+v", ok, rec)
	}

	ids := r.ResourceIDs()
	want := []string{"iron_ore", "refined_metal", "silicates"}
	if len(ids) != len(want) {
		t.Fatalf("ResourceIDs = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ResourceIDs[%d] = %q, want %q (sorted)", i, ids[i], want[i])
		}
	}
}

func TestRecipesProducing(t *testing.T) {
	r, err := FromDefs(testResources(), testRecipes())
	if err != nil {
		t.Fatal(err)
	}
	got := r.RecipesProducing("refined_metal")
	if len(got) != 1 || got[0] != "refine_metal" {
		t.Errorf("RecipesProducing(refined_metal) = %v", got)
	}
	if got := r.RecipesProducing("iron_ore"); len(got) != 0 {
		t.Errorf("RecipesProducing(iron_ore) = %v, want none", got)
	}
}

func TestValidationFailures(t *testing.T) {
	cases := []struct {
		name      string
		resources []ResourceDef
		recipes   []RecipeDef
	}{
		{
			name: "duplicate resource",
			resources: append(testResources(),
				ResourceDef{ID: "iron_ore", Name: "Again", Tier: 0, BaseValue: 1}),
		},
		{
			name: "tier out of range",
			resources: []ResourceDef{
				{ID: "weird", Name: "Weird", Tier: 4, BaseValue: 1},
			},
		},
		{
			name: "non-positive base value",
			resources: []ResourceDef{
				{ID: "free", Name: "Free", Tier: 0, BaseValue: 0},
			},
		},
		{
			name:      "unknown input resource",
			resources: testResources(),
			recipes: []RecipeDef{{
				ID: "bad", Name: "Bad",
				Inputs:     map[string]int{"unobtanium": 1},
				Outputs:    map[string]int{"refined_metal": 1},
				CycleTicks: 1, Capacity: 1,
			}},
		},
		{
			name:      "zero cycle ticks",
			resources: testResources(),
			recipes: []RecipeDef{{
				ID: "bad", Name: "Bad",
				Inputs:     map[string]int{"iron_ore": 1},
				Outputs:    map[string]int{"refined_metal": 1},
				CycleTicks: 0, Capacity: 1,
			}},
		},
		{
			name:      "negative input quantity",
			resources: testResources(),
			recipes: []RecipeDef{{
				ID: "bad", Name: "Bad",
				Inputs:     map[string]int{"iron_ore": -1},
				Outputs:    map[string]int{"refined_metal": 1},
				CycleTicks: 1, Capacity: 1,
			}},
		},
		{
			name:      "empty outputs",
			resources: testResources(),
			recipes: []RecipeDef{{
				ID: "bad", Name: "Bad",
				Inputs:     map[string]int{"iron_ore": 1},
				CycleTicks: 1, Capacity: 1,
			}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromDefs(tc.resources, tc.recipes)
			if !errors.Is(err, ErrInvalidData) {
				t.Errorf("got %v, want ErrInvalidData", err)
			}
		})
	}
}

func TestDigestStable(t *testing.T) {
	a, err := FromDefs(testResources(), testRecipes())
	if err != nil {
		t.Fatal(err)
	}
	b, err := FromDefs(testResources(), testRecipes())
	if err != nil {
		t.Fatal(err)
	}
	if a.Digest() != b.Digest() {
		t.Error("same defs produced different digests")
	}

	changed := testResources()
	changed[0].BaseValue = 16
	c, err := FromDefs(changed, testRecipes())
	if err != nil {
		t.Fatal(err)
	}
	if a.Digest() == c.Digest() {
		t.Error("changed defs produced the same digest")
	}
}
