// Sector geometry and expansion-site generation using layered simplex noise.
// Positions are heliocentric cartesian, in AU. See design doc Section 9.
package sector

import (
	"math"
	"math/rand"
	"sort"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/solsim/internal/ecs"
)

// Transform is an entity's position in the sector plane.
type Transform struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// TransformOf fetches the transform component of an entity.
func TransformOf(w *ecs.World, id ecs.EntityID) (*Transform, error) {
	c, err := w.Get(id, ecs.KindTransform)
	if err != nil {
		return nil, err
	}
	return c.(*Transform), nil
}

// Distance returns the Euclidean distance between two transforms, in AU.
func Distance(a, b *Transform) float64 {
	dx, dy := a.X-b.X, a.Y-b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Site is a candidate expansion location with per-resource richness in
// [0,1]. Faction AI scores sites against its stations' scarce resources.
type Site struct {
	X        float64            `json:"x"`
	Y        float64            `json:"y"`
	Richness map[string]float64 `json:"richness"`
	Claimed  bool               `json:"claimed"`
}

// Transform returns the site's position.
func (s *Site) Transform() *Transform {
	return &Transform{X: s.X, Y: s.Y}
}

// GenConfig holds site generation parameters.
type GenConfig struct {
	Seed   int64   // noise and placement seed
	Count  int     // number of candidate sites
	Radius float64 // disc radius in AU
}

// GenerateSites scatters candidate sites on a disc and samples one simplex
// layer per resource for richness. Deterministic for a given seed and
// resource list; the caller passes resource ids sorted.
func GenerateSites(cfg GenConfig, resourceIDs []string) []*Site {
	rng := rand.New(rand.NewSource(cfg.Seed))

	// One independent noise layer per resource, offset from the base seed
	// in sorted resource order so layer assignment is stable.
	layers := make(map[string]opensimplex.Noise, len(resourceIDs))
	ids := append([]string(nil), resourceIDs...)
	sort.Strings(ids)
	for i, res := range ids {
		layers[res] = opensimplex.NewNormalized(cfg.Seed + int64(i) + 1)
	}

	sites := make([]*Site, 0, cfg.Count)
	for i := 0; i < cfg.Count; i++ {
		// Uniform disc sampling via sqrt of the radial draw.
		r := cfg.Radius * math.Sqrt(rng.Float64())
		theta := rng.Float64() * 2 * math.Pi
		x, y := r*math.Cos(theta), r*math.Sin(theta)

		richness := make(map[string]float64, len(ids))
		for _, res := range ids {
			richness[res] = layers[res].Eval2(x*0.2, y*0.2)
		}
		sites = append(sites, &Site{X: x, Y: y, Richness: richness})
	}
	return sites
}
