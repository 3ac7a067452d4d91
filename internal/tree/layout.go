package tree

import (
	"math"

	"github.com/ojrac/opensimplex-go"

	"github.com/GroggNorvek/RaSpider/internal/geometry"
	"github.com/GroggNorvek/RaSpider/internal/random"
)

// Layout parameterises the seeded tree generator.
type Layout struct {
	Width          float64 `json:"width" yaml:"width"`
	Height         float64 `json:"height" yaml:"height"`
	TrunkWidth     float64 `json:"trunkWidth" yaml:"trunkWidth"`
	TrunkTop       float64 `json:"trunkTop" yaml:"trunkTop"`
	MinBranches    int     `json:"minBranches" yaml:"minBranches"`
	MaxBranches    int     `json:"maxBranches" yaml:"maxBranches"`
	MainLengthMin  float64 `json:"mainLengthMin" yaml:"mainLengthMin"`
	MainLengthMax  float64 `json:"mainLengthMax" yaml:"mainLengthMax"`
	MainThickness  float64 `json:"mainThickness" yaml:"mainThickness"`
	SubBranches    int     `json:"subBranches" yaml:"subBranches"`
	SubLengthMin   float64 `json:"subLengthMin" yaml:"subLengthMin"`
	SubLengthMax   float64 `json:"subLengthMax" yaml:"subLengthMax"`
	SubThickness   float64 `json:"subThickness" yaml:"subThickness"`
	SubSpread      float64 `json:"subSpread" yaml:"subSpread"`
	NoiseFrequency float64 `json:"noiseFrequency" yaml:"noiseFrequency"`
	WithNest       bool    `json:"withNest" yaml:"withNest"`
}

func DefaultLayout() Layout {
	return Layout{
		Width:          1200,
		Height:         800,
		TrunkWidth:     80,
		TrunkTop:       50,
		MinBranches:    1,
		MaxBranches:    3,
		MainLengthMin:  160,
		MainLengthMax:  280,
		MainThickness:  8,
		SubBranches:    2,
		SubLengthMin:   30,
		SubLengthMax:   60,
		SubThickness:   3,
		SubSpread:      0.3,
		NoiseFrequency: 0.7,
		WithNest:       true,
	}
}

func (l Layout) Normalized() Layout {
	def := DefaultLayout()
	out := l
	if out.Width <= 0 {
		out.Width = def.Width
	}
	if out.Height <= 0 {
		out.Height = def.Height
	}
	if out.TrunkWidth <= 0 || out.TrunkWidth > out.Width {
		out.TrunkWidth = math.Min(def.TrunkWidth, out.Width)
	}
	if out.TrunkTop < 0 || out.TrunkTop >= out.Height {
		out.TrunkTop = 0
	}
	if out.MinBranches < 0 {
		out.MinBranches = 0
	}
	if out.MaxBranches < out.MinBranches {
		out.MaxBranches = out.MinBranches
	}
	if out.MainLengthMin <= 0 {
		out.MainLengthMin = def.MainLengthMin
	}
	if out.MainLengthMax < out.MainLengthMin {
		out.MainLengthMax = out.MainLengthMin
	}
	if out.MainThickness <= 0 {
		out.MainThickness = def.MainThickness
	}
	if out.SubBranches < 0 {
		out.SubBranches = 0
	}
	if out.SubLengthMin <= 0 {
		out.SubLengthMin = def.SubLengthMin
	}
	if out.SubLengthMax < out.SubLengthMin {
		out.SubLengthMax = out.SubLengthMin
	}
	if out.SubThickness <= 0 {
		out.SubThickness = def.SubThickness
	}
	if out.SubSpread < 0 {
		out.SubSpread = 0
	}
	if out.NoiseFrequency <= 0 {
		out.NoiseFrequency = def.NoiseFrequency
	}
	return out
}

// Generate lays out a trunk centred on the canvas with 1-3 main branches
// alternating sides, each carrying short sub-branches whose angles wander
// with simplex noise. The same seed always yields the same tree.
func Generate(layout Layout, seed string) Tree {
	l := layout.Normalized()
	rng := random.New(seed, "tree")
	noise := opensimplex.New(random.SeedValue(seed, "tree-noise"))

	trunk := geometry.Rect{
		X: l.Width/2 - l.TrunkWidth/2,
		Y: l.TrunkTop,
		W: l.TrunkWidth,
		H: l.Height - l.TrunkTop,
	}
	out := Tree{Trunk: trunk}
	if l.WithNest {
		nest := NestFor(trunk)
		out.Nest = &nest
	}

	count := random.IntRange(rng, l.MinBranches, l.MaxBranches)
	leftFirst := rng.Intn(2) == 0
	canvas := geometry.Rect{W: l.Width, H: l.Height}
	for i := 0; i < count; i++ {
		left := (i%2 == 0) == leftFirst
		// Spread junctions over the upper 70% of the trunk.
		band := 0.1 + 0.6*(float64(i)+0.5)/float64(count)
		y := trunk.Y + trunk.H*band + random.Range(rng, -0.04, 0.04)*trunk.H
		tilt := 0.25 + 0.35*random.Float(rng) + 0.1*noise.Eval2(float64(i)*l.NoiseFrequency, 0)
		start := geometry.Vec2{X: trunk.Right(), Y: y}
		angle := -tilt
		if left {
			start.X = trunk.X
			angle = math.Pi + tilt
		}
		main := Branch{
			Start:     start,
			Angle:     angle,
			Length:    random.Range(rng, l.MainLengthMin, l.MainLengthMax),
			Thickness: l.MainThickness,
			Parent:    -1,
		}
		main.Length = fitLength(main, canvas)
		parent := len(out.Branches)
		out.Branches = append(out.Branches, main)

		for j := 0; j < l.SubBranches; j++ {
			t := 0.35 + 0.45*(float64(j)+random.Float(rng))/float64(max(l.SubBranches, 1))
			sub := Branch{
				Start:     main.Start.Lerp(main.End(), t),
				Angle:     main.Angle + l.SubSpread*noise.Eval2(float64(i)*l.NoiseFrequency, float64(j+1)*l.NoiseFrequency),
				Length:    random.Range(rng, l.SubLengthMin, l.SubLengthMax),
				Thickness: l.SubThickness,
				Parent:    parent,
			}
			sub.Length = fitLength(sub, canvas)
			out.Branches = append(out.Branches, sub)
		}
	}
	return out
}

// fitLength shortens a branch until its tip stays on the canvas.
func fitLength(b Branch, canvas geometry.Rect) float64 {
	for b.Length > 1 && !canvas.Contains(b.End()) {
		b.Length *= 0.9
	}
	return b.Length
}
