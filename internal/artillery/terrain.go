package artillery

import (
	"math"
	"math/rand/v2"
)

const (
	CanvasWidth  = 1000
	CanvasHeight = 600

	// Tanks sit on fixed columns; vegetation keeps clear of them.
	p1X = 200
	p2X = 800
)

type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// ParseDifficulty maps a client string onto a Difficulty, defaulting to
// medium for anything unknown.
func ParseDifficulty(s string) Difficulty {
	switch Difficulty(s) {
	case Easy, Hard:
		return Difficulty(s)
	default:
		return Medium
	}
}

// windMultiplier scales wind speed bounds.
func (d Difficulty) windMultiplier() float64 {
	switch d {
	case Easy:
		return 0.5
	case Hard:
		return 1.5
	default:
		return 1.0
	}
}

// MaxWindSpeed is the strongest wind a game of this difficulty can see.
func (d Difficulty) MaxWindSpeed() float64 { return 15 * d.windMultiplier() }

func (d Difficulty) terrainSettings() (maxPeak, maxVariation float64) {
	switch d {
	case Easy:
		return 100, 100
	case Hard:
		return 300, 200
	default:
		return 200, 150
	}
}

type Wind struct {
	Speed     float64 `json:"speed"`
	Direction float64 `json:"direction"`
}

type Vegetation struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Type string  `json:"type"`
	Size float64 `json:"size"`
}

type Cloud struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Speed   float64 `json:"speed"`
	Opacity float64 `json:"opacity"`
}

// seeded is a cheap deterministic noise function over a float seed.
func seeded(seed float64) float64 {
	x := math.Sin(seed) * 10000
	return x - math.Floor(x)
}

// GenerateTerrain builds a CanvasWidth-column heightmap: a central mountain
// whose height and width scale with difficulty, raised platforms under both
// tanks, layered sine noise, then two smoothing passes. Heights are y
// coordinates (larger is lower) clamped to [150, CanvasHeight-50].
func GenerateTerrain(rng *rand.Rand, d Difficulty) []float64 {
	maxPeak, maxVariation := d.terrainSettings()
	seed := rng.Float64() * 1000

	baseLevel := CanvasHeight * (0.8 + seeded(seed)*0.1)
	mountainCenter := CanvasWidth/2 + (seeded(seed+50)-0.5)*100
	peakHeight := 100 + seeded(seed)*maxPeak
	mountainWidth := 350 + seeded(seed+100)*maxVariation
	leftPlatform := 20 + seeded(seed+200)*40
	rightPlatform := 20 + seeded(seed+300)*40

	terrain := make([]float64, CanvasWidth)
	for x := range terrain {
		fx := float64(x)
		y := baseLevel

		nd := math.Abs(fx-mountainCenter) / (mountainWidth / 2)
		if nd <= 1 {
			y -= peakHeight * math.Pow(math.Cos(nd*math.Pi/2), 1.5)
			y += math.Sin(nd*math.Pi*3) * 20 * (1 - nd)
			y += math.Cos(nd*math.Pi*5) * 15 * (1 - nd)
		}

		y -= math.Max(0, 1-math.Abs(fx-p1X)/150) * leftPlatform
		y -= math.Max(0, 1-math.Abs(fx-p2X)/150) * rightPlatform

		y += math.Sin(fx*0.008+seed) * 25
		y += math.Sin(fx*0.012+seed*2) * 18
		y += math.Cos(fx*0.015+seed*3) * 15
		y += math.Sin(fx*0.025+seed*4) * 8
		y += math.Cos(fx*0.035+seed*5) * 6
		y += (seeded(fx+seed) - 0.5) * 8

		terrain[x] = math.Max(150, math.Min(CanvasHeight-50, y))
	}

	for pass := 0; pass < 2; pass++ {
		for i := 1; i < len(terrain)-1; i++ {
			terrain[i] = (terrain[i-1] + terrain[i] + terrain[i+1]) / 3
		}
	}
	return terrain
}

// HeightAt samples the terrain at x, clamping x onto the canvas.
func HeightAt(terrain []float64, x float64) float64 {
	if len(terrain) == 0 {
		return 500
	}
	i := int(math.Floor(math.Max(0, math.Min(float64(len(terrain)-1), x))))
	return terrain[i]
}

// GenerateVegetation scatters decorations on low, flat ground away from both
// tanks and the mountain.
func GenerateVegetation(rng *rand.Rand, terrain []float64) []Vegetation {
	veg := []Vegetation{}
	for x := 50; x < 950 && x < len(terrain); x += 15 {
		y := terrain[x]
		if y <= 350 || abs(x-p1X) <= 50 || abs(x-p2X) <= 50 || abs(x-500) <= 100 {
			continue
		}
		if x != 50 && math.Abs(terrain[x]-terrain[max(0, x-10)]) >= 25 {
			continue
		}
		ax := float64(x) + (rng.Float64()-0.5)*25
		item := Vegetation{X: ax, Y: HeightAt(terrain, ax)}
		switch r := rng.Float64(); {
		case r > 0.85:
			item.Type, item.Size = "tree", 0.8+rng.Float64()*0.4
		case r > 0.7:
			item.Type, item.Size = "bush", 0.6+rng.Float64()*0.8
		case r > 0.5:
			item.Type, item.Size = "rock", 0.5+rng.Float64()
		case r > 0.3:
			item.Type, item.Size = "flowers", 0.4+rng.Float64()*0.6
		case r > 0.1:
			item.Type, item.Size = "grass", 0.3+rng.Float64()*0.7
		default:
			item.Type, item.Size = "stone", 0.2+rng.Float64()*0.6
		}
		veg = append(veg, item)
	}
	return veg
}

// GenerateClouds returns three to six background clouds.
func GenerateClouds(rng *rand.Rand) []Cloud {
	n := 3 + rng.IntN(4)
	clouds := make([]Cloud, n)
	for i := range clouds {
		clouds[i] = Cloud{
			X:       rng.Float64()*1200 - 100,
			Y:       50 + rng.Float64()*150,
			Width:   60 + rng.Float64()*80,
			Height:  30 + rng.Float64()*40,
			Speed:   0.1 + rng.Float64()*0.3,
			Opacity: 0.3 + rng.Float64()*0.4,
		}
	}
	return clouds
}

// InitialWind samples a fresh wind for a new game.
func InitialWind(rng *rand.Rand, d Difficulty) Wind {
	return Wind{
		Speed:     rng.Float64() * d.MaxWindSpeed(),
		Direction: 90 + rng.Float64()*180,
	}
}

// DriftWind nudges the previous wind: speed by up to ±2 (before scaling),
// direction by up to ±15 degrees. Speed stays within [0, MaxWindSpeed] and
// direction within [90, 270].
func DriftWind(rng *rand.Rand, d Difficulty, prev Wind) Wind {
	mult := d.windMultiplier()
	base := prev.Speed/mult + (rng.Float64()-0.5)*4
	return Wind{
		Speed:     math.Max(0, math.Min(d.MaxWindSpeed(), base*mult)),
		Direction: math.Max(90, math.Min(270, prev.Direction+(rng.Float64()-0.5)*30)),
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
