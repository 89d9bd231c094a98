package artillery

import (
	"math"

	"github.com/duelhub/duel/internal/models"
)

const (
	gravity  = 9.81
	timeStep = 0.1
	// barrelReach is the barrel length plus the turret offset.
	barrelReach = 25 + 8
	tankHeight  = 30
	// HitRadius is the distance from the tank centre that counts as a hit.
	HitRadius = 30
	// maxSteps bounds a trajectory; gravity ends every shot well before it.
	maxSteps = 10000
)

// Point is one sampled projectile position, rounded to whole pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Trajectory integrates a shot from the shooter's barrel tip until it leaves
// the canvas or meets the terrain. The second player faces left, so its
// angle is mirrored. The last point is the impact when the shell lands.
func Trajectory(angle, power float64, from models.Position, terrain []float64, firstPlayer bool, wind Wind) []Point {
	adjusted := angle
	if !firstPlayer {
		adjusted = 180 - angle
	}
	rad := adjusted * math.Pi / 180

	tankY := HeightAt(terrain, from.X) - tankHeight
	nozzleX := from.X + math.Cos(rad)*barrelReach
	nozzleY := tankY + 8 - math.Sin(rad)*barrelReach

	vx := power * math.Cos(rad) * 2
	vy := -power * math.Sin(rad) * 2

	windRad := wind.Direction * math.Pi / 180
	windVx := math.Cos(windRad) * wind.Speed * 0.3
	windVy := -math.Sin(windRad) * wind.Speed * 0.1

	points := []Point{}
	for step := 1; step <= maxSteps; step++ {
		t := float64(step) * timeStep
		x := nozzleX + vx*t + windVx*t*t
		y := nozzleY + vy*t + 0.5*gravity*t*t + windVy*t*t

		if x >= CanvasWidth || x < 0 || y >= CanvasHeight {
			break
		}
		points = append(points, Point{X: math.Round(x), Y: math.Round(y)})
		if int(x) < len(terrain) && y >= terrain[int(x)] {
			break
		}
	}
	return points
}

// PredictHit reports whether the final point of a trajectory lands within
// HitRadius of the target tank's centre. It is advisory: damage is applied
// on the shooter's confirmation.
func PredictHit(points []Point, target models.Position, terrain []float64) bool {
	if len(points) == 0 {
		return false
	}
	last := points[len(points)-1]
	cy := HeightAt(terrain, target.X) - tankHeight + 15
	return math.Hypot(last.X-target.X, last.Y-cy) <= HitRadius
}
