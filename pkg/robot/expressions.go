package robot

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Pose is a head orientation in degrees. Zero values mean neutral.
type Pose struct {
	Roll  float64
	Pitch float64
	Yaw   float64
}

// Step is one frame of a choreography. Antennas are [right, left] in
// degrees: 0 = flat, -30 = perked forward, 30 = drooped back.
type Step struct {
	Head     Pose
	Antennas [2]float64
	BodyYaw  float64
	Duration time.Duration
}

func (s Step) scaled(intensity float64) Step {
	return Step{
		Head: Pose{
			Roll:  s.Head.Roll * intensity,
			Pitch: s.Head.Pitch * intensity,
			Yaw:   s.Head.Yaw * intensity,
		},
		Antennas: [2]float64{s.Antennas[0] * intensity, s.Antennas[1] * intensity},
		BodyYaw:  s.BodyYaw * intensity,
		Duration: s.Duration,
	}
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// expressions maps action names to choreography steps.
var expressions = map[string][]Step{
	"nod": {
		{Head: Pose{Pitch: -15}, Antennas: [2]float64{-10, -10}, Duration: ms(300)},
		{Head: Pose{Pitch: 10}, Antennas: [2]float64{-10, -10}, Duration: ms(300)},
		{Head: Pose{Pitch: -10}, Antennas: [2]float64{-10, -10}, Duration: ms(250)},
		{Duration: ms(300)},
	},
	"shake_head": {
		{Head: Pose{Yaw: -20}, Duration: ms(250)},
		{Head: Pose{Yaw: 20}, Duration: ms(250)},
		{Head: Pose{Yaw: -15}, Duration: ms(200)},
		{Duration: ms(250)},
	},
	"tilt_curious": {
		{Head: Pose{Roll: 20, Pitch: -5}, Antennas: [2]float64{-25, -15}, Duration: ms(500)},
		{Duration: ms(500)},
	},
	"wiggle_antenna_happy": {
		{Antennas: [2]float64{-30, -30}, Duration: ms(200)},
		{Antennas: [2]float64{10, 10}, Duration: ms(200)},
		{Antennas: [2]float64{-30, -30}, Duration: ms(200)},
		{Antennas: [2]float64{10, 10}, Duration: ms(200)},
		{Duration: ms(200)},
	},
	"look_away_shy": {
		{Head: Pose{Yaw: 30, Pitch: 10, Roll: -5}, Antennas: [2]float64{15, 15}, BodyYaw: 10, Duration: ms(600)},
		{Head: Pose{Yaw: 15, Pitch: 5}, Antennas: [2]float64{5, 5}, BodyYaw: 5, Duration: ms(500)},
		{Duration: ms(500)},
	},
	"surprise": {
		{Head: Pose{Pitch: -15}, Antennas: [2]float64{-30, -30}, Duration: ms(200)},
		{Head: Pose{Pitch: -10}, Antennas: [2]float64{-30, -30}, Duration: ms(500)},
		{Duration: ms(400)},
	},
	"thinking": {
		{Head: Pose{Roll: 10, Pitch: -10, Yaw: 15}, Antennas: [2]float64{-5, -20}, Duration: ms(500)},
		{Head: Pose{Roll: 10, Pitch: -10, Yaw: 15}, Antennas: [2]float64{-5, -20}, Duration: ms(1000)},
		{Duration: ms(400)},
	},
	"sad": {
		{Head: Pose{Pitch: 20}, Antennas: [2]float64{20, 20}, Duration: ms(600)},
		{Head: Pose{Pitch: 15}, Antennas: [2]float64{15, 15}, Duration: ms(800)},
		{Duration: ms(500)},
	},
	"excited": {
		{Head: Pose{Pitch: -10}, Antennas: [2]float64{-30, -30}, BodyYaw: -5, Duration: ms(200)},
		{Head: Pose{Pitch: -5}, Antennas: [2]float64{-30, -30}, BodyYaw: 5, Duration: ms(200)},
		{Head: Pose{Pitch: -10}, Antennas: [2]float64{-30, -30}, BodyYaw: -5, Duration: ms(200)},
		{Head: Pose{Pitch: -5}, Antennas: [2]float64{-30, -30}, BodyYaw: 5, Duration: ms(200)},
		{Duration: ms(300)},
	},
}

// lookDirections maps direction names to head poses.
var lookDirections = map[string]Pose{
	"left":   {Yaw: 30},
	"right":  {Yaw: -30},
	"up":     {Pitch: -20},
	"down":   {Pitch: 20},
	"center": {},
	"user":   {Pitch: -5}, // glance slightly up at the user
}

// wakeSteps and sleepSteps are the state-transition animations.
var wakeSteps = []Step{
	{Head: Pose{Pitch: -10}, Antennas: [2]float64{-20, -20}, Duration: ms(1000)},
	{Duration: ms(500)},
}

var sleepSteps = []Step{
	{Head: Pose{Pitch: 25}, Antennas: [2]float64{25, 25}, Duration: ms(1500)},
}

// Expressions returns the available expression names, sorted.
func Expressions() []string {
	names := make([]string, 0, len(expressions))
	for name := range expressions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Directions returns the available look directions, sorted.
func Directions() []string {
	names := make([]string, 0, len(lookDirections))
	for name := range lookDirections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func unknownExpression(action string) string {
	return fmt.Sprintf("Unknown expression %q. Available: %s", action, strings.Join(Expressions(), ", "))
}

func unknownDirection(direction string) string {
	return fmt.Sprintf("Unknown direction %q. Available: %s", direction, strings.Join(Directions(), ", "))
}

func clampIntensity(intensity float64) float64 {
	if intensity <= 0 {
		return 1.0
	}
	if intensity > 2.0 {
		return 2.0
	}
	return intensity
}
