// Package tools routes model function calls to robot movement and
// declares the functions the model is allowed to invoke.
package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/teslashibe/reachy-companion/internal/log"
	"github.com/teslashibe/reachy-companion/pkg/live"
	"github.com/teslashibe/reachy-companion/pkg/robot"
)

// Dispatcher handles a named tool call and returns the result string
// sent back to the model.
type Dispatcher interface {
	Handle(ctx context.Context, name string, args map[string]any) (string, error)
}

// RobotDispatcher routes robot_expression and robot_look_at calls to a
// Mover. Tools not in the enabled set are rejected.
type RobotDispatcher struct {
	mover   robot.Mover
	enabled map[string]bool
}

var _ Dispatcher = (*RobotDispatcher)(nil)

// NewRobotDispatcher creates a dispatcher for the given mover. enabled
// lists allowed tool names; nil or empty enables all robot tools.
func NewRobotDispatcher(mover robot.Mover, enabled []string) *RobotDispatcher {
	set := make(map[string]bool, len(enabled))
	for _, name := range enabled {
		set[name] = true
	}
	if len(set) == 0 {
		set["robot_expression"] = true
		set["robot_look_at"] = true
	}
	return &RobotDispatcher{mover: mover, enabled: set}
}

// Handle executes a tool call. Unknown or disabled tools return a
// descriptive string with no error so the model can recover.
func (d *RobotDispatcher) Handle(ctx context.Context, name string, args map[string]any) (string, error) {
	log.Info("tool call", "name", name, "args", args)

	if !d.enabled[name] {
		log.Warn("tool not enabled", "name", name)
		return fmt.Sprintf("Unknown tool: %s", name), nil
	}

	switch name {
	case "robot_expression":
		action, _ := args["action"].(string)
		intensity := floatArg(args, "intensity", 1.0)
		return d.mover.Express(ctx, action, intensity)

	case "robot_look_at":
		direction := "center"
		if v, ok := args["direction"].(string); ok && v != "" {
			direction = v
		}
		return d.mover.LookAt(ctx, direction)

	default:
		log.Warn("unknown tool", "name", name)
		return fmt.Sprintf("Unknown tool: %s", name), nil
	}
}

// Declarations returns the function declarations for the enabled tools,
// in a stable order.
func (d *RobotDispatcher) Declarations() []live.ToolDeclaration {
	var decls []live.ToolDeclaration
	if d.enabled["robot_expression"] {
		decls = append(decls, expressionDeclaration())
	}
	if d.enabled["robot_look_at"] {
		decls = append(decls, lookAtDeclaration())
	}
	return decls
}

func expressionDeclaration() live.ToolDeclaration {
	actions := robot.Expressions()
	return live.ToolDeclaration{
		Name: "robot_expression",
		Description: "Make the robot perform a physical expression or gesture. " +
			"Use this to show emotions during conversation.",
		Parameters: map[string]any{
			"type": "OBJECT",
			"properties": map[string]any{
				"action": map[string]any{
					"type":        "STRING",
					"description": "The expression to perform. One of: " + strings.Join(actions, ", "),
					"enum":        actions,
				},
				"intensity": map[string]any{
					"type":        "NUMBER",
					"description": "Movement intensity from 0.5 (subtle) to 2.0 (exaggerated). Default 1.0.",
				},
			},
			"required": []string{"action"},
		},
	}
}

func lookAtDeclaration() live.ToolDeclaration {
	directions := robot.Directions()
	return live.ToolDeclaration{
		Name: "robot_look_at",
		Description: "Move the robot's head to look in a direction. " +
			"Use this to direct attention or respond to spatial cues.",
		Parameters: map[string]any{
			"type": "OBJECT",
			"properties": map[string]any{
				"direction": map[string]any{
					"type":        "STRING",
					"description": "Direction to look. One of: " + strings.Join(directions, ", "),
					"enum":        directions,
				},
			},
			"required": []string{"direction"},
		},
	}
}

func floatArg(args map[string]any, key string, fallback float64) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return fallback
	}
}
