// Package executor produces command results for the execute action.
//
// Commands are never run: the simulator returns a fixed placeholder so the
// rest of the flow (history, interpretation) can be exercised safely.
package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/doeshing/strike-go/internal/domain"
	"github.com/doeshing/strike-go/internal/ports"
)

// Simulator implements ports.CommandSimulator.
type Simulator struct{}

// NewSimulator builds a simulator.
func NewSimulator() *Simulator {
	return &Simulator{}
}

// Simulate returns the placeholder output for command.
func (s *Simulator) Simulate(ctx context.Context, command string) (domain.SimulationResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.SimulationResult{}, err
	}
	command = strings.TrimSpace(command)
	if command == "" {
		return domain.SimulationResult{}, domain.ErrNoCommand
	}
	return domain.SimulationResult{
		Command:   command,
		Output:    SimulatedOutput(command),
		Simulated: true,
	}, nil
}

// SimulatedOutput is the text recorded as the result of a simulated command.
func SimulatedOutput(command string) string {
	return fmt.Sprintf("Command '%s' executed successfully.\n"+
		"This is simulated output - in a real implementation, the command would be executed with proper safeguards.", command)
}

var _ ports.CommandSimulator = (*Simulator)(nil)
