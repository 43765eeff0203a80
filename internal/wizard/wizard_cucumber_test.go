//go:build cucumber

package wizard

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/cucumber/godog"
)

// TestWizardScenarios runs the connection wizard feature scenarios.
func TestWizardScenarios(t *testing.T) {
	featurePath := filepath.Join("testdata", "features", "connect.feature")
	suite := godog.TestSuite{
		Name: "connect-wizard",
		ScenarioInitializer: func(ctx *godog.ScenarioContext) {
			InitializeWizardScenario(ctx, t)
		},
		Options: &godog.Options{
			Format:    "pretty",
			Paths:     []string{featurePath},
			Strict:    true,
			TestingT:  t,
			Randomize: 0,
		},
	}
	if suite.Run() != 0 {
		t.Fatalf("non-zero godog status")
	}
}

// InitializeWizardScenario wires steps for wizard scenarios.
func InitializeWizardScenario(ctx *godog.ScenarioContext, t *testing.T) {
	state := &wizardScenarioState{t: t}
	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		state.m = nil
		return ctx, nil
	})

	ctx.Step(`^a wizard with failure threshold (\d+) on platform "([^"]*)"$`, state.givenWizard)
	ctx.Step(`^the platform is "([^"]*)"$`, state.givenPlatform)
	ctx.Step(`^the probe reports (reachable|unreachable)$`, state.whenProbe)
	ctx.Step(`^(\d+) ms pass$`, state.whenTimePasses)
	ctx.Step(`^the user completes the checklist$`, state.whenChecklistCompleted)
	ctx.Step(`^the user acknowledges "([^"]*)"$`, state.whenAcknowledged)
	ctx.Step(`^the status is "([^"]*)"$`, state.thenStatus)
	ctx.Step(`^no step is acknowledged$`, state.thenChecklistCleared)
}

type wizardScenarioState struct {
	t *testing.T
	m *machine
}

// givenWizard builds a fresh machine with the default timings.
func (s *wizardScenarioState) givenWizard(threshold int, platform string) error {
	p := DefaultPolicy()
	p.FailureThreshold = threshold
	s.m = newMachine(s.t, p, platform)
	return nil
}

// givenPlatform switches platform before any interaction.
func (s *wizardScenarioState) givenPlatform(platform string) error {
	s.m.send(PlatformEvent{Platform: platform})
	return nil
}

// whenProbe feeds one probe outcome.
func (s *wizardScenarioState) whenProbe(outcome string) error {
	s.m.sample(outcome == "reachable")
	return nil
}

// whenTimePasses advances virtual time.
func (s *wizardScenarioState) whenTimePasses(ms int) error {
	s.m.advance(time.Duration(ms) * time.Millisecond)
	return nil
}

// whenChecklistCompleted acknowledges every step.
func (s *wizardScenarioState) whenChecklistCompleted() error {
	s.m.toggle(stepIDs...)
	return nil
}

// whenAcknowledged toggles one step.
func (s *wizardScenarioState) whenAcknowledged(id string) error {
	s.m.toggle(id)
	return nil
}

// thenStatus compares the displayed status.
func (s *wizardScenarioState) thenStatus(want string) error {
	if got := s.m.state.Status; string(got) != want {
		return fmt.Errorf("status = %s, want %s (history %v)", got, want, s.m.statuses)
	}
	return nil
}

// thenChecklistCleared verifies every step was reset.
func (s *wizardScenarioState) thenChecklistCleared() error {
	for id, done := range s.m.state.Checklist {
		if done {
			return fmt.Errorf("step %s still acknowledged", id)
		}
	}
	return nil
}
