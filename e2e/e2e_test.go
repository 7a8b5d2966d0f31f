package e2e

import (
	"os"
	"testing"

	"github.com/cucumber/godog"
)

// TestFeatures runs the Gherkin suite against a live server. Start the
// service (and the orchestrator mock) first, then run with LIF_E2E=1.
func TestFeatures(t *testing.T) {
	if os.Getenv("LIF_E2E") == "" {
		t.Skip("set LIF_E2E=1 with a running server to execute end-to-end features")
	}

	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("end-to-end features failed")
	}
}
