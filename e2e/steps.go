package e2e

import (
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

// InitializeScenario wires all step definitions against a fresh context.
func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := NewTestContext()
	steps := &lifSteps{tc: tc}

	ctx.Step(`^the service is reachable$`, steps.serviceIsReachable)

	ctx.Step(`^I query person "([^"]*)" of type "([^"]*)" for paths "([^"]*)"$`, steps.queryPerson)
	ctx.Step(`^I register a mapping for person "([^"]*)" to "([^"]*)" as "([^"]*)" "([^"]*)"$`, steps.registerMapping)
	ctx.Step(`^I resolve the mapping for person "([^"]*)" to "([^"]*)" as "([^"]*)"$`, steps.resolveMapping)
	ctx.Step(`^I delete the mapping for person "([^"]*)" to "([^"]*)" as "([^"]*)"$`, steps.deleteMapping)

	ctx.Step(`^the response status should be (\d+)$`, steps.responseStatusShouldBe)
	ctx.Step(`^the response should contain a "([^"]*)"$`, steps.responseShouldContain)
	ctx.Step(`^the response error should be "([^"]*)"$`, steps.responseErrorShouldBe)
	ctx.Step(`^the resolved identifier should be "([^"]*)"$`, steps.resolvedIdentifierShouldBe)
}

type lifSteps struct {
	tc *TestContext
}

func (s *lifSteps) serviceIsReachable() error {
	if err := s.tc.GET("/healthz"); err != nil {
		return fmt.Errorf("service unreachable at %s: %w", s.tc.baseURL, err)
	}
	return nil
}

func (s *lifSteps) queryPerson(identifier, identifierType, paths string) error {
	return s.tc.POST("/lif/person/query", map[string]any{
		"organization_id": "org-e2e",
		"person": map[string]string{
			"identifier":      identifier,
			"identifier_type": identifierType,
		},
		"paths": strings.Split(paths, ","),
	})
}

func mappingKey(personID, targetSystem, idType string) map[string]any {
	return map[string]any{
		"lif_organization_id":          "org-e2e",
		"lif_organization_person_id":   personID,
		"target_system_id":             targetSystem,
		"target_system_person_id_type": idType,
	}
}

func (s *lifSteps) registerMapping(personID, targetSystem, idType, targetID string) error {
	body := mappingKey(personID, targetSystem, idType)
	body["target_system_person_id"] = targetID
	return s.tc.POST("/lif/mappings", body)
}

func (s *lifSteps) resolveMapping(personID, targetSystem, idType string) error {
	return s.tc.POST("/lif/mappings/resolve", mappingKey(personID, targetSystem, idType))
}

func (s *lifSteps) deleteMapping(personID, targetSystem, idType string) error {
	return s.tc.DELETE("/lif/mappings", mappingKey(personID, targetSystem, idType))
}

func (s *lifSteps) responseStatusShouldBe(expected int) error {
	if s.tc.lastStatus != expected {
		return fmt.Errorf("expected status %d, got %d: %v", expected, s.tc.lastStatus, s.tc.lastBody)
	}
	return nil
}

func (s *lifSteps) responseShouldContain(field string) error {
	_, err := s.tc.Field(field)
	return err
}

func (s *lifSteps) responseErrorShouldBe(code string) error {
	v, err := s.tc.Field("error")
	if err != nil {
		return err
	}
	if v != code {
		return fmt.Errorf("expected error code %q, got %v", code, v)
	}
	return nil
}

func (s *lifSteps) resolvedIdentifierShouldBe(expected string) error {
	v, err := s.tc.Field("target_system_person_id")
	if err != nil {
		return err
	}
	if v != expected {
		return fmt.Errorf("expected resolved identifier %q, got %v", expected, v)
	}
	return nil
}
