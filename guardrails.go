package wayfarer

import (
	"errors"
	"fmt"
	"log"

	models "github.com/Desarso/wayfarer/models"
)

// ErrGuardrailTripped is returned when an input guardrail blocks a request
// before the primary agent call runs.
var ErrGuardrailTripped = errors.New("input guardrail tripwire triggered")

// Guardrail_Verdict is the structured output expected from a validator agent.
type Guardrail_Verdict struct {
	IsSafe bool   `json:"is_safe"`
	Reason string `json:"reason"`
}

// Input_Guardrail gates an agent's primary call behind a one-shot validation
// call to a second agent. The validator's is_safe field decides; false trips
// the guardrail.
type Input_Guardrail struct {
	Name      string
	Validator *Agent
}

// Check runs the validator against the raw user input. An unparseable
// verdict fails closed: the input is treated as blocked.
func (g *Input_Guardrail) Check(input string) (Guardrail_Verdict, error) {
	if g.Validator == nil {
		return Guardrail_Verdict{}, fmt.Errorf("guardrail '%s' has no validator agent", g.Name)
	}

	msg := models.Text_Message(input)
	response, err := g.Validator.Run(models.Model_Request{User_Message: &msg}, nil)
	if err != nil {
		return Guardrail_Verdict{}, fmt.Errorf("guardrail '%s' validation call failed: %w", g.Name, err)
	}

	var verdict Guardrail_Verdict
	if err := Parse_Structured(Final_Text(response.Parts), &verdict); err != nil {
		return Guardrail_Verdict{}, fmt.Errorf("guardrail '%s' returned unparseable verdict: %w", g.Name, err)
	}
	return verdict, nil
}

// CheckInput runs all of the agent's input guardrails against the user's
// text. It returns an error wrapping ErrGuardrailTripped if any guardrail's
// verdict is unsafe, and the validator's failure itself if one cannot render
// a verdict.
func (agent *Agent) CheckInput(input string) error {
	for i := range agent.Guardrails {
		g := &agent.Guardrails[i]
		verdict, err := g.Check(input)
		if err != nil {
			return err
		}
		if !verdict.IsSafe {
			log.Printf("Guardrail %s blocked input: %s", g.Name, verdict.Reason)
			return fmt.Errorf("%w: %s", ErrGuardrailTripped, verdict.Reason)
		}
	}
	return nil
}
