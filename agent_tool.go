package wayfarer

import (
	"fmt"

	models "github.com/Desarso/wayfarer/models"
	"github.com/Desarso/wayfarer/sessions"
)

// AsTool wraps the agent as a FunctionDeclaration so another agent can call
// it by name. The callable runs the sub-agent through its own bounded
// session (process-local history, fresh each call) and returns its final
// text output. This is how the orchestrator composes specialist agents.
func (agent *Agent) AsTool(toolName, description string) models.FunctionDeclaration {
	sub := agent // capture
	return models.FunctionDeclaration{
		Name:        toolName,
		Description: description,
		Parameters: models.Parameters{
			Type: "object",
			Properties: map[string]interface{}{
				"prompt": map[string]interface{}{
					"type":        "string",
					"description": "The request to hand to the " + agent.Name,
				},
			},
			Required: []string{"prompt"},
		},
		Callable: func(prompt string) (string, error) {
			session := sessions.NewSession("", sub, nil)
			result, err := session.RunTurn(requestFromText(prompt))
			if err != nil {
				return "", fmt.Errorf("%s failed: %w", sub.Name, err)
			}
			return result.Text, nil
		},
	}
}

func requestFromText(text string) models.Model_Request {
	msg := models.Text_Message(text)
	return models.Model_Request{User_Message: &msg}
}
