package wayfarer

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/Desarso/wayfarer/common_tools"
	models "github.com/Desarso/wayfarer/models"
	"github.com/Desarso/wayfarer/stores"
)

// recordingModel captures the last request it received.
type recordingModel struct {
	lastRequest models.Model_Request
}

func (m *recordingModel) Model_Request(request models.Model_Request, tools []models.FunctionDeclaration, conversationHistory []stores.Message) (models.Model_Response, error) {
	m.lastRequest = request
	text := "ok"
	return models.Model_Response{Parts: []models.Model_Part{{Text: &text}}}, nil
}

func (m *recordingModel) Stream_Model_Request(request models.Model_Request, tools []models.FunctionDeclaration, conversationHistory []stores.Message) (<-chan models.Model_Response, <-chan error) {
	m.lastRequest = request
	respChan := make(chan models.Model_Response)
	errChan := make(chan error)
	close(respChan)
	close(errChan)
	return respChan, errChan
}

func TestCreateToolLoadsEmbeddedSchema(t *testing.T) {
	tool, err := Create_Tool(common_tools.Web_Search)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tool.Name != "Web_Search" {
		t.Errorf("expected name 'Web_Search', got %q", tool.Name)
	}
	if tool.Callable == nil {
		t.Error("Callable should be set")
	}
	if _, ok := tool.Parameters.Properties["query"]; !ok {
		t.Error("expected 'query' property from cached schema")
	}
}

func TestRegistryNamesMatchGeneratedSchemas(t *testing.T) {
	// A model told to call a tool by its registry name must find the
	// same name in the generated declaration.
	registered := map[string]interface{}{
		common_tools.WebSearchTool().Name: common_tools.Web_Search,
		common_tools.ForecastTool().Name:  common_tools.GetForecast,
	}
	for name, fn := range registered {
		tool, err := Create_Tool(fn)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", name, err)
		}
		if tool.Name != name {
			t.Errorf("registry name %q does not match schema name %q", name, tool.Name)
		}
	}
}

func TestCreateToolRejectsNonFunction(t *testing.T) {
	if _, err := Create_Tool("not a function"); err == nil {
		t.Fatal("expected an error for non-function input")
	}
}

func TestCreateTools(t *testing.T) {
	tools, err := Create_Tools([]interface{}{
		common_tools.Web_Search,
		common_tools.GetForecast,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tools) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(tools))
	}
}

func TestExecuteToolWrapsResult(t *testing.T) {
	agent := Agent{
		Tools: []models.FunctionDeclaration{{
			Name: "echo",
			Callable: func(input string) (string, error) {
				return "echo:" + input, nil
			},
		}},
	}

	result, err := agent.ExecuteTool("echo", map[string]interface{}{"input": "hi"}, "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed map[string]string
	if err := json.Unmarshal([]byte(result), &parsed); err != nil {
		t.Fatalf("result is not valid JSON: %v", err)
	}
	if parsed["result"] != "echo:hi" {
		t.Errorf("expected wrapped result 'echo:hi', got %q", parsed["result"])
	}
}

func TestExecuteToolUnknownTool(t *testing.T) {
	agent := Agent{}
	result, err := agent.ExecuteTool("missing", map[string]interface{}{"x": "y"}, "test")
	if err == nil {
		t.Fatal("expected an error for an unknown tool")
	}
	if !strings.Contains(result, "error") {
		t.Errorf("expected error payload in result, got %q", result)
	}
}

func TestExecuteToolWrongArgumentType(t *testing.T) {
	agent := Agent{
		Tools: []models.FunctionDeclaration{{
			Name:     "echo",
			Callable: func(input string) (string, error) { return input, nil },
		}},
	}

	result, err := agent.ExecuteTool("echo", map[string]interface{}{"input": 42}, "test")
	if err == nil {
		t.Fatal("expected an error for a non-string argument")
	}

	var parsed map[string]string
	if err := json.Unmarshal([]byte(result), &parsed); err != nil {
		t.Fatalf("error payload is not valid JSON: %v", err)
	}
	if parsed["error"] == "" {
		t.Error("expected error message in payload")
	}
}

func TestRunFillsSystemInstructions(t *testing.T) {
	model := &recordingModel{}
	agent := Create_Agent("helper", "always be concise", model, nil)

	msg := models.Text_Message("hello")
	if _, err := agent.Run(models.Model_Request{User_Message: &msg}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model.lastRequest.System_Instructions != "always be concise" {
		t.Errorf("expected agent instructions on the request, got %q", model.lastRequest.System_Instructions)
	}
}

func TestRunKeepsExplicitSystemInstructions(t *testing.T) {
	model := &recordingModel{}
	agent := Create_Agent("helper", "always be concise", model, nil)

	msg := models.Text_Message("hello")
	req := models.Model_Request{User_Message: &msg, System_Instructions: "override"}
	if _, err := agent.Run(req, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model.lastRequest.System_Instructions != "override" {
		t.Errorf("explicit instructions must win, got %q", model.lastRequest.System_Instructions)
	}
}
