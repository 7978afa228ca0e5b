package wayfarer

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"

	models "github.com/Desarso/wayfarer/models"
	"github.com/Desarso/wayfarer/stores"
)

//go:embed schemas/cached_schemas/*.json
var schemaFiles embed.FS

// Model is a chat backend: one request in, one response out, with optional
// tool declarations and replayed conversation history.
type Model interface {
	Model_Request(request models.Model_Request, tools []models.FunctionDeclaration, conversationHistory []stores.Message) (models.Model_Response, error)
	Stream_Model_Request(request models.Model_Request, tools []models.FunctionDeclaration, conversationHistory []stores.Message) (<-chan models.Model_Response, <-chan error)
}

// Agent pairs a named instruction prompt with a model and the tools the
// model may request by name.
type Agent struct {
	Name         string
	Instructions string
	Model        Model
	Tools        []models.FunctionDeclaration
	Guardrails   []Input_Guardrail
}

func Create_Agent(name, instructions string, model Model, tools []models.FunctionDeclaration) Agent {
	return Agent{
		Name:         name,
		Instructions: instructions,
		Model:        model,
		Tools:        tools,
	}
}

// Create_Tool takes a function, finds its generated JSON schema, and returns
// a FunctionDeclaration. Schemas are produced by the gen_schema tool and
// embedded from schemas/cached_schemas.
func Create_Tool(fn interface{}) (models.FunctionDeclaration, error) {
	fnValue := reflect.ValueOf(fn)
	if fnValue.Kind() != reflect.Func {
		return models.FunctionDeclaration{}, errors.New("input must be a function")
	}

	// Extract the base name (e.g. "Web_Search" from "common_tools.Web_Search")
	fullName := runtime.FuncForPC(fnValue.Pointer()).Name()
	funcName := fullName
	if lastDot := strings.LastIndex(fullName, "."); lastDot != -1 {
		funcName = fullName[lastDot+1:]
	}

	schemaPath := filepath.Join("schemas", "cached_schemas", funcName+".json")
	schemaBytes, err := schemaFiles.ReadFile(schemaPath)
	if err != nil {
		return models.FunctionDeclaration{}, fmt.Errorf("failed to read embedded schema file '%s': %w", schemaPath, err)
	}

	var funcDecl models.FunctionDeclaration
	if err := json.Unmarshal(schemaBytes, &funcDecl); err != nil {
		return models.FunctionDeclaration{}, fmt.Errorf("failed to unmarshal schema from '%s': %w", schemaPath, err)
	}

	funcDecl.Callable = fn
	return funcDecl, nil
}

func Create_Tools(fns []interface{}) ([]models.FunctionDeclaration, error) {
	tools := []models.FunctionDeclaration{}
	for _, fn := range fns {
		tool, err := Create_Tool(fn)
		if err != nil {
			return nil, err
		}
		tools = append(tools, tool)
	}
	return tools, nil
}

// Run performs a single model call with the agent's instructions and tools.
func (agent *Agent) Run(request models.Model_Request, conversationHistory []stores.Message) (models.Model_Response, error) {
	if request.System_Instructions == "" {
		request.System_Instructions = agent.Instructions
	}
	return agent.Model.Model_Request(request, agent.Tools, conversationHistory)
}

func (agent *Agent) Run_Stream(request models.Model_Request, conversationHistory []stores.Message) (<-chan models.Model_Response, <-chan error) {
	if request.System_Instructions == "" {
		request.System_Instructions = agent.Instructions
	}
	return agent.Model.Stream_Model_Request(request, agent.Tools, conversationHistory)
}

// ExecuteTool executes a tool dynamically by name and arguments. The tool's
// string output is wrapped as {"result": ...}; any failure becomes
// {"error": ...} so the model always receives a well-formed response.
func (agent *Agent) ExecuteTool(functionName string, functionCallArgs map[string]interface{}, sessionID string) (string, error) {
	var toolResultJSON string
	var toolExecErr error
	toolFound := false

	for _, tool := range agent.Tools {
		if tool.Name != functionName {
			continue
		}
		toolFound = true
		callableFunc := reflect.ValueOf(tool.Callable)

		if callableFunc.Kind() != reflect.Func {
			toolExecErr = fmt.Errorf("internal error: tool '%s' is not callable", functionName)
			break
		}
		funcType := callableFunc.Type()
		// Validate signature: func(string) (string, error)
		if !(funcType.NumIn() == 1 && funcType.In(0).Kind() == reflect.String &&
			funcType.NumOut() == 2 && funcType.Out(0).Kind() == reflect.String &&
			funcType.Out(1).Implements(reflect.TypeOf((*error)(nil)).Elem())) {
			toolExecErr = fmt.Errorf("internal error: tool '%s' has incompatible signature", functionName)
			break
		}

		if len(functionCallArgs) != 1 {
			toolExecErr = fmt.Errorf("tool '%s' expects 1 argument from model, got %d args: %v", functionName, len(functionCallArgs), functionCallArgs)
			break
		}
		var argName string
		var argValueInterface interface{}
		for key, val := range functionCallArgs {
			argName = key
			argValueInterface = val
			break
		}
		stringArg, ok := argValueInterface.(string)
		if !ok {
			toolExecErr = fmt.Errorf("invalid argument type for '%s': expected string for arg '%s', got %T", functionName, argName, argValueInterface)
			break
		}

		results := callableFunc.Call([]reflect.Value{reflect.ValueOf(stringArg)})

		if errResult := results[1].Interface(); errResult != nil {
			if execErr, ok := errResult.(error); ok {
				toolExecErr = execErr
			} else {
				toolExecErr = fmt.Errorf("internal error: tool '%s' returned invalid error type", functionName)
			}
		} else {
			successResultString, ok := results[0].Interface().(string)
			if !ok {
				toolExecErr = fmt.Errorf("internal error: tool '%s' returned non-string result", functionName)
			} else {
				resultBytes, marshalErr := json.Marshal(map[string]string{"result": successResultString})
				if marshalErr != nil {
					toolExecErr = fmt.Errorf("failed marshal result for '%s': %v", functionName, marshalErr)
				} else {
					toolResultJSON = string(resultBytes)
				}
			}
		}
		break // Tool found and execution attempted
	}

	if !toolFound {
		toolExecErr = fmt.Errorf("unknown or unavailable tool: %s", functionName)
	}

	if toolExecErr != nil {
		errorBytes, _ := json.Marshal(map[string]string{"error": toolExecErr.Error()})
		toolResultJSON = string(errorBytes)
	}

	return toolResultJSON, toolExecErr
}
