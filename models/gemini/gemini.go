package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	models "github.com/Desarso/wayfarer/models"
	"github.com/Desarso/wayfarer/stores"
	"github.com/joho/godotenv"
	"google.golang.org/genai"
)

func init() {
	// Load .env file if it exists (not present in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
}

// Gemini_Model implements the Model interface over the Gemini API. The
// client reads GEMINI_API_KEY from the environment.
type Gemini_Model struct {
	Model        string `json:"model"`
	SystemPrompt string `json:"system_prompt,omitempty"`
}

func (g *Gemini_Model) modelName() string {
	if g.Model != "" {
		return g.Model
	}
	return "gemini-2.0-flash"
}

func (g *Gemini_Model) Model_Request(request models.Model_Request, tools []models.FunctionDeclaration, conversationHistory []stores.Message) (models.Model_Response, error) {
	if request.User_Message == nil && request.Tool_Results == nil {
		return models.Model_Response{}, fmt.Errorf("request must contain either user message or tool results")
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		return models.Model_Response{}, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	contents, config, err := g.buildRequest(request, tools, conversationHistory)
	if err != nil {
		return models.Model_Response{}, err
	}

	result, err := client.Models.GenerateContent(ctx, g.modelName(), contents, config)
	if err != nil {
		return models.Model_Response{}, fmt.Errorf("gemini request failed: %w", err)
	}

	return responseToModelResponse(result), nil
}

func (g *Gemini_Model) Stream_Model_Request(request models.Model_Request, tools []models.FunctionDeclaration, conversationHistory []stores.Message) (<-chan models.Model_Response, <-chan error) {
	respChan := make(chan models.Model_Response)
	errChan := make(chan error, 1)

	if request.User_Message == nil && request.Tool_Results == nil {
		errChan <- fmt.Errorf("request must contain either user message or tool results")
		close(errChan)
		close(respChan)
		return respChan, errChan
	}

	go func() {
		defer close(respChan)
		defer close(errChan)

		ctx := context.Background()
		client, err := genai.NewClient(ctx, nil)
		if err != nil {
			errChan <- fmt.Errorf("failed to create Gemini client: %w", err)
			return
		}

		contents, config, err := g.buildRequest(request, tools, conversationHistory)
		if err != nil {
			errChan <- err
			return
		}

		for result, err := range client.Models.GenerateContentStream(ctx, g.modelName(), contents, config) {
			if err != nil {
				errChan <- fmt.Errorf("gemini stream failed: %w", err)
				return
			}
			modelResp := responseToModelResponse(result)
			if len(modelResp.Parts) > 0 {
				respChan <- modelResp
			}
		}
	}()

	return respChan, errChan
}

func responseToModelResponse(result *genai.GenerateContentResponse) models.Model_Response {
	modelResponse := models.Model_Response{}
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			var modelPart models.Model_Part
			if part.Text != "" {
				text := part.Text
				modelPart.Text = &text
			}
			if part.FunctionCall != nil {
				modelPart.FunctionCall = &models.FunctionCall{
					ID:   part.FunctionCall.ID,
					Name: part.FunctionCall.Name,
					Args: part.FunctionCall.Args,
				}
			}
			if modelPart.Text == nil && modelPart.FunctionCall == nil {
				continue
			}
			modelResponse.Parts = append(modelResponse.Parts, modelPart)
		}
	}
	return modelResponse
}

// buildRequest assembles the content list (history, then either the current
// tool results or the new user message) and the generation config.
func (g *Gemini_Model) buildRequest(request models.Model_Request, tools []models.FunctionDeclaration, conversationHistory []stores.Message) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	contents := []*genai.Content{}

	// The current round's tool results are appended below; their already
	// persisted function_response rows must not be replayed from history
	// too, or the turn carries more function responses than calls.
	currentResults := map[string]bool{}
	if request.Tool_Results != nil {
		for _, tr := range *request.Tool_Results {
			currentResults[tr.Tool_ID] = true
		}
	}

	for _, histMsg := range conversationHistory {
		if histMsg.Type == "function_response" && currentResults[histMsg.FunctionID] {
			continue
		}
		content, err := convertHistoryMessage(histMsg)
		if err != nil {
			log.Printf("Warning: Failed to convert history message %d: %v", histMsg.ID, err)
			continue
		}
		if content != nil {
			contents = append(contents, content)
		}
	}

	if request.Tool_Results != nil && len(*request.Tool_Results) > 0 {
		// Each function response goes in its own user-role content block
		for _, tr := range *request.Tool_Results {
			var respMap map[string]interface{}
			if err := json.Unmarshal([]byte(tr.Tool_Output), &respMap); err != nil {
				respMap = map[string]interface{}{"output": tr.Tool_Output}
			}
			contents = append(contents, &genai.Content{
				Role: "user",
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{
						ID:       tr.Tool_ID,
						Name:     tr.Tool_Name,
						Response: respMap,
					},
				}},
			})
		}
	} else if request.User_Message != nil {
		var text strings.Builder
		for _, part := range request.User_Message.Content.Parts {
			text.WriteString(part.Text)
		}
		if text.Len() > 0 {
			contents = append(contents, &genai.Content{
				Role:  "user",
				Parts: []*genai.Part{{Text: text.String()}},
			})
		}
	}

	if len(contents) == 0 {
		return nil, nil, fmt.Errorf("cannot create Gemini request with no content")
	}

	config := &genai.GenerateContentConfig{}

	systemPrompt := request.System_Instructions
	if systemPrompt == "" {
		systemPrompt = g.SystemPrompt
	}
	if systemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		}
	}

	if len(tools) > 0 {
		declarations := make([]*genai.FunctionDeclaration, 0, len(tools))
		for _, tool := range tools {
			declarations = append(declarations, &genai.FunctionDeclaration{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  convertParameters(tool.Parameters),
			})
		}
		config.Tools = []*genai.Tool{{FunctionDeclarations: declarations}}
	}

	return contents, config, nil
}

func convertHistoryMessage(histMsg stores.Message) (*genai.Content, error) {
	if histMsg.PartsJSON == "" || histMsg.PartsJSON == "{}" || histMsg.PartsJSON == "null" {
		return nil, nil
	}

	switch histMsg.Role {
	case "user":
		var userParts []models.User_Part
		if err := json.Unmarshal([]byte(histMsg.PartsJSON), &userParts); err != nil {
			return nil, fmt.Errorf("failed to unmarshal user parts: %w", err)
		}
		parts := []*genai.Part{}
		for _, p := range userParts {
			if p.FunctionResponse != nil {
				parts = append(parts, &genai.Part{
					FunctionResponse: &genai.FunctionResponse{
						ID:       p.FunctionResponse.ID,
						Name:     p.FunctionResponse.Name,
						Response: p.FunctionResponse.Response,
					},
				})
				continue
			}
			if p.Text != "" {
				parts = append(parts, &genai.Part{Text: p.Text})
			}
		}
		if len(parts) == 0 {
			return nil, nil
		}
		return &genai.Content{Role: "user", Parts: parts}, nil

	case "model":
		var modelParts []models.Model_Part
		if err := json.Unmarshal([]byte(histMsg.PartsJSON), &modelParts); err != nil {
			return nil, fmt.Errorf("failed to unmarshal model parts: %w", err)
		}
		parts := []*genai.Part{}
		for _, p := range modelParts {
			part := &genai.Part{}
			if p.Text != nil {
				part.Text = *p.Text
			}
			if p.FunctionCall != nil {
				part.FunctionCall = &genai.FunctionCall{
					ID:   p.FunctionCall.ID,
					Name: p.FunctionCall.Name,
					Args: p.FunctionCall.Args,
				}
			}
			if part.Text == "" && part.FunctionCall == nil {
				continue
			}
			parts = append(parts, part)
		}
		if len(parts) == 0 {
			return nil, nil
		}
		return &genai.Content{Role: "model", Parts: parts}, nil
	}

	return nil, fmt.Errorf("unknown role: %s", histMsg.Role)
}

// convertParameters maps a JSON-schema parameter block onto the SDK's
// schema type.
func convertParameters(params models.Parameters) *genai.Schema {
	schema := &genai.Schema{
		Type:     genai.TypeObject,
		Required: params.Required,
	}
	if len(params.Properties) > 0 {
		schema.Properties = map[string]*genai.Schema{}
		for name, prop := range params.Properties {
			propMap, ok := prop.(map[string]interface{})
			if !ok {
				continue
			}
			schema.Properties[name] = schemaFromMap(propMap)
		}
	}
	return schema
}

func schemaFromMap(m map[string]interface{}) *genai.Schema {
	schema := &genai.Schema{}

	if t, ok := m["type"].(string); ok {
		switch t {
		case "string":
			schema.Type = genai.TypeString
		case "number":
			schema.Type = genai.TypeNumber
		case "integer":
			schema.Type = genai.TypeInteger
		case "boolean":
			schema.Type = genai.TypeBoolean
		case "array":
			schema.Type = genai.TypeArray
		case "object":
			schema.Type = genai.TypeObject
		}
	}
	if desc, ok := m["description"].(string); ok {
		schema.Description = desc
	}
	if items, ok := m["items"].(map[string]interface{}); ok {
		schema.Items = schemaFromMap(items)
	}
	if props, ok := m["properties"].(map[string]interface{}); ok {
		schema.Properties = map[string]*genai.Schema{}
		for name, prop := range props {
			if propMap, ok := prop.(map[string]interface{}); ok {
				schema.Properties[name] = schemaFromMap(propMap)
			}
		}
	}
	if req, ok := m["required"].([]interface{}); ok {
		for _, r := range req {
			if s, ok := r.(string); ok {
				schema.Required = append(schema.Required, s)
			}
		}
	}

	return schema
}
