package openai

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	models "github.com/Desarso/wayfarer/models"
	"github.com/Desarso/wayfarer/stores"
	"github.com/joho/godotenv"
)

const (
	// DefaultBaseURL points at a local Ollama server, which speaks the
	// OpenAI chat-completions format. Override with BaseURL or
	// OPENAI_BASE_URL for hosted providers.
	DefaultBaseURL = "http://localhost:11434/v1/chat/completions"
	DefaultModel   = "llama3.2"
)

func init() {
	// Load .env file if it exists (not present in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
}

// OpenAI_Model implements the Model interface for any OpenAI-compatible
// chat-completions endpoint: OpenAI itself, OpenRouter, or a local Ollama.
type OpenAI_Model struct {
	Model        string   // Model identifier (e.g. "llama3.2", "gpt-4o-mini")
	Temperature  *float64 //
	MaxTokens    *int     //
	SystemPrompt string   // Optional: fallback system prompt when the request carries none
	BaseURL      string   // Optional: custom API base URL (defaults to local Ollama)
	APIKeyEnv    string   // Optional: env var holding the API key (defaults to OPENAI_API_KEY)
}

// Model_Request implements the Model interface
func (o *OpenAI_Model) Model_Request(request models.Model_Request, tools []models.FunctionDeclaration, conversationHistory []stores.Message) (models.Model_Response, error) {
	if request.User_Message == nil && request.Tool_Results == nil {
		return models.Model_Response{}, fmt.Errorf("request must contain either user message or tool results")
	}

	response, err := o.makeRequest(request, tools, conversationHistory)
	if err != nil {
		return models.Model_Response{}, err
	}

	return o.chatResponseToModelResponse(response), nil
}

// Stream_Model_Request implements the Model interface for streaming
func (o *OpenAI_Model) Stream_Model_Request(request models.Model_Request, tools []models.FunctionDeclaration, conversationHistory []stores.Message) (<-chan models.Model_Response, <-chan error) {
	if request.User_Message == nil && request.Tool_Results == nil {
		errChan := make(chan error, 1)
		respChan := make(chan models.Model_Response)
		errChan <- fmt.Errorf("request must contain either user message or tool results")
		close(errChan)
		close(respChan)
		return respChan, errChan
	}

	return o.makeStreamRequest(request, tools, conversationHistory)
}

func (o *OpenAI_Model) modelName() string {
	if o.Model != "" {
		return o.Model
	}
	return DefaultModel
}

func (o *OpenAI_Model) baseURL() string {
	if o.BaseURL != "" {
		return o.BaseURL
	}
	if env := os.Getenv("OPENAI_BASE_URL"); env != "" {
		return env
	}
	return DefaultBaseURL
}

// chatResponseToModelResponse converts the wire response to Model_Response
func (o *OpenAI_Model) chatResponseToModelResponse(response ChatResponse) models.Model_Response {
	modelResponse := models.Model_Response{}

	for _, choice := range response.Choices {
		if content, ok := choice.Message.Content.(string); ok && content != "" {
			text := content
			modelResponse.Parts = append(modelResponse.Parts, models.Model_Part{
				Text: &text,
			})
		}

		for _, toolCall := range choice.Message.ToolCalls {
			if toolCall.Type != "function" {
				continue
			}
			var args map[string]interface{}
			if err := json.Unmarshal([]byte(toolCall.Function.Arguments), &args); err != nil {
				log.Printf("Warning: Failed to unmarshal tool call arguments: %v", err)
				args = map[string]interface{}{}
			}

			modelResponse.Parts = append(modelResponse.Parts, models.Model_Part{
				FunctionCall: &models.FunctionCall{
					ID:   toolCall.ID,
					Name: toolCall.Function.Name,
					Args: args,
				},
			})
		}
	}

	return modelResponse
}

// makeRequest sends a non-streaming chat-completions request
func (o *OpenAI_Model) makeRequest(request models.Model_Request, tools []models.FunctionDeclaration, conversationHistory []stores.Message) (ChatResponse, error) {
	requestBody, err := o.createChatRequest(request, tools, conversationHistory, false)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("failed to create chat request: %w", err)
	}

	jsonBytes, err := json.Marshal(requestBody)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequest("POST", o.baseURL(), bytes.NewReader(jsonBytes))
	if err != nil {
		return ChatResponse{}, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	o.setHeaders(req)

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
			return ChatResponse{}, fmt.Errorf("chat API error: %s (type: %s)", errResp.Error.Message, errResp.Error.Type)
		}
		return ChatResponse{}, fmt.Errorf("chat API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var response ChatResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return ChatResponse{}, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return response, nil
}

// makeStreamRequest sends a streaming chat-completions request
func (o *OpenAI_Model) makeStreamRequest(request models.Model_Request, tools []models.FunctionDeclaration, conversationHistory []stores.Message) (<-chan models.Model_Response, <-chan error) {
	respChan := make(chan models.Model_Response)
	errChan := make(chan error, 1)

	go func() {
		defer close(respChan)
		defer close(errChan)

		requestBody, err := o.createChatRequest(request, tools, conversationHistory, true)
		if err != nil {
			errChan <- fmt.Errorf("failed to create chat request: %w", err)
			return
		}

		jsonBytes, err := json.Marshal(requestBody)
		if err != nil {
			errChan <- fmt.Errorf("failed to marshal request body: %w", err)
			return
		}

		req, err := http.NewRequest("POST", o.baseURL(), bytes.NewReader(jsonBytes))
		if err != nil {
			errChan <- fmt.Errorf("failed to create HTTP request: %w", err)
			return
		}

		o.setHeaders(req)

		client := &http.Client{}
		resp, err := client.Do(req)
		if err != nil {
			errChan <- fmt.Errorf("HTTP request failed: %w", err)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			var errResp ErrorResponse
			if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
				errChan <- fmt.Errorf("chat API error: %s (type: %s)", errResp.Error.Message, errResp.Error.Type)
			} else {
				errChan <- fmt.Errorf("chat API error: status %d, body: %s", resp.StatusCode, string(body))
			}
			return
		}

		// Tool call arguments arrive in fragments across chunks; accumulate
		// them by choice index and flush at end of stream.
		toolCallAccumulator := make(map[int]*ToolCall)
		flushToolCalls := func() {
			if len(toolCallAccumulator) == 0 {
				return
			}
			modelResp := models.Model_Response{}
			for _, tc := range toolCallAccumulator {
				var args map[string]interface{}
				if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
					log.Printf("Warning: Failed to unmarshal final tool call arguments: %v", err)
					args = map[string]interface{}{}
				}
				modelResp.Parts = append(modelResp.Parts, models.Model_Part{
					FunctionCall: &models.FunctionCall{
						ID:   tc.ID,
						Name: tc.Function.Name,
						Args: args,
					},
				})
			}
			respChan <- modelResp
		}

		reader := bufio.NewReader(resp.Body)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				if err == io.EOF {
					flushToolCalls()
					return
				}
				errChan <- fmt.Errorf("error reading stream: %w", err)
				return
			}

			line = strings.TrimSpace(line)
			if line == "" || !strings.HasPrefix(line, "data: ") {
				continue
			}

			data := strings.TrimPrefix(line, "data: ")
			if data == "[DONE]" {
				flushToolCalls()
				return
			}

			var streamResp StreamResponse
			if err := json.Unmarshal([]byte(data), &streamResp); err != nil {
				log.Printf("Warning: Failed to unmarshal stream chunk: %v, data: %s", err, data)
				continue
			}

			for _, choice := range streamResp.Choices {
				if choice.Delta == nil {
					continue
				}

				modelResp := models.Model_Response{}

				if content, ok := choice.Delta.Content.(string); ok && content != "" {
					text := content
					modelResp.Parts = append(modelResp.Parts, models.Model_Part{
						Text: &text,
					})
				}

				for _, toolCall := range choice.Delta.ToolCalls {
					idx := choice.Index
					if existing, ok := toolCallAccumulator[idx]; ok {
						existing.Function.Arguments += toolCall.Function.Arguments
					} else {
						toolCallAccumulator[idx] = &ToolCall{
							ID:   toolCall.ID,
							Type: toolCall.Type,
							Function: ToolCallFunction{
								Name:      toolCall.Function.Name,
								Arguments: toolCall.Function.Arguments,
							},
						}
					}
				}

				if len(modelResp.Parts) > 0 {
					respChan <- modelResp
				}
			}
		}
	}()

	return respChan, errChan
}

// setHeaders sets auth and content headers. A local Ollama server ignores
// the key, so the placeholder "ollama" is used when no env key is present.
func (o *OpenAI_Model) setHeaders(req *http.Request) {
	apiKeyEnv := o.APIKeyEnv
	if apiKeyEnv == "" {
		apiKeyEnv = "OPENAI_API_KEY"
	}
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		apiKey = "ollama"
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")
}

// createChatRequest builds the request body: system prompt first, then the
// replayed history, then either the current turn's tool results or the new
// user message.
func (o *OpenAI_Model) createChatRequest(request models.Model_Request, tools []models.FunctionDeclaration, conversationHistory []stores.Message, stream bool) (ChatRequest, error) {
	messages := []Message{}

	systemPrompt := request.System_Instructions
	if systemPrompt == "" {
		systemPrompt = o.SystemPrompt
	}
	if systemPrompt != "" {
		messages = append(messages, Message{
			Role:    "system",
			Content: systemPrompt,
		})
	}

	// The current round's tool results are appended below; their already
	// persisted function_response rows must not be replayed from history
	// too, or the endpoint sees the same tool_call_id twice.
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
		msg, err := convertHistoryMessage(histMsg)
		if err != nil {
			log.Printf("Warning: Failed to convert history message %d: %v", histMsg.ID, err)
			continue
		}
		if msg != nil {
			messages = append(messages, *msg)
		}
	}

	if request.Tool_Results != nil && len(*request.Tool_Results) > 0 {
		for _, tr := range *request.Tool_Results {
			toolCallID := tr.Tool_ID
			messages = append(messages, Message{
				Role:       "tool",
				Content:    tr.Tool_Output,
				ToolCallID: &toolCallID,
			})
		}
	} else if request.User_Message != nil {
		if userMsg := convertUserMessage(*request.User_Message); userMsg != nil {
			messages = append(messages, *userMsg)
		}
	}

	if len(messages) == 0 {
		return ChatRequest{}, fmt.Errorf("cannot create chat request with no messages")
	}

	chatReq := ChatRequest{
		Model:    o.modelName(),
		Messages: messages,
		Stream:   stream,
	}

	if len(tools) > 0 {
		chatReq.Tools = ConvertToTools(tools)
		chatReq.ToolChoice = "auto"
	}

	if o.Temperature != nil {
		chatReq.Temperature = o.Temperature
	}
	if o.MaxTokens != nil {
		chatReq.MaxTokens = o.MaxTokens
	}

	return chatReq, nil
}

// convertHistoryMessage converts a stored message to the wire format.
// function_response rows become role:"tool" messages; model rows become
// assistant messages carrying text and/or tool calls.
func convertHistoryMessage(histMsg stores.Message) (*Message, error) {
	if histMsg.PartsJSON == "" || histMsg.PartsJSON == "{}" || histMsg.PartsJSON == "null" {
		return nil, nil
	}

	switch histMsg.Role {
	case "user":
		var userParts []models.User_Part
		if err := json.Unmarshal([]byte(histMsg.PartsJSON), &userParts); err != nil {
			return nil, fmt.Errorf("failed to unmarshal user parts: %w", err)
		}

		for _, part := range userParts {
			if part.FunctionResponse != nil {
				toolCallID := part.FunctionResponse.ID
				responseBytes, _ := json.Marshal(part.FunctionResponse.Response)
				return &Message{
					Role:       "tool",
					Content:    string(responseBytes),
					ToolCallID: &toolCallID,
				}, nil
			}
		}

		var text strings.Builder
		for _, part := range userParts {
			text.WriteString(part.Text)
		}
		if text.Len() == 0 {
			return nil, nil
		}
		return &Message{
			Role:    "user",
			Content: text.String(),
		}, nil

	case "model":
		var modelParts []models.Model_Part
		if err := json.Unmarshal([]byte(histMsg.PartsJSON), &modelParts); err != nil {
			return nil, fmt.Errorf("failed to unmarshal model parts: %w", err)
		}

		msg := &Message{Role: "assistant"}

		var textContent strings.Builder
		var toolCalls []ToolCall

		for _, part := range modelParts {
			if part.Text != nil && *part.Text != "" {
				textContent.WriteString(*part.Text)
			}
			if part.FunctionCall != nil {
				argsBytes, _ := json.Marshal(part.FunctionCall.Args)
				toolCalls = append(toolCalls, ToolCall{
					ID:   part.FunctionCall.ID,
					Type: "function",
					Function: ToolCallFunction{
						Name:      part.FunctionCall.Name,
						Arguments: string(argsBytes),
					},
				})
			}
		}

		if textContent.Len() > 0 {
			msg.Content = textContent.String()
		}
		if len(toolCalls) > 0 {
			msg.ToolCalls = toolCalls
		}

		if msg.Content == nil && len(msg.ToolCalls) == 0 {
			return nil, nil
		}
		return msg, nil
	}

	return nil, fmt.Errorf("unknown role: %s", histMsg.Role)
}

// convertUserMessage converts a User_Message to the wire format
func convertUserMessage(message models.User_Message) *Message {
	if len(message.Content.Parts) == 0 {
		return nil
	}

	var text strings.Builder
	for _, part := range message.Content.Parts {
		text.WriteString(part.Text)
	}
	if text.Len() == 0 {
		return nil
	}

	return &Message{
		Role:    "user",
		Content: text.String(),
	}
}
