package sessions

import (
	"encoding/json"
	"fmt"

	"github.com/Desarso/wayfarer/models"
	"github.com/google/uuid"
)

// RunTurn handles a complete request-response cycle: the user message (or
// tool results) goes in, model-requested function calls are executed and fed
// back, and the loop repeats until the model stops requesting calls or the
// MaxToolCalls ceiling cuts it off. Guardrails run first, before anything is
// persisted.
func (s *Session) RunTurn(request models.Model_Request) (Run_Result, error) {
	if request.User_Message == nil && request.Tool_Results == nil {
		return Run_Result{}, fmt.Errorf("request must contain either user message or tool results")
	}

	if request.User_Message != nil {
		if err := s.Agent.CheckInput(userText(*request.User_Message)); err != nil {
			return Run_Result{}, err
		}
	}

	maxCalls := s.MaxToolCalls
	if maxCalls <= 0 {
		maxCalls = DefaultMaxToolCalls
	}

	currentReq := request
	result := Run_Result{}
	rounds := 0

	for {
		if currentReq.User_Message != nil {
			if err := s.saveUserMessage(*currentReq.User_Message); err != nil {
				s.Logger.Printf("Error saving user message: %v", err)
			}
		}

		history, err := s.Store.FetchHistory(s.ConversationID)
		if err != nil {
			return result, fmt.Errorf("failed to fetch history: %w", err)
		}

		response, err := s.Agent.Run(currentReq, history)
		if err != nil {
			return result, fmt.Errorf("agent error: %w", err)
		}
		result.Parts = append(result.Parts, response.Parts...)
		s.emit(TurnEvent{Type: "model_parts", Parts: response.Parts})

		toolResults, executed, finalText, err := s.processResponse(response)
		if err != nil {
			return result, fmt.Errorf("error processing tools: %w", err)
		}
		result.Text += finalText

		if !executed {
			return result, nil
		}

		result.ToolCalls += len(toolResults)
		rounds++
		if rounds >= maxCalls {
			s.Logger.Printf("Tool call ceiling (%d rounds) reached, cutting off turn", maxCalls)
			return result, ErrToolCallLimit
		}

		currentReq = models.Model_Request{
			User_Message: nil,
			Tool_Results: &toolResults,
		}
	}
}

// RunUserTurn is a convenience wrapper for plain-text prompts.
func (s *Session) RunUserTurn(text string) (Run_Result, error) {
	msg := models.Text_Message(text)
	return s.RunTurn(models.Model_Request{User_Message: &msg})
}

// processResponse saves the model response, executes every requested
// function call, persists the function responses, and reports whether
// another round is needed. Tool failures are not fatal: ExecuteTool wraps
// them as {"error": ...} output and the model sees them like any other
// result.
func (s *Session) processResponse(response models.Model_Response) ([]models.Tool_Result, bool, string, error) {
	if len(response.Parts) == 0 {
		return nil, false, "", nil
	}

	msgType := "model_message"
	var functionID string
	type callInfo struct {
		Name string
		Args map[string]interface{}
		ID   string
	}
	var functionCalls []callInfo

	for _, part := range response.Parts {
		if part.FunctionCall == nil {
			continue
		}
		msgType = "function_call"
		id := part.FunctionCall.ID
		if id == "" {
			// Some backends omit call IDs; synthesize one so function
			// responses can still be matched up.
			id = "call_" + uuid.NewString()
			part.FunctionCall.ID = id
		}
		if functionID == "" {
			functionID = id
		}
		functionCalls = append(functionCalls, callInfo{
			Name: part.FunctionCall.Name,
			Args: part.FunctionCall.Args,
			ID:   id,
		})
	}

	if err := s.Store.SaveMessage(s.ConversationID, "model", msgType, response.Parts, functionID); err != nil {
		return nil, false, "", fmt.Errorf("failed to save model response: %w", err)
	}

	toolResults := []models.Tool_Result{}
	for _, fc := range functionCalls {
		toolResult, err := s.Agent.ExecuteTool(fc.Name, fc.Args, s.ConversationID)
		if err != nil {
			// toolResult already carries the error payload for the model
			s.Logger.Printf("Tool execution error for %s: %v", fc.Name, err)
		}

		var resultMap map[string]interface{}
		if err := json.Unmarshal([]byte(toolResult), &resultMap); err != nil {
			resultMap = map[string]interface{}{"raw_output": toolResult}
		}

		toolResponsePart := models.User_Part{
			FunctionResponse: &models.FunctionResponse{
				ID:       fc.ID,
				Name:     fc.Name,
				Response: resultMap,
			},
		}
		if err := s.Store.SaveMessage(s.ConversationID, "user", "function_response", []models.User_Part{toolResponsePart}, fc.ID); err != nil {
			s.Logger.Printf("Failed to save tool result for %s: %v", fc.Name, err)
		}

		tr := models.Tool_Result{
			Tool_ID:     fc.ID,
			Tool_Name:   fc.Name,
			Tool_Output: toolResult,
		}
		toolResults = append(toolResults, tr)
		s.emit(TurnEvent{Type: "tool_result", ToolResult: &tr})
	}

	finalText := ""
	for _, part := range response.Parts {
		if part.Text != nil {
			finalText += *part.Text
		}
	}

	return toolResults, len(toolResults) > 0, finalText, nil
}

// saveUserMessage saves a user message to the store
func (s *Session) saveUserMessage(userMessage models.User_Message) error {
	userPartsToSave := make([]models.User_Part, 0, len(userMessage.Content.Parts))
	userPartsToSave = append(userPartsToSave, userMessage.Content.Parts...)
	return s.Store.SaveMessage(s.ConversationID, "user", "user_message", userPartsToSave, "")
}

func (s *Session) emit(event TurnEvent) {
	if s.Observer != nil {
		s.Observer(event)
	}
}

func userText(msg models.User_Message) string {
	text := ""
	for _, part := range msg.Content.Parts {
		text += part.Text
	}
	return text
}

// GetChatHistory retrieves the conversation and converts it to the API
// response format, extracting display text from the stored parts.
func (s *Session) GetChatHistory() ([]models.ChatMessageResponse, error) {
	dbHistory, err := s.Store.FetchHistory(s.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}

	apiHistory := make([]models.ChatMessageResponse, 0, len(dbHistory))
	for _, msg := range dbHistory {
		apiMsg := models.ChatMessageResponse{
			ID:             msg.ID,
			CreatedAt:      msg.CreatedAt,
			UpdatedAt:      msg.UpdatedAt,
			ConversationID: msg.ConversationID,
			Sequence:       msg.Sequence,
			Role:           msg.Role,
			Type:           msg.Type,
			FunctionID:     msg.FunctionID,
		}

		if msg.PartsJSON != "" && msg.PartsJSON != "{}" && msg.PartsJSON != "null" {
			var unmarshalledParts interface{}
			if err := json.Unmarshal([]byte(msg.PartsJSON), &unmarshalledParts); err != nil {
				s.Logger.Printf("Error unmarshalling PartsJSON for msg ID %d: %v", msg.ID, err)
			} else {
				apiMsg.Parts = unmarshalledParts

				if msg.Type == "user_message" {
					var userParts []models.User_Part
					if err := json.Unmarshal([]byte(msg.PartsJSON), &userParts); err == nil {
						for _, p := range userParts {
							apiMsg.Text += p.Text
						}
					}
				} else if msg.Type == "model_message" {
					var modelParts []models.Model_Part
					if err := json.Unmarshal([]byte(msg.PartsJSON), &modelParts); err == nil {
						for _, p := range modelParts {
							if p.Text != nil {
								apiMsg.Text += *p.Text
							}
						}
					}
				}
			}
		}

		apiHistory = append(apiHistory, apiMsg)
	}

	return apiHistory, nil
}
