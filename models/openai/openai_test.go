package openai

import (
	"encoding/json"
	"testing"

	models "github.com/Desarso/wayfarer/models"
	"github.com/Desarso/wayfarer/stores"
)

func TestConvertToToolSanitizesEmptyFields(t *testing.T) {
	tool := ConvertToTool(models.FunctionDeclaration{
		Name:        "bare_tool",
		Description: "no params",
	})

	if tool.Type != "function" {
		t.Errorf("expected type 'function', got %q", tool.Type)
	}
	params, ok := tool.Function.Parameters.(SanitizedParameters)
	if !ok {
		t.Fatalf("expected SanitizedParameters, got %T", tool.Function.Parameters)
	}
	if params.Type != "object" {
		t.Errorf("expected object type, got %q", params.Type)
	}
	if params.Properties == nil {
		t.Error("properties must not be nil")
	}
	if params.Required == nil {
		t.Error("required must not be nil")
	}
}

func TestCreateChatRequestBuildsSystemAndUserMessages(t *testing.T) {
	model := &OpenAI_Model{Model: "llama3.2"}
	msg := models.Text_Message("plan a trip")
	req := models.Model_Request{
		User_Message:        &msg,
		System_Instructions: "you are a travel agent",
	}

	chatReq, err := model.createChatRequest(req, nil, nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if chatReq.Model != "llama3.2" {
		t.Errorf("expected model 'llama3.2', got %q", chatReq.Model)
	}
	if len(chatReq.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(chatReq.Messages))
	}
	if chatReq.Messages[0].Role != "system" || chatReq.Messages[0].Content != "you are a travel agent" {
		t.Errorf("unexpected system message: %+v", chatReq.Messages[0])
	}
	if chatReq.Messages[1].Role != "user" || chatReq.Messages[1].Content != "plan a trip" {
		t.Errorf("unexpected user message: %+v", chatReq.Messages[1])
	}
}

func TestCreateChatRequestDefaultsModel(t *testing.T) {
	model := &OpenAI_Model{}
	msg := models.Text_Message("hi")
	chatReq, err := model.createChatRequest(models.Model_Request{User_Message: &msg}, nil, nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chatReq.Model != DefaultModel {
		t.Errorf("expected default model %q, got %q", DefaultModel, chatReq.Model)
	}
}

func TestCreateChatRequestToolResultsBecomeToolMessages(t *testing.T) {
	model := &OpenAI_Model{Model: "llama3.2"}
	toolResults := []models.Tool_Result{{
		Tool_ID:     "call_1",
		Tool_Name:   "web_search",
		Tool_Output: `{"result": "found it"}`,
	}}

	chatReq, err := model.createChatRequest(models.Model_Request{Tool_Results: &toolResults}, nil, nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(chatReq.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(chatReq.Messages))
	}
	msg := chatReq.Messages[0]
	if msg.Role != "tool" {
		t.Errorf("expected role 'tool', got %q", msg.Role)
	}
	if msg.ToolCallID == nil || *msg.ToolCallID != "call_1" {
		t.Errorf("expected tool_call_id 'call_1', got %v", msg.ToolCallID)
	}
}

func TestCreateChatRequestIncludesTools(t *testing.T) {
	model := &OpenAI_Model{Model: "llama3.2"}
	msg := models.Text_Message("search")
	tools := []models.FunctionDeclaration{{Name: "web_search", Description: "search the web"}}

	chatReq, err := model.createChatRequest(models.Model_Request{User_Message: &msg}, tools, nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chatReq.Tools) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(chatReq.Tools))
	}
	if chatReq.ToolChoice != "auto" {
		t.Errorf("expected tool_choice 'auto', got %v", chatReq.ToolChoice)
	}
}

func TestConvertHistoryMessageUserText(t *testing.T) {
	parts, _ := json.Marshal([]models.User_Part{{Text: "hello"}})
	msg, err := convertHistoryMessage(stores.Message{
		Role:      "user",
		Type:      "user_message",
		PartsJSON: string(parts),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Role != "user" || msg.Content != "hello" {
		t.Errorf("unexpected message: %+v", msg)
	}
}

func TestConvertHistoryMessageFunctionResponse(t *testing.T) {
	parts, _ := json.Marshal([]models.User_Part{{
		FunctionResponse: &models.FunctionResponse{
			ID:       "call_9",
			Name:     "web_search",
			Response: map[string]interface{}{"result": "data"},
		},
	}})
	msg, err := convertHistoryMessage(stores.Message{
		Role:      "user",
		Type:      "function_response",
		PartsJSON: string(parts),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Role != "tool" {
		t.Errorf("expected role 'tool', got %q", msg.Role)
	}
	if msg.ToolCallID == nil || *msg.ToolCallID != "call_9" {
		t.Errorf("expected tool_call_id 'call_9', got %v", msg.ToolCallID)
	}
}

func TestConvertHistoryMessageModelWithToolCalls(t *testing.T) {
	text := "calling a tool"
	parts, _ := json.Marshal([]models.Model_Part{
		{Text: &text},
		{FunctionCall: &models.FunctionCall{
			ID:   "call_2",
			Name: "web_search",
			Args: map[string]interface{}{"query": "x"},
		}},
	})
	msg, err := convertHistoryMessage(stores.Message{
		Role:      "model",
		Type:      "function_call",
		PartsJSON: string(parts),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Role != "assistant" {
		t.Errorf("expected role 'assistant', got %q", msg.Role)
	}
	if msg.Content != "calling a tool" {
		t.Errorf("unexpected content: %v", msg.Content)
	}
	if len(msg.ToolCalls) != 1 || msg.ToolCalls[0].ID != "call_2" {
		t.Errorf("unexpected tool calls: %v", msg.ToolCalls)
	}
}

func TestConvertHistoryMessageSkipsEmpty(t *testing.T) {
	for _, partsJSON := range []string{"", "{}", "null"} {
		msg, err := convertHistoryMessage(stores.Message{Role: "user", PartsJSON: partsJSON})
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", partsJSON, err)
		}
		if msg != nil {
			t.Errorf("expected nil message for %q, got %+v", partsJSON, msg)
		}
	}
}

func TestChatResponseToModelResponse(t *testing.T) {
	model := &OpenAI_Model{}
	resp := ChatResponse{Choices: []Choice{{
		Message: Message{
			Role:    "assistant",
			Content: "some text",
			ToolCalls: []ToolCall{{
				ID:   "call_3",
				Type: "function",
				Function: ToolCallFunction{
					Name:      "web_search",
					Arguments: `{"query": "hello"}`,
				},
			}},
		},
	}}}

	modelResp := model.chatResponseToModelResponse(resp)
	if len(modelResp.Parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(modelResp.Parts))
	}
	if modelResp.Parts[0].Text == nil || *modelResp.Parts[0].Text != "some text" {
		t.Errorf("unexpected text part: %+v", modelResp.Parts[0])
	}
	fc := modelResp.Parts[1].FunctionCall
	if fc == nil || fc.ID != "call_3" || fc.Name != "web_search" {
		t.Fatalf("unexpected function call part: %+v", modelResp.Parts[1])
	}
	if fc.Args["query"] != "hello" {
		t.Errorf("unexpected args: %v", fc.Args)
	}
}

func TestCreateChatRequestReplaysEachToolResultOnce(t *testing.T) {
	model := &OpenAI_Model{Model: "llama3.2"}

	userParts, _ := json.Marshal([]models.User_Part{{Text: "find hotels in Lisbon"}})
	callParts, _ := json.Marshal([]models.Model_Part{{FunctionCall: &models.FunctionCall{
		ID:   "call_1",
		Name: "web_search",
		Args: map[string]interface{}{"query": "hotels in Lisbon"},
	}}})
	responseParts, _ := json.Marshal([]models.User_Part{{
		FunctionResponse: &models.FunctionResponse{
			ID:       "call_1",
			Name:     "web_search",
			Response: map[string]interface{}{"result": "three options"},
		},
	}})
	history := []stores.Message{
		{Role: "user", Type: "user_message", PartsJSON: string(userParts)},
		{Role: "model", Type: "function_call", PartsJSON: string(callParts)},
		{Role: "user", Type: "function_response", FunctionID: "call_1", PartsJSON: string(responseParts)},
	}
	toolResults := []models.Tool_Result{{
		Tool_ID:     "call_1",
		Tool_Name:   "web_search",
		Tool_Output: `{"result": "three options"}`,
	}}

	chatReq, err := model.createChatRequest(models.Model_Request{Tool_Results: &toolResults}, nil, history, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	toolMessages := 0
	for _, msg := range chatReq.Messages {
		if msg.Role == "tool" && msg.ToolCallID != nil && *msg.ToolCallID == "call_1" {
			toolMessages++
		}
	}
	if toolMessages != 1 {
		t.Errorf("expected exactly 1 tool message for call_1, got %d", toolMessages)
	}
	if len(chatReq.Messages) != 3 {
		t.Errorf("expected 3 messages (user, assistant, tool), got %d", len(chatReq.Messages))
	}
}

func TestCreateChatRequestKeepsEarlierRoundToolResponses(t *testing.T) {
	model := &OpenAI_Model{Model: "llama3.2"}

	earlierParts, _ := json.Marshal([]models.User_Part{{
		FunctionResponse: &models.FunctionResponse{
			ID:       "call_1",
			Name:     "web_search",
			Response: map[string]interface{}{"result": "earlier round"},
		},
	}})
	history := []stores.Message{
		{Role: "user", Type: "function_response", FunctionID: "call_1", PartsJSON: string(earlierParts)},
	}
	toolResults := []models.Tool_Result{{
		Tool_ID:     "call_2",
		Tool_Name:   "web_search",
		Tool_Output: `{"result": "current round"}`,
	}}

	chatReq, err := model.createChatRequest(models.Model_Request{Tool_Results: &toolResults}, nil, history, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(chatReq.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(chatReq.Messages))
	}
	if chatReq.Messages[0].ToolCallID == nil || *chatReq.Messages[0].ToolCallID != "call_1" {
		t.Errorf("expected earlier round response for call_1 first, got %+v", chatReq.Messages[0])
	}
	if chatReq.Messages[1].ToolCallID == nil || *chatReq.Messages[1].ToolCallID != "call_2" {
		t.Errorf("expected current round response for call_2 last, got %+v", chatReq.Messages[1])
	}
}
