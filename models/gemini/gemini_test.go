package gemini

import (
	"encoding/json"
	"testing"

	models "github.com/Desarso/wayfarer/models"
	"github.com/Desarso/wayfarer/stores"
)

func TestBuildRequestReplaysEachFunctionResponseOnce(t *testing.T) {
	model := &Gemini_Model{Model: "gemini-2.0-flash"}

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

	contents, _, err := model.buildRequest(models.Model_Request{Tool_Results: &toolResults}, nil, history)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	functionCalls := 0
	functionResponses := 0
	for _, content := range contents {
		for _, part := range content.Parts {
			if part.FunctionCall != nil {
				functionCalls++
			}
			if part.FunctionResponse != nil && part.FunctionResponse.ID == "call_1" {
				functionResponses++
			}
		}
	}
	if functionResponses != 1 {
		t.Errorf("expected exactly 1 function response for call_1, got %d", functionResponses)
	}
	if functionResponses > functionCalls {
		t.Errorf("function responses (%d) must not outnumber function calls (%d)", functionResponses, functionCalls)
	}
}

func TestBuildRequestKeepsEarlierRoundFunctionResponses(t *testing.T) {
	model := &Gemini_Model{Model: "gemini-2.0-flash"}

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

	contents, _, err := model.buildRequest(models.Model_Request{Tool_Results: &toolResults}, nil, history)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seen := map[string]int{}
	for _, content := range contents {
		for _, part := range content.Parts {
			if part.FunctionResponse != nil {
				seen[part.FunctionResponse.ID]++
			}
		}
	}
	if seen["call_1"] != 1 || seen["call_2"] != 1 {
		t.Errorf("expected one response each for call_1 and call_2, got %v", seen)
	}
}
