package models

type Chat_Request struct {
	Message         User_Message `json:"message"`
	Conversation_ID string       `json:"conversation_id"`
}

// Model_Request is the input for one model turn. Exactly one of User_Message
// or Tool_Results must be set: a fresh user prompt starts a turn, tool
// results continue one.
type Model_Request struct {
	User_Message *User_Message  `json:"message,omitempty"`
	Tool_Results *[]Tool_Result `json:"tool_results,omitempty"`
	// System_Instructions carries the agent's instruction prompt. Agents fill
	// this in on Run; callers normally leave it empty.
	System_Instructions string `json:"system_instructions,omitempty"`
}

type Tool_Result struct {
	Tool_ID     string `json:"tool_id"` // The tool call ID to match with the tool call
	Tool_Name   string `json:"tool_name"`
	Tool_Output string `json:"tool_output"`
}
