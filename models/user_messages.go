package models

type User_Message struct {
	Role    string  `json:"role"`
	Content Content `json:"content"`
}

type Content struct {
	Parts []User_Part `json:"parts"`
}

type User_Part struct {
	Text             string            `json:"text,omitempty"`
	FunctionResponse *FunctionResponse `json:"function_response,omitempty"`
}

// FunctionResponse carries a tool's output back to the model inside a
// user-role message.
type FunctionResponse struct {
	ID       string                 `json:"id,omitempty"` // Matching tool call ID, when the provider requires one
	Name     string                 `json:"name"`
	Response map[string]interface{} `json:"response"`
}

// Text_Message wraps plain text as a single-part user message.
func Text_Message(text string) User_Message {
	return User_Message{
		Role: "user",
		Content: Content{
			Parts: []User_Part{{Text: text}},
		},
	}
}
