package common_tools

import (
	"github.com/Desarso/wayfarer/models"
)

// WebSearchTool returns a FunctionDeclaration for the DuckDuckGo search tool.
func WebSearchTool() models.FunctionDeclaration {
	return models.FunctionDeclaration{
		Name:        "Web_Search",
		Description: "Search the web using the DuckDuckGo Instant Answer API. Returns a summary with sources.",
		Parameters: models.Parameters{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query string",
				},
			},
			Required: []string{"query"},
		},
		Callable: Web_Search,
	}
}

// ForecastTool returns a FunctionDeclaration for the weather forecast tool.
func ForecastTool() models.FunctionDeclaration {
	return models.FunctionDeclaration{
		Name:        "GetForecast",
		Description: "Get the weather forecast for a location.",
		Parameters: models.Parameters{
			Type: "object",
			Properties: map[string]interface{}{
				"location": map[string]interface{}{
					"type":        "string",
					"description": "City or region to get the forecast for",
				},
			},
			Required: []string{"location"},
		},
		Callable: GetForecast,
	}
}

// DefaultTools returns the standard tool set.
func DefaultTools() []models.FunctionDeclaration {
	return []models.FunctionDeclaration{
		WebSearchTool(),
		ForecastTool(),
	}
}
