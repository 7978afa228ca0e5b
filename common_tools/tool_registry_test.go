package common_tools

import (
	"strings"
	"testing"
)

func TestWebSearchToolDeclaration(t *testing.T) {
	tool := WebSearchTool()
	if tool.Name != "Web_Search" {
		t.Errorf("expected name 'Web_Search', got %q", tool.Name)
	}
	if tool.Description == "" {
		t.Error("description should not be empty")
	}
	if tool.Callable == nil {
		t.Error("Callable should not be nil")
	}
	if tool.Parameters.Type != "object" {
		t.Errorf("expected object type, got %q", tool.Parameters.Type)
	}
	if _, ok := tool.Parameters.Properties["query"]; !ok {
		t.Error("expected 'query' property")
	}
	if len(tool.Parameters.Required) != 1 || tool.Parameters.Required[0] != "query" {
		t.Errorf("expected required=['query'], got %v", tool.Parameters.Required)
	}
}

func TestForecastToolDeclaration(t *testing.T) {
	tool := ForecastTool()
	if tool.Name != "GetForecast" {
		t.Errorf("expected name 'GetForecast', got %q", tool.Name)
	}
	if tool.Callable == nil {
		t.Error("Callable should not be nil")
	}
	if _, ok := tool.Parameters.Properties["location"]; !ok {
		t.Error("expected 'location' property")
	}
}

func TestGetForecast(t *testing.T) {
	result, err := GetForecast("Lisbon")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == "" {
		t.Error("expected a non-empty forecast")
	}
}

func TestDefaultTools(t *testing.T) {
	tools := DefaultTools()
	if len(tools) != 2 {
		t.Errorf("expected 2 default tools, got %d", len(tools))
	}

	names := map[string]bool{}
	for _, tool := range tools {
		names[tool.Name] = true
	}
	for _, name := range []string{"Web_Search", "GetForecast"} {
		if !names[name] {
			t.Errorf("expected tool %q in default set", name)
		}
	}
}

func TestFormatSearchResultPrefersAbstract(t *testing.T) {
	result := formatSearchResult("go language", duckDuckGoResponse{
		AbstractText: "Go is a statically typed language.",
		AbstractURL:  "https://en.wikipedia.org/wiki/Go",
		Answer:       "should not appear",
	})
	if !strings.Contains(result, "statically typed") {
		t.Errorf("expected abstract text in result, got %q", result)
	}
	if strings.Contains(result, "should not appear") {
		t.Errorf("answer should not be used when abstract is present, got %q", result)
	}
	if !strings.Contains(result, "en.wikipedia.org") {
		t.Errorf("expected source hostname in result, got %q", result)
	}
}

func TestFormatSearchResultFallsBackToNoInformation(t *testing.T) {
	result := formatSearchResult("gibberish", duckDuckGoResponse{})
	if !strings.Contains(result, "No information found") {
		t.Errorf("expected fallback message, got %q", result)
	}
}
