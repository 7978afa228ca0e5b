package common_tools

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

//go:generate ../../gen_schema -func=Web_Search -file=web_search.go -out=../schemas/cached_schemas

// duckDuckGoResponse covers the fields we use from the Instant Answer API.
type duckDuckGoResponse struct {
	AbstractText  string `json:"AbstractText"`
	AbstractURL   string `json:"AbstractURL"`
	Answer        string `json:"Answer"`
	Heading       string `json:"Heading"`
	RelatedTopics []struct {
		Text     string `json:"Text"`
		FirstURL string `json:"FirstURL"`
	} `json:"RelatedTopics"`
}

// Web_Search is a tool to search the web using the DuckDuckGo Instant Answer
// API. No API key required.
func Web_Search(query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("query must not be empty")
	}

	apiURL := "https://api.duckduckgo.com/"

	req, err := http.NewRequest("GET", apiURL, nil)
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}

	q := req.URL.Query()
	q.Add("q", query)
	q.Add("format", "json")
	q.Add("no_html", "1")
	q.Add("skip_disambig", "1")
	req.URL.RawQuery = q.Encode()

	req.Header.Set("Accept", "application/json")

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("error sending request to DuckDuckGo API: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("DuckDuckGo API request failed with status %d: %s", resp.StatusCode, string(responseBody))
	}

	var result duckDuckGoResponse
	if err := json.Unmarshal(responseBody, &result); err != nil {
		return "", fmt.Errorf("error unmarshalling DuckDuckGo API response: %w", err)
	}

	return formatSearchResult(query, result), nil
}

// formatSearchResult prefers the abstract, then the direct answer, then
// related topics.
func formatSearchResult(query string, result duckDuckGoResponse) string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("Search Query: %s\n\n", query))

	if result.AbstractText != "" {
		builder.WriteString(result.AbstractText)
		builder.WriteString("\n")
		if result.AbstractURL != "" {
			source := sourceFromURL(result.AbstractURL)
			builder.WriteString(fmt.Sprintf("Source: %s\n", source))
		}
		return builder.String()
	}

	if result.Answer != "" {
		builder.WriteString(result.Answer)
		builder.WriteString("\n")
		return builder.String()
	}

	if len(result.RelatedTopics) > 0 {
		builder.WriteString("Related Results:\n\n")
		count := 0
		for _, topic := range result.RelatedTopics {
			if topic.Text == "" {
				continue
			}
			count++
			builder.WriteString(fmt.Sprintf("%d. %s\n", count, topic.Text))
			if topic.FirstURL != "" {
				builder.WriteString(fmt.Sprintf("   URL: %s\n", topic.FirstURL))
			}
			builder.WriteString("\n")
			if count >= 5 {
				break
			}
		}
		if count > 0 {
			return builder.String()
		}
	}

	builder.WriteString("No information found for this query.\n")
	return builder.String()
}

func sourceFromURL(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "Unknown"
	}
	return strings.TrimPrefix(parsedURL.Hostname(), "www.")
}
