package llm

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"FraudShield/internal/domain"
)

const defaultSystemPrompt = `You are a fraud detection expert specializing in identifying scams, phishing attempts, and misleading content online.
Your task is to analyze the provided content and determine if it contains signs of fraud or deception.

You MUST respond in the following JSON format ONLY:
{
  "riskLevel": "LOW|MEDIUM|HIGH",
  "confidence": number between 0-100,
  "indicators": ["indicator1", "indicator2"],
  "explanation": "Clear explanation of your analysis",
  "recommendedAction": "What the user should do"
}`

const userPromptTemplate = `Analyze this content from %s for potential fraud indicators:

CONTENT TO ANALYZE:
%s

ADDITIONAL CONTEXT:
%s

Focus on detecting phishing attempts, scams, social engineering, deceptive practices, false urgency or threats and suspicious links or requests.

Respond ONLY with a JSON object as specified. Do not include any other text outside the JSON.`

// BuildMessages renders the system and user messages for one request.
func BuildMessages(systemPrompt string, req domain.AnalysisRequest, maxChars int) []chatMessage {
	source := strings.TrimSpace(req.URL)
	if source == "" {
		source = "an unknown source"
	}
	extra := strings.TrimSpace(req.Context)
	if extra == "" {
		extra = "No additional context provided"
	}

	return []chatMessage{
		{Role: "system", Content: safePrompt(systemPrompt)},
		{Role: "user", Content: fmt.Sprintf(userPromptTemplate, source, Truncate(req.Content, maxChars), extra)},
	}
}

// Truncate cuts s to at most max runes and marks the cut with "...".
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return defaultSystemPrompt
	}
	return prompt
}
