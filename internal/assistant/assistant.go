package assistant

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"autoapply/internal/config"
	"autoapply/internal/llm"
	"autoapply/internal/llm/processors"
	"autoapply/internal/logging"
	"autoapply/pkg/models"
	"autoapply/pkg/utils"
)

const (
	systemPrompt = "You are a job application assistant. Be concise."

	// Prompts are kept short: the model only needs the gist, and long form
	// questions blow the token budget for one-line answers
	maxPromptLength = 200
	jobTextClip     = 150
	questionClip    = 100
)

var numberRegex = regexp.MustCompile(`\d+(?:\.\d+)?`)

// Assistant answers application questions and makes fit decisions using the
// chat provider plus the candidate's resume. Every operation degrades to a
// zero value on failure so the bot never stops on an AI hiccup.
type Assistant struct {
	config  *config.Config
	chat    *llm.Manager
	resume  *Resume
	cache   *utils.AnswerCache
	cleaner *processors.HTMLCleaner
}

// New creates an assistant. The resume comes from the configured JSON file,
// falling back to RESUME_* environment variables.
func New(cfg *config.Config, chat *llm.Manager, cache *utils.AnswerCache) *Assistant {
	logger := logging.GetGlobalLogger()

	resume, err := LoadResume(cfg.Resume.InfoPath)
	if err != nil {
		logger.Warn("Resume file not available, reading RESUME_* environment variables", map[string]interface{}{
			"path":  cfg.Resume.InfoPath,
			"error": err.Error(),
		})
		resume = ResumeFromEnv()
	}
	if resume.IsEmpty() {
		logger.Warn("No resume data configured, assistant answers will be generic")
	}

	return &Assistant{
		config:  cfg,
		chat:    chat,
		resume:  resume,
		cache:   cache,
		cleaner: processors.NewHTMLCleaner(),
	}
}

// Resume exposes the loaded candidate data
func (a *Assistant) Resume() *Resume {
	return a.resume
}

// ExtractJobDetails reduces posting HTML to a one-line description and a
// requirements line
func (a *Assistant) ExtractJobDetails(ctx context.Context, html string) (string, string) {
	text, err := a.cleaner.ExtractJobContent(html)
	if err != nil || text == "" {
		return "", ""
	}

	response := a.ask(ctx, "Extract key points from job posting: "+clip(text, jobTextClip))
	if response == "" {
		return "", ""
	}

	parts := strings.Split(response, "\n")
	description := strings.TrimSpace(parts[0])
	requirements := ""
	if len(parts) > 1 {
		requirements = strings.TrimSpace(parts[1])
	}
	return description, requirements
}

// AnalyzeJob decides whether the job is worth applying to. The answer is
// parsed as "yes/no, reason"; an unreachable provider counts as no.
func (a *Assistant) AnalyzeJob(ctx context.Context, details models.JobDetails) (bool, string) {
	prompt := fmt.Sprintf("Job: %s at %s. Skills: %s. Match? (yes/no, reason)",
		details.Title, details.Company, a.resume.KeySkills())

	response := a.ask(ctx, prompt)
	if response == "" {
		return false, "Failed to analyze job"
	}

	shouldApply := strings.Contains(strings.ToLower(response), "yes")
	reason := response
	if idx := strings.Index(response, ","); idx >= 0 {
		reason = strings.TrimSpace(response[idx+1:])
	}
	return shouldApply, reason
}

// GenerateCoverLetter drafts a short cover letter for the job
func (a *Assistant) GenerateCoverLetter(ctx context.Context, details models.JobDetails) string {
	prompt := fmt.Sprintf("Write brief cover letter: %s at %s. My experience: %s",
		details.Title, details.Company, a.resume.KeyExperience())
	return a.ask(ctx, prompt)
}

// SuggestAnswer produces one screening-question answer. An empty return means
// skip the field. Option questions always resolve to one of the provided
// options; numeric fields always resolve to a bare number.
func (a *Assistant) SuggestAnswer(ctx context.Context, question, fieldType string, options []string) string {
	question = strings.TrimSpace(question)
	if question == "" {
		return ""
	}

	raw, cached := a.cache.Get(ctx, question)
	if !cached {
		prompt := "Answer job question based on resume. Q: " + clip(question, questionClip)
		if len(options) > 0 {
			prompt += " Options: " + strings.Join(options, ", ") + ". Reply with exactly one option."
		}

		raw = a.ask(ctx, prompt)
		if raw != "" {
			if err := a.cache.Put(ctx, question, raw, fieldType); err != nil {
				logging.GetGlobalLogger().Debug("Failed to cache answer", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}

	return conformAnswer(raw, fieldType, options)
}

// SuggestFormAnswers answers a batch of free-text questions keyed by field name
func (a *Assistant) SuggestFormAnswers(ctx context.Context, questions map[string]string) map[string]string {
	answers := make(map[string]string, len(questions))
	for key, text := range questions {
		if answer := a.SuggestAnswer(ctx, text, "text", nil); answer != "" {
			answers[key] = answer
		}
	}
	return answers
}

// ask sends one prompt with the resume-aware system prompt and returns the
// trimmed completion, or "" on any failure
func (a *Assistant) ask(ctx context.Context, prompt string) string {
	response := a.chat.Chat(ctx, utils.Truncate(prompt, maxPromptLength), models.ChatOptions{
		SystemPrompt: a.systemPrompt(),
	})
	if response.IsError() {
		logging.GetGlobalLogger().Warn("Assistant request failed", map[string]interface{}{
			"error": response.Error,
		})
		return ""
	}
	return strings.TrimSpace(response.Content)
}

func (a *Assistant) systemPrompt() string {
	if block := a.resume.ContextBlock(); block != "" {
		return systemPrompt + "\n\nCandidate resume:\n" + block
	}
	return systemPrompt
}

// conformAnswer forces an AI answer into the shape the form field accepts
func conformAnswer(answer, fieldType string, options []string) string {
	answer = strings.TrimSpace(answer)

	if len(options) > 0 {
		return matchOption(answer, options)
	}
	if isNumericField(fieldType) {
		return numericAnswer(answer)
	}
	return answer
}

// matchOption maps an answer onto the option list: exact match first, then
// substring, then the first option that is not a placeholder
func matchOption(answer string, options []string) string {
	for _, opt := range options {
		if trimmed := strings.TrimSpace(opt); trimmed != "" && strings.EqualFold(trimmed, answer) {
			return trimmed
		}
	}

	lower := strings.ToLower(answer)
	for _, opt := range options {
		trimmed := strings.TrimSpace(opt)
		if trimmed == "" || isPlaceholderOption(trimmed) {
			continue
		}
		if lower != "" && strings.Contains(lower, strings.ToLower(trimmed)) {
			return trimmed
		}
	}

	for _, opt := range options {
		trimmed := strings.TrimSpace(opt)
		if trimmed != "" && !isPlaceholderOption(trimmed) {
			return trimmed
		}
	}
	return ""
}

func isPlaceholderOption(opt string) bool {
	lower := strings.ToLower(opt)
	return strings.HasPrefix(lower, "select") ||
		strings.HasPrefix(lower, "choose") ||
		strings.HasPrefix(lower, "--")
}

// numericAnswer extracts the first number from an answer, defaulting to "0"
func numericAnswer(answer string) string {
	if match := numberRegex.FindString(answer); match != "" {
		return match
	}
	return "0"
}

func isNumericField(fieldType string) bool {
	switch strings.ToLower(fieldType) {
	case "number", "numeric", "tel":
		return true
	}
	return false
}

// clip returns at most n leading bytes of s
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
