package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"autoapply/internal/config"
	"autoapply/internal/llm"
	"autoapply/internal/logging"
	"autoapply/internal/posting"
	"autoapply/pkg/models"
)

const healthCheckTimeout = 15 * time.Second

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var code int
	switch command {
	case "chat":
		code = runChat(args)
	case "analyze":
		code = runAnalyze(args)
	case "generate":
		code = runGenerate(args)
	case "batch":
		code = runBatch(args)
	case "health":
		code = runHealth(args)
	case "generate-resume":
		code = runGenerateResume(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", command)
		printUsage()
		code = 1
	}

	logging.CloseLogging()
	os.Exit(code)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: chatctl <command> [flags]

Commands:
  chat             Send a message and print the reply
  analyze          Analyze text, a file, or a job posting URL
  generate         Generate text from a prompt
  batch            Send several prompts concurrently
  health           Probe the configured provider
  generate-resume  Draft RESUME_* env entries with the chat API
  help             Show this message

Run 'chatctl <command> -h' for command flags.
`)
}

// setup loads config, points all logs at stderr so stdout stays
// machine-readable, and starts the chat manager.
func setup() (*config.Config, *llm.Manager, error) {
	cfg, err := config.LoadConfig("configs/config.yaml")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	cfg.Logging.Level = "warn"
	cfg.Logging.Adapters = []config.LoggingAdapter{{
		Name:    "cli_stderr",
		Type:    "stdout",
		Enabled: true,
		Options: map[string]interface{}{"target": "stderr"},
	}}
	if err := logging.InitializeLogging(cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	manager := llm.NewManager(cfg)
	if err := manager.Start(); err != nil {
		return nil, nil, fmt.Errorf("failed to start chat manager: %w", err)
	}
	return cfg, manager, nil
}

func fail(err error) int {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}

// printResponse writes a response to stdout, or its error to stderr. API
// failures live in the record, so the exit code stays zero either way.
func printResponse(resp *models.ChatResponse, asJSON bool) {
	if asJSON {
		out, err := json.MarshalIndent(resp.ToMap(), "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return
		}
		fmt.Println(string(out))
		return
	}

	if resp.IsError() {
		fmt.Fprintf(os.Stderr, "Error: %s\n", resp.Error)
		return
	}
	fmt.Println(resp.Content)
}

func runChat(args []string) int {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	var message, system, model string
	var temperature float64
	var maxTokens int
	var stream, asJSON bool
	fs.StringVar(&message, "m", "", "Message to send (required)")
	fs.StringVar(&message, "message", "", "Message to send (required)")
	fs.StringVar(&system, "s", "", "System prompt")
	fs.StringVar(&system, "system", "", "System prompt")
	fs.Float64Var(&temperature, "t", 0, "Sampling temperature")
	fs.Float64Var(&temperature, "temperature", 0, "Sampling temperature")
	fs.IntVar(&maxTokens, "max-tokens", 0, "Maximum tokens in the reply")
	fs.StringVar(&model, "model", "", "Model identifier")
	fs.BoolVar(&stream, "stream", false, "Stream the reply as it arrives")
	fs.BoolVar(&asJSON, "json", false, "Print the full response as JSON")
	fs.Parse(args)

	if message == "" {
		fmt.Fprintln(os.Stderr, "chat: -m/--message is required")
		fs.Usage()
		return 1
	}

	_, manager, err := setup()
	if err != nil {
		return fail(err)
	}

	opts := models.ChatOptions{
		Model:        model,
		SystemPrompt: system,
		Temperature:  temperature,
		MaxTokens:    maxTokens,
	}
	ctx := context.Background()

	if stream {
		for chunk := range manager.ChatStream(ctx, message, opts) {
			if chunk.Err != nil {
				fmt.Fprintf(os.Stderr, "\nError: %v\n", chunk.Err)
				return 0
			}
			fmt.Print(chunk.Content)
		}
		fmt.Println()
		return 0
	}

	printResponse(manager.Chat(ctx, message, opts), asJSON)
	return 0
}

func runAnalyze(args []string) int {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	var file, postingURL, analysisType string
	var asJSON bool
	fs.StringVar(&file, "file", "", "Read the text from a file")
	fs.StringVar(&postingURL, "url", "", "Fetch a job posting URL and analyze its content")
	fs.StringVar(&analysisType, "type", "general", "Type of analysis")
	fs.BoolVar(&asJSON, "json", false, "Print the full response as JSON")
	fs.Parse(args)

	cfg, manager, err := setup()
	if err != nil {
		return fail(err)
	}
	ctx := context.Background()

	var text string
	switch {
	case postingURL != "":
		fetched, err := posting.NewFetcher(cfg).Fetch(ctx, postingURL)
		if err != nil {
			return fail(fmt.Errorf("failed to fetch %s: %w", postingURL, err))
		}
		text = fetched
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return fail(err)
		}
		text = string(data)
	default:
		text = strings.Join(fs.Args(), " ")
	}

	if strings.TrimSpace(text) == "" {
		fmt.Fprintln(os.Stderr, "analyze: provide text, --file, or --url")
		fs.Usage()
		return 1
	}

	printResponse(manager.AnalyzeText(ctx, text, analysisType, models.ChatOptions{}), asJSON)
	return 0
}

func runGenerate(args []string) int {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	var model string
	var maxTokens int
	var asJSON bool
	fs.StringVar(&model, "model", "", "Model identifier")
	fs.IntVar(&maxTokens, "max-tokens", 0, "Maximum tokens in the reply")
	fs.BoolVar(&asJSON, "json", false, "Print the full response as JSON")
	fs.Parse(args)

	prompt := strings.Join(fs.Args(), " ")
	if strings.TrimSpace(prompt) == "" {
		fmt.Fprintln(os.Stderr, "generate: a prompt is required")
		fs.Usage()
		return 1
	}

	_, manager, err := setup()
	if err != nil {
		return fail(err)
	}

	opts := models.ChatOptions{Model: model, MaxTokens: maxTokens}
	printResponse(manager.GenerateText(context.Background(), prompt, opts), asJSON)
	return 0
}

func runBatch(args []string) int {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	var file string
	var concurrency int
	var asJSON bool
	fs.StringVar(&file, "file", "", "Read prompts from a file, one per line")
	fs.IntVar(&concurrency, "concurrency", 3, "Maximum in-flight requests")
	fs.BoolVar(&asJSON, "json", false, "Print the full responses as JSON")
	fs.Parse(args)

	prompts := fs.Args()
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return fail(err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				prompts = append(prompts, line)
			}
		}
	}
	if len(prompts) == 0 {
		fmt.Fprintln(os.Stderr, "batch: provide prompts as arguments or with --file")
		fs.Usage()
		return 1
	}

	_, manager, err := setup()
	if err != nil {
		return fail(err)
	}

	responses := manager.BatchProcess(context.Background(), prompts, models.ChatOptions{}, concurrency)

	if asJSON {
		maps := make([]map[string]interface{}, len(responses))
		for i, resp := range responses {
			maps[i] = resp.ToMap()
		}
		out, err := json.MarshalIndent(maps, "", "  ")
		if err != nil {
			return fail(err)
		}
		fmt.Println(string(out))
		return 0
	}

	for i, resp := range responses {
		if resp.IsError() {
			fmt.Fprintf(os.Stderr, "[%d] Error: %s\n", i+1, resp.Error)
			continue
		}
		fmt.Printf("[%d] %s\n", i+1, resp.Content)
	}
	return 0
}

func runHealth(args []string) int {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	fs.Parse(args)

	_, manager, err := setup()
	if err != nil {
		return fail(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
	defer cancel()

	if err := manager.CheckHealth(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s: unhealthy: %v\n", manager.GetProviderName(), err)
		return 1
	}
	fmt.Printf("%s: healthy\n", manager.GetProviderName())
	return 0
}

// resumeSection pairs an env key with the prompt that drafts its value.
type resumeSection struct {
	Key    string
	Prompt string
}

func resumeSections(role string) []resumeSection {
	return []resumeSection{
		{"RESUME_NAME", fmt.Sprintf("Generate a professional full name for a %s", role)},
		{"RESUME_EMAIL", "Generate a professional email address based on the name"},
		{"RESUME_PHONE", "Generate a US phone number in format: (XXX) XXX-XXXX"},
		{"RESUME_EXPERIENCE", fmt.Sprintf(`Generate a brief work experience summary for a %s with the following format:
- Senior Software Engineer at Tech Corp (2020-Present): Full-stack development, team leadership
- Software Engineer at StartupX (2018-2020): Backend development, API design`, role)},
		{"RESUME_EDUCATION", `Generate an education summary in this format:
- M.S. Computer Science, Top University (2018)
- B.S. Computer Science, Another University (2016)`},
		{"RESUME_SKILLS", fmt.Sprintf("List 10-15 relevant technical skills for a %s, comma-separated", role)},
		{"RESUME_SUMMARY", fmt.Sprintf("Write a 2-3 sentence professional summary for a %s", role)},
		{"RESUME_WORK_AUTH", "Generate a work authorization status (e.g., 'Authorized to work in the US')"},
		{"RESUME_LINKEDIN", "Generate a LinkedIn URL"},
		{"RESUME_GITHUB", "Generate a GitHub URL"},
		{"RESUME_PORTFOLIO", "Generate a portfolio website URL"},
		{"RESUME_YEARS_OF_EXPERIENCE", fmt.Sprintf("Generate number of years of experience as a %s (just the number)", role)},
		{"RESUME_PREFERRED_LOCATION", "Generate preferred work location (e.g., 'San Francisco Bay Area, CA')"},
		{"RESUME_CURRENT_TITLE", fmt.Sprintf("Generate current job title for a %s", role)},
	}
}

// runGenerateResume drafts one value per RESUME_* key and prints env lines to
// stdout, ready to append to .env.local. Progress goes to stderr.
func runGenerateResume(args []string) int {
	fs := flag.NewFlagSet("generate-resume", flag.ExitOnError)
	var role string
	fs.StringVar(&role, "role", "full-stack software engineer", "Role the resume is written for")
	fs.Parse(args)

	_, manager, err := setup()
	if err != nil {
		return fail(err)
	}

	opts := models.ChatOptions{
		SystemPrompt: "You are a professional resume writer. Be concise and professional.",
		Temperature:  0.7,
		MaxTokens:    500,
	}
	ctx := context.Background()

	var lines []string
	for _, section := range resumeSections(role) {
		fmt.Fprintf(os.Stderr, "Generating %s...\n", section.Key)

		resp := manager.Chat(ctx, section.Prompt, opts)
		if resp.IsError() {
			fmt.Fprintf(os.Stderr, "Failed to generate %s: %s\n", section.Key, resp.Error)
			continue
		}

		value := strings.ReplaceAll(strings.TrimSpace(resp.Content), `"`, `\"`)
		lines = append(lines, fmt.Sprintf("%s=\"%s\"", section.Key, value))
	}

	if len(lines) == 0 {
		fmt.Fprintln(os.Stderr, "No sections generated")
		return 0
	}

	fmt.Println()
	fmt.Println("# Resume Information - AI Generated")
	for _, line := range lines {
		fmt.Println(line)
	}
	return 0
}
