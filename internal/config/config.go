package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoggingAdapter configures a single log output adapter
type LoggingAdapter struct {
	Name    string                 `yaml:"name"`
	Type    string                 `yaml:"type"`
	Enabled bool                   `yaml:"enabled"`
	Options map[string]interface{} `yaml:"options"`
}

// Config represents the application configuration
type Config struct {
	// Env is the deployment environment resolved from APP_ENV
	Env string `yaml:"-"`

	Server struct {
		Enabled      bool          `yaml:"enabled"`
		Port         int           `yaml:"port" validate:"gte=1,lte=65535"`
		Host         string        `yaml:"host"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
		IdleTimeout  time.Duration `yaml:"idle_timeout"`
	} `yaml:"server"`

	AI struct {
		Provider    string        `yaml:"provider" validate:"oneof=aiml claude"`
		APIKey      string        `yaml:"api_key"`
		BaseURL     string        `yaml:"base_url"`
		Model       string        `yaml:"model"`
		Temperature float64       `yaml:"temperature" validate:"gte=0,lte=2"`
		MaxTokens   int           `yaml:"max_tokens" validate:"gt=0"`
		Timeout     time.Duration `yaml:"timeout"`
		RateLimit   int           `yaml:"rate_limit"` // requests per minute
	} `yaml:"ai"`

	LinkedIn struct {
		Email                string        `yaml:"email"`
		Password             string        `yaml:"password"`
		BaseURL              string        `yaml:"base_url"`
		SearchKeywords       string        `yaml:"search_keywords"`
		SearchLocation       string        `yaml:"search_location"`
		MaxJobs              int           `yaml:"max_jobs" validate:"gte=1"`
		PageTimeout          time.Duration `yaml:"page_timeout"`
		SecurityCheckTimeout time.Duration `yaml:"security_check_timeout"`
		AnalyzeFit           bool          `yaml:"analyze_fit"`
	} `yaml:"linkedin"`

	Browser struct {
		ChromePath  string `yaml:"chrome_path"`
		UserAgent   string `yaml:"user_agent"`
		Headless    bool   `yaml:"headless"`
		StealthMode bool   `yaml:"stealth_mode"`
	} `yaml:"browser"`

	Captcha struct {
		Provider        string        `yaml:"provider"`
		APIKey          string        `yaml:"api_key"`
		Timeout         time.Duration `yaml:"timeout"`
		EnableAutoSolve bool          `yaml:"enable_auto_solve"`
		ManualWait      time.Duration `yaml:"manual_wait"`
	} `yaml:"captcha"`

	Store struct {
		Path     string `yaml:"path"`
		LockPath string `yaml:"lock_path"`
	} `yaml:"store"`

	Redis struct {
		URL       string        `yaml:"url"`
		Password  string        `yaml:"password"`
		DB        int           `yaml:"db"`
		Timeout   time.Duration `yaml:"timeout"`
		AnswerTTL time.Duration `yaml:"answer_ttl"`
	} `yaml:"redis"`

	Resume struct {
		InfoPath string `yaml:"info_path"`
	} `yaml:"resume"`

	Firecrawl struct {
		APIKey  string        `yaml:"api_key"`
		APIURL  string        `yaml:"api_url"`
		Version string        `yaml:"version"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"firecrawl"`

	Webhook struct {
		URL        string        `yaml:"url"`
		Timeout    time.Duration `yaml:"timeout"`
		MaxRetries int           `yaml:"max_retries"`
		Enabled    bool          `yaml:"enabled"`
	} `yaml:"webhook"`

	Logging struct {
		Level    string           `yaml:"level"`
		Adapters []LoggingAdapter `yaml:"adapters"`
	} `yaml:"logging"`
}

// expandEnvVars expands environment variables in a string using ${VAR} or $VAR syntax
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	s = re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	re2 := regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
	s = re2.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[1:]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	return s
}

// loadEnvFiles loads the environment file matching APP_ENV, then the plain
// .env as a fallback for values the selected file does not set.
func loadEnvFiles() string {
	env := os.Getenv("APP_ENV")

	var candidate string
	switch env {
	case "production":
		candidate = ".env.production"
	case "staging":
		candidate = ".env.staging"
	default:
		env = "development"
		candidate = ".env.local"
	}

	if _, err := os.Stat(candidate); err == nil {
		_ = godotenv.Load(candidate)
	}
	_ = godotenv.Load()

	return env
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}
	config.Env = loadEnvFiles()

	// Defaults
	config.Server.Enabled = true
	config.Server.Port = 8080
	config.Server.Host = "127.0.0.1"
	config.Server.ReadTimeout = 30 * time.Second
	config.Server.WriteTimeout = 30 * time.Second
	config.Server.IdleTimeout = 60 * time.Second

	config.AI.Provider = "aiml"
	config.AI.BaseURL = "https://api.aimlapi.com/v1"
	config.AI.Model = "mistralai/Mistral-7B-Instruct-v0.2"
	config.AI.Temperature = 0.7
	config.AI.MaxTokens = 500
	config.AI.Timeout = 120 * time.Second
	config.AI.RateLimit = 60

	config.LinkedIn.BaseURL = "https://www.linkedin.com"
	config.LinkedIn.SearchKeywords = "Full Stack"
	config.LinkedIn.SearchLocation = "San Francisco Bay Area"
	config.LinkedIn.MaxJobs = 25
	config.LinkedIn.PageTimeout = 10 * time.Second
	config.LinkedIn.SecurityCheckTimeout = 10 * time.Minute
	config.LinkedIn.AnalyzeFit = true

	config.Browser.Headless = config.Env == "production"
	config.Browser.StealthMode = true
	config.Browser.UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	config.Captcha.Provider = "2captcha"
	config.Captcha.Timeout = 120 * time.Second
	config.Captcha.EnableAutoSolve = true
	config.Captcha.ManualWait = 90 * time.Second

	config.Store.Path = "data/autoapply.db"

	config.Redis.Timeout = 5 * time.Second
	config.Redis.AnswerTTL = 720 * time.Hour

	config.Resume.InfoPath = "data/resume_info.json"

	config.Firecrawl.APIURL = "https://api.firecrawl.dev"
	config.Firecrawl.Version = "v1"
	config.Firecrawl.Timeout = 60 * time.Second

	config.Webhook.Timeout = 15 * time.Second
	config.Webhook.MaxRetries = 3
	config.Webhook.Enabled = true

	config.Logging.Level = "info"
	if config.Env != "production" {
		config.Logging.Level = "debug"
	}

	// Load from YAML file if it exists
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			yamlContent := expandEnvVars(string(data))

			if err := yaml.Unmarshal([]byte(yamlContent), config); err != nil {
				return nil, err
			}
		}
	}

	config.loadFromEnv()

	if config.Store.LockPath == "" {
		config.Store.LockPath = config.Store.Path + ".lock"
	}

	return config, nil
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if host := os.Getenv("HOST"); host != "" {
		c.Server.Host = host
	}

	if enabled := os.Getenv("STATUS_SERVER_ENABLED"); enabled != "" {
		c.Server.Enabled = enabled == "true" || enabled == "1"
	}

	if provider := os.Getenv("AI_PROVIDER"); provider != "" {
		c.AI.Provider = provider
	}

	if apiKey := os.Getenv("AIML_API_KEY"); apiKey != "" {
		c.AI.APIKey = apiKey
	}

	// Also support LLM_API_KEY for compatibility
	if apiKey := os.Getenv("LLM_API_KEY"); apiKey != "" {
		c.AI.APIKey = apiKey
	}

	if baseURL := os.Getenv("AI_BASE_URL"); baseURL != "" {
		c.AI.BaseURL = baseURL
	}

	if model := os.Getenv("AI_MODEL"); model != "" {
		c.AI.Model = model
	}

	if temp := os.Getenv("AI_TEMPERATURE"); temp != "" {
		if t, err := strconv.ParseFloat(temp, 64); err == nil {
			c.AI.Temperature = t
		}
	}

	if maxTokens := os.Getenv("AI_MAX_TOKENS"); maxTokens != "" {
		if n, err := strconv.Atoi(maxTokens); err == nil {
			c.AI.MaxTokens = n
		}
	}

	if email := os.Getenv("LINKEDIN_EMAIL"); email != "" {
		c.LinkedIn.Email = email
	}

	if password := os.Getenv("LINKEDIN_PASSWORD"); password != "" {
		c.LinkedIn.Password = password
	}

	if keywords := os.Getenv("JOB_SEARCH_KEYWORDS"); keywords != "" {
		c.LinkedIn.SearchKeywords = keywords
	}

	if location := os.Getenv("JOB_SEARCH_LOCATION"); location != "" {
		c.LinkedIn.SearchLocation = location
	}

	if maxJobs := os.Getenv("MAX_JOBS"); maxJobs != "" {
		if n, err := strconv.Atoi(maxJobs); err == nil {
			c.LinkedIn.MaxJobs = n
		}
	}

	// BROWSER_TIMEOUT is seconds, matching the historical env file format
	if timeout := os.Getenv("BROWSER_TIMEOUT"); timeout != "" {
		if secs, err := strconv.Atoi(timeout); err == nil {
			c.LinkedIn.PageTimeout = time.Duration(secs) * time.Second
		}
	}

	if headless := os.Getenv("BROWSER_HEADLESS"); headless != "" {
		c.Browser.Headless = headless == "true" || headless == "1"
	}

	if chromePath := os.Getenv("CHROME_PATH"); chromePath != "" {
		c.Browser.ChromePath = chromePath
	}

	if userAgent := os.Getenv("BROWSER_USER_AGENT"); userAgent != "" {
		c.Browser.UserAgent = userAgent
	}

	if captchaAPIKey := os.Getenv("CAPTCHA_API_KEY"); captchaAPIKey != "" {
		c.Captcha.APIKey = captchaAPIKey
	}

	// Also support 2CAPTCHA_API_KEY for compatibility
	if captchaAPIKey := os.Getenv("2CAPTCHA_API_KEY"); captchaAPIKey != "" {
		c.Captcha.APIKey = captchaAPIKey
	}

	if storePath := os.Getenv("STORE_PATH"); storePath != "" {
		c.Store.Path = storePath
	}

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.URL = redisURL
	}

	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		c.Redis.Password = redisPassword
	}

	if redisDB := os.Getenv("REDIS_DB"); redisDB != "" {
		if db, err := strconv.Atoi(redisDB); err == nil {
			c.Redis.DB = db
		}
	}

	if redisTimeout := os.Getenv("REDIS_TIMEOUT"); redisTimeout != "" {
		if timeout, err := time.ParseDuration(redisTimeout); err == nil {
			c.Redis.Timeout = timeout
		}
	}

	if resumePath := os.Getenv("RESUME_INFO_PATH"); resumePath != "" {
		c.Resume.InfoPath = resumePath
	}

	if firecrawlAPIKey := os.Getenv("FIRECRAWL_API_KEY"); firecrawlAPIKey != "" {
		c.Firecrawl.APIKey = firecrawlAPIKey
	}

	if firecrawlAPIURL := os.Getenv("FIRECRAWL_API_URL"); firecrawlAPIURL != "" {
		c.Firecrawl.APIURL = firecrawlAPIURL
	}

	if webhookURL := os.Getenv("WEBHOOK_URL"); webhookURL != "" {
		c.Webhook.URL = webhookURL
	}

	if webhookEnabled := os.Getenv("WEBHOOK_ENABLED"); webhookEnabled != "" {
		c.Webhook.Enabled = webhookEnabled == "true" || webhookEnabled == "1"
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Validate checks the configuration against its struct constraints
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// RequireCredentials verifies the settings the application cannot run without.
// The chat CLI only needs the API key; the bot needs LinkedIn credentials too.
func (c *Config) RequireCredentials(needLinkedIn bool) error {
	if c.AI.APIKey == "" {
		return fmt.Errorf("AIML_API_KEY not found in environment")
	}
	if needLinkedIn {
		if c.LinkedIn.Email == "" || c.LinkedIn.Password == "" {
			return fmt.Errorf("LINKEDIN_EMAIL and LINKEDIN_PASSWORD must be set")
		}
	}
	return nil
}

// IsProduction reports whether the app runs in the production environment
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
