package cfg

type Cfg struct {
	// Database configuration
	DBPath string

	// Scraper configuration
	ScraperAPIKey  string
	ScraperBaseURL string
	PageSize       int

	// Extraction configuration
	CohereAPIKey string
	OpenAIAPIKey string

	// Application configuration
	AccountsDir      string
	MailDropDir      string
	Port             string
	WorkerCount      int
	PollInterval     int
	StartFrom        string
	OnTimeParseError string
	APIAccessKey     string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
