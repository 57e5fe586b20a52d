package genregenius

import "net/http"

// DefaultEndpoint is the prediction endpoint of a locally running service.
const DefaultEndpoint = "http://localhost:5000/predict"

type Config struct {
	Endpoint   string
	HTTPClient *http.Client
	Opener     Opener
	Logger     Logger
	Journal    Journal
	SessionID  string
}

type Option func(*Config)

// WithEndpoint sets the prediction endpoint address. Ignored when an Opener
// is supplied.
func WithEndpoint(endpoint string) Option {
	return func(c *Config) {
		c.Endpoint = endpoint
	}
}

// WithHTTPClient sets the client used for streaming requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) {
		c.HTTPClient = client
	}
}

// WithOpener replaces the HTTP event-stream transport.
func WithOpener(opener Opener) Option {
	return func(c *Config) {
		c.Opener = opener
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithJournal(j Journal) Option {
	return func(c *Config) {
		c.Journal = j
	}
}

func WithSessionID(id string) Option {
	return func(c *Config) {
		c.SessionID = id
	}
}

func defaultConfig() *Config {
	return &Config{
		Endpoint: DefaultEndpoint,
	}
}
