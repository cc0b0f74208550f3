package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"readTimeout"`
		WriteTimeout    time.Duration `yaml:"writeTimeout"`
		ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
		APIKeys         []string      `yaml:"apiKeys"`
		CORSOrigins     []string      `yaml:"corsOrigins"`
		RateLimit       struct {
			Rate  float64 `yaml:"rate"` // tokens per second
			Burst int     `yaml:"burst"`
		} `yaml:"rateLimit"`
	} `yaml:"server"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // console | json
	} `yaml:"logging"`

	Analysis struct {
		Interval    time.Duration `yaml:"interval"`
		Mode        string        `yaml:"mode"`       // batch | per_record
		Extraction  string        `yaml:"extraction"` // balanced | greedy
		Concurrency int           `yaml:"concurrency"`
		CallTimeout time.Duration `yaml:"callTimeout"`
	} `yaml:"analysis"`

	Source struct {
		Type string `yaml:"type"` // file | prometheus | elasticsearch

		File struct {
			Path       string        `yaml:"path"`
			SplitLines bool          `yaml:"splitLines"`
			Watch      bool          `yaml:"watch"`
			Debounce   time.Duration `yaml:"debounce"`
		} `yaml:"file"`

		Prometheus struct {
			Address  string        `yaml:"address"`
			Selector string        `yaml:"selector"`
			Lookback time.Duration `yaml:"lookback"`
			Labels   struct {
				Method   string `yaml:"method"`
				Endpoint string `yaml:"endpoint"`
				Status   string `yaml:"status"`
				Client   string `yaml:"client"`
			} `yaml:"labels"`
		} `yaml:"prometheus"`

		Elasticsearch struct {
			Addresses      []string      `yaml:"addresses"`
			Username       string        `yaml:"username"`
			Password       string        `yaml:"password"`
			APIKey         string        `yaml:"apiKey"`
			Index          string        `yaml:"index"`
			TimestampField string        `yaml:"timestampField"`
			MessageField   string        `yaml:"messageField"`
			Lookback       time.Duration `yaml:"lookback"`
			Size           int           `yaml:"size"`
		} `yaml:"elasticsearch"`
	} `yaml:"source"`

	LLM struct {
		Provider string `yaml:"provider"` // openai | gemini
		OpenAI   struct {
			APIKey  string `yaml:"apiKey"`
			Model   string `yaml:"model"`
			BaseURL string `yaml:"baseURL"`
		} `yaml:"openai"`
		Gemini struct {
			APIKey  string `yaml:"apiKey"`
			Model   string `yaml:"model"`
			BaseURL string `yaml:"baseURL"`
		} `yaml:"gemini"`
	} `yaml:"llm"`

	History struct {
		Driver      string `yaml:"driver"` // none | memory | sqlite | mysql | postgres
		MaxEntries  int    `yaml:"maxEntries"`
		SQLitePath  string `yaml:"sqlitePath"`
		PostgresDSN string `yaml:"postgresDSN"`
	} `yaml:"history"`

	Database struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
	} `yaml:"database"`

	Minio struct {
		Enabled    bool   `yaml:"enabled"`
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`
}

// Load baca file config.yaml. A missing file is fine, defaults and env still apply.
// Callers that start the pipeline must call Validate.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a config holding every default value.
func Default() *Config {
	c := &Config{}
	c.Server.Port = 3000
	c.Server.ReadTimeout = 15 * time.Second
	c.Server.WriteTimeout = 2 * time.Minute // trigger waits for the LLM
	c.Server.ShutdownTimeout = 5 * time.Second
	c.Server.CORSOrigins = []string{"*"}
	c.Server.RateLimit.Rate = 1
	c.Server.RateLimit.Burst = 5

	c.Logging.Level = "info"
	c.Logging.Format = "console"

	c.Analysis.Interval = 5 * time.Minute
	c.Analysis.Mode = "batch"
	c.Analysis.Extraction = "balanced"
	c.Analysis.Concurrency = 4
	c.Analysis.CallTimeout = 60 * time.Second

	c.Source.Type = "file"
	c.Source.File.Path = "access.log"
	c.Source.File.Debounce = 2 * time.Second
	c.Source.Prometheus.Selector = "http_requests_total"
	c.Source.Prometheus.Lookback = 20 * time.Second
	c.Source.Prometheus.Labels.Method = "method"
	c.Source.Prometheus.Labels.Endpoint = "endpoint"
	c.Source.Prometheus.Labels.Status = "status"
	c.Source.Prometheus.Labels.Client = "client"
	c.Source.Elasticsearch.Addresses = []string{"http://localhost:9200"}
	c.Source.Elasticsearch.Index = "access-logs"
	c.Source.Elasticsearch.TimestampField = "@timestamp"
	c.Source.Elasticsearch.MessageField = "message"
	c.Source.Elasticsearch.Lookback = 5 * time.Minute
	c.Source.Elasticsearch.Size = 500

	c.LLM.Provider = "openai"
	c.LLM.OpenAI.Model = "gpt-3.5-turbo"
	c.LLM.Gemini.Model = "gemini-2.0-flash"

	c.History.Driver = "memory"
	c.History.MaxEntries = 1000
	c.History.SQLitePath = "history.db"

	c.Database.Port = 3306
	c.Minio.BucketName = "logwatch-runs"
	return c
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.LLM.OpenAI.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.LLM.Gemini.APIKey = v
	}
	if v := os.Getenv("LOG_FILE_PATH"); v != "" {
		c.Source.File.Path = v
	}
	if v := os.Getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = p
	}
	return nil
}

// Validate checks the settings the process cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q must be console or json", c.Logging.Format))
	}
	switch c.Analysis.Mode {
	case "batch", "per_record":
	default:
		errs = append(errs, fmt.Errorf("analysis.mode %q must be batch or per_record", c.Analysis.Mode))
	}
	switch c.Analysis.Extraction {
	case "balanced", "greedy":
	default:
		errs = append(errs, fmt.Errorf("analysis.extraction %q must be balanced or greedy", c.Analysis.Extraction))
	}

	switch c.Source.Type {
	case "file":
		if strings.TrimSpace(c.Source.File.Path) == "" {
			errs = append(errs, errors.New("source.file.path is required"))
		}
	case "prometheus":
		if c.Source.Prometheus.Address == "" {
			errs = append(errs, errors.New("source.prometheus.address is required"))
		}
	case "elasticsearch":
		if len(c.Source.Elasticsearch.Addresses) == 0 || c.Source.Elasticsearch.Index == "" {
			errs = append(errs, errors.New("source.elasticsearch addresses and index are required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown source.type %q", c.Source.Type))
	}

	switch c.LLM.Provider {
	case "openai":
		if c.LLM.OpenAI.APIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is not set"))
		}
	case "gemini":
		if c.LLM.Gemini.APIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is not set"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown llm.provider %q", c.LLM.Provider))
	}

	switch c.History.Driver {
	case "none", "memory", "sqlite", "mysql":
	case "postgres":
		if c.History.PostgresDSN == "" {
			errs = append(errs, errors.New("history.postgresDSN is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown history.driver %q", c.History.Driver))
	}

	if c.Minio.Enabled && (c.Minio.Endpoint == "" || c.Minio.BucketName == "") {
		errs = append(errs, errors.New("minio endpoint and bucketName are required when enabled"))
	}
	return errors.Join(errs...)
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}
