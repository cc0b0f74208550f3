package logsource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/bryanwahyu/automaton-logwatch/internal/domain/analysis"
)

// ElasticsearchConfig describes where access-log documents live.
type ElasticsearchConfig struct {
	Addresses      []string
	Username       string
	Password       string
	APIKey         string
	Index          string
	TimestampField string
	MessageField   string
	Lookback       time.Duration
	Size           int
}

// Elasticsearch pulls recent access-log documents from one index.
type Elasticsearch struct {
	client *elasticsearch.Client
	cfg    ElasticsearchConfig
	now    func() time.Time
}

// NewElasticsearch buat client ES; credentials are optional.
func NewElasticsearch(cfg ElasticsearchConfig) (*Elasticsearch, error) {
	esCfg := elasticsearch.Config{
		Addresses: cfg.Addresses,
		Transport: &http.Transport{
			ResponseHeaderTimeout: 10 * time.Second,
		},
	}
	if cfg.Username != "" && cfg.Password != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}
	if cfg.APIKey != "" {
		esCfg.APIKey = cfg.APIKey
	}
	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}

	if cfg.TimestampField == "" {
		cfg.TimestampField = "@timestamp"
	}
	if cfg.MessageField == "" {
		cfg.MessageField = "message"
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = 5 * time.Minute
	}
	if cfg.Size <= 0 {
		cfg.Size = 500
	}
	return &Elasticsearch{client: client, cfg: cfg, now: time.Now}, nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source map[string]any `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (e *Elasticsearch) query() map[string]any {
	since := e.now().Add(-e.cfg.Lookback).UTC().Format(time.RFC3339Nano)
	return map[string]any{
		"query": map[string]any{
			"range": map[string]any{
				e.cfg.TimestampField: map[string]any{"gte": since},
			},
		},
		"sort": []any{
			map[string]any{e.cfg.TimestampField: map[string]any{"order": "asc"}},
		},
	}
}

func (e *Elasticsearch) Fetch(ctx context.Context) ([]analysis.RequestRecord, error) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(e.query()); err != nil {
		return nil, err
	}

	resp, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(e.cfg.Index),
		e.client.Search.WithBody(buf),
		e.client.Search.WithSize(e.cfg.Size),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: elasticsearch search: %w", analysis.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.IsError() {
		return nil, fmt.Errorf("%w: elasticsearch search: %s", analysis.ErrSourceUnavailable, resp.Status())
	}

	var r searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("%w: decode search response: %w", analysis.ErrSourceUnavailable, err)
	}

	out := make([]analysis.RequestRecord, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		msg, _ := hit.Source[e.cfg.MessageField].(string)
		if msg == "" {
			continue
		}
		rec := ParseCombined(msg)
		if rec.Timestamp.IsZero() {
			if ts, ok := hit.Source[e.cfg.TimestampField].(string); ok {
				if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
					rec.Timestamp = t
				}
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func (e *Elasticsearch) String() string {
	return "elasticsearch:" + e.cfg.Index
}
