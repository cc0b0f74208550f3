package logsource

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/api"
	promv1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
	"github.com/rs/zerolog/log"

	"github.com/bryanwahyu/automaton-logwatch/internal/domain/analysis"
)

// LabelNames maps record metadata onto series label names.
type LabelNames struct {
	Method   string
	Endpoint string
	Status   string
	Client   string
}

// DefaultLabelNames are used for any empty field.
var DefaultLabelNames = LabelNames{Method: "method", Endpoint: "endpoint", Status: "status", Client: "client"}

// Prometheus queries a request-counter metric over a short lookback window.
type Prometheus struct {
	api      promv1.API
	selector string
	lookback time.Duration
	labels   LabelNames
	now      func() time.Time
}

// NewPrometheus builds a source against the HTTP API at address.
func NewPrometheus(address, selector string, lookback time.Duration, labels LabelNames) (*Prometheus, error) {
	client, err := api.NewClient(api.Config{Address: address})
	if err != nil {
		return nil, fmt.Errorf("prometheus client: %w", err)
	}
	if lookback <= 0 {
		lookback = 20 * time.Second
	}
	return &Prometheus{
		api:      promv1.NewAPI(client),
		selector: selector,
		lookback: lookback,
		labels:   labels.withDefaults(),
		now:      time.Now,
	}, nil
}

func (l LabelNames) withDefaults() LabelNames {
	if l.Method == "" {
		l.Method = DefaultLabelNames.Method
	}
	if l.Endpoint == "" {
		l.Endpoint = DefaultLabelNames.Endpoint
	}
	if l.Status == "" {
		l.Status = DefaultLabelNames.Status
	}
	if l.Client == "" {
		l.Client = DefaultLabelNames.Client
	}
	return l
}

// Query returns the PromQL expression sent on every fetch.
func (p *Prometheus) Query() string {
	return fmt.Sprintf("%s[%s]", p.selector, model.Duration(p.lookback))
}

func (p *Prometheus) Fetch(ctx context.Context) ([]analysis.RequestRecord, error) {
	val, warnings, err := p.api.Query(ctx, p.Query(), p.now())
	if err != nil {
		return nil, fmt.Errorf("%w: prometheus query: %w", analysis.ErrSourceUnavailable, err)
	}
	for _, w := range warnings {
		log.Warn().Str("warning", w).Msg("prometheus query warning")
	}

	var out []analysis.RequestRecord
	switch v := val.(type) {
	case model.Matrix:
		for _, stream := range v {
			for _, s := range stream.Values {
				out = append(out, p.record(stream.Metric, s.Timestamp.Time(), float64(s.Value)))
			}
		}
	case model.Vector:
		for _, s := range v {
			out = append(out, p.record(s.Metric, s.Timestamp.Time(), float64(s.Value)))
		}
	case nil:
		return nil, fmt.Errorf("%w: prometheus returned no result", analysis.ErrSourceUnavailable)
	default:
		return nil, fmt.Errorf("%w: unexpected prometheus result type %s", analysis.ErrSourceUnavailable, val.Type())
	}
	return out, nil
}

func (p *Prometheus) record(m model.Metric, ts time.Time, value float64) analysis.RequestRecord {
	rec := analysis.RequestRecord{
		Timestamp:      ts.UTC(),
		Method:         string(m[model.LabelName(p.labels.Method)]),
		Endpoint:       string(m[model.LabelName(p.labels.Endpoint)]),
		ClientIdentity: string(m[model.LabelName(p.labels.Client)]),
	}
	status := string(m[model.LabelName(p.labels.Status)])
	rec.StatusCode, _ = strconv.Atoi(status)
	rec.SourceLine = fmt.Sprintf("%s %s \"%s %s\" %s value=%s",
		rec.Timestamp.Format(time.RFC3339),
		orDash(rec.ClientIdentity),
		orDash(rec.Method),
		orDash(rec.Endpoint),
		orDash(status),
		strconv.FormatFloat(value, 'f', -1, 64),
	)
	return rec
}

func (p *Prometheus) String() string {
	return "prometheus:" + p.selector
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
