package bench

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Kind selects the sampler a group is measured with.
type Kind string

const (
	KindLatency    Kind = "latency"
	KindThroughput Kind = "throughput"
)

const (
	GroupAPILatency    = "Hello World API Latency(Less is better)"
	GroupAPIThroughput = "API Throughput(More is better)"
	GroupDBReadLatency = "Database Read Latency(Less is better)"

	GroupsConfigKey = "groups"
)

var (
	ErrUnknownKind      = errors.New("unknown benchmark kind")
	ErrRelativeEndpoint = errors.New("relative endpoint without a base url")
)

type Endpoint struct {
	Name string `json:"name" mapstructure:"name"`
	URL  string `json:"url" mapstructure:"url"`
}

// Local reports whether the endpoint points at a route served by this process.
func (e Endpoint) Local() bool {
	return strings.HasPrefix(e.URL, "/")
}

// Resolve returns the absolute target for the endpoint. Local endpoints are
// joined to base; every other endpoint must already be absolute.
func (e Endpoint) Resolve(base *url.URL) (string, error) {
	u, err := url.Parse(e.URL)
	if err != nil {
		return "", fmt.Errorf("endpoint %s: %w", e.Name, err)
	}
	if e.Local() {
		if base == nil {
			return "", fmt.Errorf("endpoint %s: %w", e.Name, ErrRelativeEndpoint)
		}
		return base.ResolveReference(u).String(), nil
	}
	if !u.IsAbs() {
		return "", fmt.Errorf("endpoint %s: %w", e.Name, ErrRelativeEndpoint)
	}
	return u.String(), nil
}

type Group struct {
	Name      string        `json:"name" mapstructure:"name"`
	Unit      string        `json:"unit" mapstructure:"unit"`
	Kind      Kind          `json:"kind" mapstructure:"kind"`
	Samples   int           `json:"samples,omitempty" mapstructure:"samples"`
	Window    time.Duration `json:"window,omitempty" mapstructure:"window"`
	Endpoints []Endpoint    `json:"endpoints" mapstructure:"endpoints"`
}

// Override adjusts the sample count or window of a single run.
type Override struct {
	Samples int
	Window  time.Duration
}

func (g Group) WithOverride(o *Override) Group {
	if o == nil {
		return g
	}
	if o.Samples > 0 {
		g.Samples = o.Samples
	}
	if o.Window > 0 {
		g.Window = o.Window
	}
	return g
}

func (g Group) Validate() error {
	if g.Name == "" {
		return errors.New("group name is required")
	}
	switch g.Kind {
	case KindLatency, KindThroughput:
	default:
		return fmt.Errorf("group %s: %w: %q", g.Name, ErrUnknownKind, g.Kind)
	}
	if len(g.Endpoints) == 0 {
		return fmt.Errorf("group %s has no endpoints", g.Name)
	}
	seen := map[string]bool{}
	for _, e := range g.Endpoints {
		if e.Name == "" || e.URL == "" {
			return fmt.Errorf("group %s: endpoint name and url are required", g.Name)
		}
		if seen[e.Name] {
			return fmt.Errorf("group %s: duplicate endpoint %s", g.Name, e.Name)
		}
		seen[e.Name] = true
	}
	return nil
}

var APIEndpoints = []Endpoint{
	{Name: "Albato", URL: "https://h.albato.com/wh/38/1lft158/FoO24OVMUQY5YcCtZerwmfCvguwS1jzQwMdCC3dUFnE"},
	{Name: "ActivePieces", URL: "https://cloud.activepieces.com/api/v1/webhooks/LAOgyh0liWzE3WkyhiVw6/sync"},
	{Name: "LateNode", URL: "https://webhook.latenode.com/1150/dev/hello"},
	{Name: "Yup Code", URL: "https://cloud.yepcode.io/api/rutics/webhooks/test"},
	{Name: "Go", URL: "/api/test"},
}

var DBReadEndpoints = []Endpoint{
	{Name: "ActivePieces", URL: "https://cloud.activepieces.com/api/v1/webhooks/QmeoqZXcxmwR6MTS6Orv7/sync"},
	{Name: "LateNode", URL: "https://webhook.latenode.com/1150/dev/hello"},
	{Name: "Yup Code", URL: "https://cloud.yepcode.io/api/rutics/webhooks/db-read"},
	{Name: "Go", URL: "/api/readDB"},
}

func DefaultGroups() []Group {
	return []Group{
		{
			Name:      GroupAPILatency,
			Unit:      "ms",
			Kind:      KindLatency,
			Samples:   DefaultSamples,
			Endpoints: append([]Endpoint(nil), APIEndpoints...),
		},
		{
			Name:      GroupAPIThroughput,
			Unit:      "req/s",
			Kind:      KindThroughput,
			Window:    15 * time.Second,
			Endpoints: append([]Endpoint(nil), APIEndpoints...),
		},
		{
			Name:      GroupDBReadLatency,
			Unit:      "ms",
			Kind:      KindLatency,
			Samples:   DefaultSamples,
			Endpoints: append([]Endpoint(nil), DBReadEndpoints...),
		},
	}
}

// LoadGroups reads the "groups" key of the loaded configuration, falling back to DefaultGroups.
func LoadGroups() ([]Group, error) {
	if !viper.IsSet(GroupsConfigKey) {
		return DefaultGroups(), nil
	}
	var groups []Group
	if err := viper.UnmarshalKey(GroupsConfigKey, &groups); err != nil {
		return nil, fmt.Errorf("failed decoding %s: %w", GroupsConfigKey, err)
	}
	seen := map[string]bool{}
	for _, g := range groups {
		if err := g.Validate(); err != nil {
			return nil, err
		}
		if seen[g.Name] {
			return nil, fmt.Errorf("duplicate group %s", g.Name)
		}
		seen[g.Name] = true
	}
	return groups, nil
}
