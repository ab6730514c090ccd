package bench

import (
	"encoding/json"
	"math"
)

// Sample is the outcome of one timed request. LatencyMs is NaN when the request failed.
type Sample struct {
	LatencyMs float64
	Success   bool
}

// Measurement is what a sampler reports for one endpoint.
type Measurement struct {
	Value               float64
	TotalRequests       int
	SuccessfulResponses int
}

// Metric is an aggregated value. NaN and Inf encode as JSON null.
type Metric float64

func (m Metric) Valid() bool {
	f := float64(m)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.Valid() {
		return []byte("null"), nil
	}
	return json.Marshal(float64(m))
}

func (m *Metric) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*m = Metric(math.NaN())
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*m = Metric(f)
	return nil
}

type BenchmarkData struct {
	Name                string `json:"name"`
	Value               Metric `json:"value"`
	TotalRequests       int    `json:"totalRequests"`
	SuccessfulResponses int    `json:"successfulResponses"`
}
