package scrape

import (
	"encoding/json"
	"time"
)

type Config struct {
	Targets              Targets       `envconfig:"VW_SCRAPE_TARGET_URLS"`
	MaxConcurrentRequest int           `envconfig:"VW_SCRAPE_MAX_CONCURRENT_REQUEST" default:"64"`
	Interval             time.Duration `envconfig:"VW_SCRAPE_INTERVAL" default:"15s"`
	RequestTimeout       time.Duration `envconfig:"VW_SCRAPE_REQUEST_TIMEOUT" default:"10s"`
}

type Targets []Target

func (ts *Targets) Decode(value string) error {
	targets := []Target{}
	if err := json.Unmarshal([]byte(value), &targets); err != nil {
		return err
	}
	*ts = targets
	return nil
}

type Target struct {
	URL       string `json:"url"`
	NetworkID string `json:"networkId"`
}
