package alert

import (
	"encoding/json"
	"time"

	"github.com/fatelord/visionworkbench/internal/httputil"
)

type Config struct {
	AllowAlerts          bool          `envconfig:"VW_ALLOW_ALERTS" default:"true"`
	Targets              Targets       `envconfig:"VW_ALERT_TARGETS"`
	Interval             time.Duration `envconfig:"VW_ALERT_INTERVAL" default:"5s"`
	RequestTimeout       time.Duration `envconfig:"VW_ALERT_REQUEST_TIMEOUT" default:"10s"`
	MaxConcurrentRequest int           `envconfig:"VW_ALERT_MAX_CONCURRENT_REQUEST" default:"64"`
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
	URL        string                    `json:"url"`
	NetworkID  string                    `json:"networkId"`
	HTTPConfig httputil.HTTPClientConfig `json:"httpConfig"`
}
