package httputil

import (
	"fmt"

	"github.com/prometheus/common/config"
)

type HTTPClientConfig struct {
	BasicAuth   *BasicAuth    `json:"basicAuth,omitempty"`
	BearerToken config.Secret `json:"bearerToken,omitempty"`
}

func (c *HTTPClientConfig) Validate() error {
	if c.BasicAuth != nil && len(c.BearerToken) > 0 {
		return fmt.Errorf("at most one of basic_auth & bearer_token must be configured")
	}
	return nil
}

type BasicAuth struct {
	Username string        `json:"username"`
	Password config.Secret `json:"password,omitempty"`
}
