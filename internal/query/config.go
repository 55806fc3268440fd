package query

import "time"

type Config struct {
	RequestTimeout  time.Duration `envconfig:"VW_QUERY_REQUEST_TIMEOUT" default:"30s"`
	MaxDataItemsLen int           `envconfig:"VW_QUERY_MAX_DATA_ITEMS_LEN" default:"64"`
}
