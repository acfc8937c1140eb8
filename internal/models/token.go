package models

import (
	"time"
)

// TokenInfo describes an instructor API token kept in redis.
type TokenInfo struct {
	Instructor      string    `json:"instructor"`
	Token           string    `json:"token"`
	RequestCount    int       `json:"request_count"`
	LastRequestTime time.Time `json:"last_request_dttm_utc"`
	CreatedTime     time.Time `json:"created_dttm_utc"`
}
