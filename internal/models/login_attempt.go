package models

import "time"

// LoginAttemptRetention is how long audit records are kept before eviction.
const LoginAttemptRetention = 30 * 24 * time.Hour

// LoginAttempt is an append-only authentication audit record.
type LoginAttempt struct {
	ID        string    `json:"id"               bson:"_id"`
	Username  string    `json:"username"         bson:"username"`
	IP        string    `json:"ip"               bson:"ip"`
	UserAgent string    `json:"userAgent"        bson:"userAgent"`
	Browser   string    `json:"browser"          bson:"browser"`
	OS        string    `json:"os"               bson:"os"`
	Device    string    `json:"device"           bson:"device"`
	Success   bool      `json:"success"          bson:"success"`
	Reason    string    `json:"reason,omitempty" bson:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"        bson:"timestamp"`
}
