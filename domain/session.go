package domain

import "time"

// Session is the signed-in owner that remote mirror writes are made for.
type Session struct {
	OwnerID   string    `json:"ownerId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}
