// Package models holds the domain types shared by the auth, storage,
// service and transport layers.
package models

// Claims is the identity snapshot carried by a token. It is taken at
// issuance and only refreshed by an explicit token refresh.
type Claims struct {
	UserID string
	Name   string
	Email  string
	Roles  []Role
}
