package domain

import "time"

// SubjectType tells end-users and staff apart in tokens.
type SubjectType string

const (
	SubjectTypeUser  SubjectType = "USER"
	SubjectTypeStaff SubjectType = "STAFF"
)

// AccessToken is a signed bearer token handed back on login.
type AccessToken struct {
	Value     string
	Subject   SubjectType
	SubjectID string
	ExpiresAt time.Time
}
