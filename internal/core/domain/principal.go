package domain

import (
	"strings"
	"time"
)

type Role string

const (
	RoleManager    Role = "manager"
	RoleBabysitter Role = "babysitter"
)

func (r Role) Valid() bool {
	return r == RoleManager || r == RoleBabysitter
}

// Claim is the identity asserted by a verified bearer credential.
type Claim struct {
	SubjectID int64
	Role      Role
	ExpiresAt time.Time
}

// Principal is a resolved, active actor attached to a request.
// The role comes from the variant, which the claim's role selected; it is never stored.
type Principal interface {
	ID() int64
	Role() Role
	DisplayName() string
}

type Manager struct {
	UserID    int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

func (m Manager) ID() int64           { return m.UserID }
func (m Manager) Role() Role          { return RoleManager }
func (m Manager) DisplayName() string { return fullName(m.FirstName, m.LastName) }

type Babysitter struct {
	UserID    int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

func (b Babysitter) ID() int64           { return b.UserID }
func (b Babysitter) Role() Role          { return RoleBabysitter }
func (b Babysitter) DisplayName() string { return fullName(b.FirstName, b.LastName) }

func fullName(first, last string) string {
	return strings.TrimSpace(first + " " + last)
}

type Child struct {
	ID          int64  `json:"id"`
	FullName    string `json:"full_name"`
	ParentName  string `json:"parent_name"`
	ParentEmail string `json:"parent_email"`
}
