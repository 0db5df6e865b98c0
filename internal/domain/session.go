package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Role is the kind of account behind a session.
type Role string

const (
	RoleUnset  Role = ""
	RoleUser   Role = "user"
	RoleArtist Role = "artist"
)

// ParseRole maps the account service's spellings onto Role.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user", "usuario", "standard", "standard-user":
		return RoleUser
	case "artist", "artista":
		return RoleArtist
	default:
		return RoleUnset
	}
}

// Identity is the result of a successful authentication exchange.
type Identity struct {
	UserID ID   `json:"userId"`
	Role   Role `json:"role,omitempty"`
}

// UnmarshalJSON accepts userId or id, and role or rol.
func (i *Identity) UnmarshalJSON(data []byte) error {
	var raw struct {
		UserID ID     `json:"userId"`
		ID     ID     `json:"id"`
		Role   string `json:"role"`
		Rol    string `json:"rol"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	i.UserID = raw.UserID
	if i.UserID.IsZero() {
		i.UserID = raw.ID
	}
	role := raw.Role
	if role == "" {
		role = raw.Rol
	}
	i.Role = ParseRole(role)
	return nil
}

// Session is the client-side record of who is logged in. A zero UserID means
// unauthenticated, and Role is meaningless then.
type Session struct {
	UserID ID   `json:"userId,omitempty"`
	Role   Role `json:"role,omitempty"`
}

// Authenticated reports whether a user is logged in.
func (s Session) Authenticated() bool {
	return !s.UserID.IsZero()
}

// EffectiveRole returns RoleUnset for anonymous sessions.
func (s Session) EffectiveRole() Role {
	if !s.Authenticated() {
		return RoleUnset
	}
	return s.Role
}
