package domain

// ID is used across domain entities.
type ID int64

// Status represents a lightweight state value.
type Status string

// Caller is the authenticated identity, resolved once at the HTTP boundary
// and passed explicitly into every service operation.
type Caller struct {
	UserID ID     `json:"userId"`
	Role   string `json:"role"`
	Email  string `json:"email,omitempty"`
}

func (c Caller) Authenticated() bool {
	return c.UserID > 0
}

// RequireCaller fails with UnauthenticatedError when no identity was resolved.
func RequireCaller(c Caller) error {
	if !c.Authenticated() {
		return UnauthenticatedError{}
	}
	return nil
}
