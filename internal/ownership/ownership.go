// Package ownership decides whether a caller may act on a single-owner
// resource. It knows nothing about storage or HTTP.
package ownership

import "errors"

type Decision int

const (
	Allow Decision = iota
	NotFound
	Forbidden
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case NotFound:
		return "not_found"
	case Forbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

var (
	ErrNotFound  = errors.New("ownership: resource not found")
	ErrForbidden = errors.New("ownership: caller does not own resource")
)

// Resource is anything with a single owning identity.
type Resource interface {
	OwnerID() string
}

// Decide is the ownership rule: a missing resource is NotFound, a resource
// owned by someone else is Forbidden, otherwise Allow. An empty caller id
// never owns anything.
func Decide(exists bool, ownerID, callerID string) Decision {
	if !exists {
		return NotFound
	}
	if callerID == "" || ownerID != callerID {
		return Forbidden
	}
	return Allow
}

// Policy controls how much a denial reveals.
type Policy int

const (
	// RevealExistence answers Forbidden to non-owners, so they learn the
	// resource exists.
	RevealExistence Policy = iota
	// HideForeign answers NotFound to non-owners.
	HideForeign
)

// Authorizer applies Decide under a Policy.
type Authorizer struct {
	Policy Policy
}

// Decide applies the policy to the raw decision.
func (a Authorizer) Decide(exists bool, ownerID, callerID string) Decision {
	d := Decide(exists, ownerID, callerID)
	if d == Forbidden && a.Policy == HideForeign {
		return NotFound
	}
	return d
}

// Authorize returns nil, ErrNotFound or ErrForbidden. A nil resource means
// it does not exist.
func (a Authorizer) Authorize(r Resource, callerID string) error {
	exists := r != nil
	owner := ""
	if exists {
		owner = r.OwnerID()
	}
	switch a.Decide(exists, owner, callerID) {
	case Allow:
		return nil
	case NotFound:
		return ErrNotFound
	default:
		return ErrForbidden
	}
}
