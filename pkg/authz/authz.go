package authz

import (
	"donationhub/pkg/errutil"
)

// Owned is implemented by any resource that belongs to a single principal.
type Owned interface {
	OwnerID() string
}

// Require confirms the principal owns the resource. Existence of the resource
// is not revealed beyond the ownership failure itself.
func Require(principalID string, resource Owned) error {
	if resource.OwnerID() != principalID {
		return errutil.Forbidden("you are not authorized to access this resource", nil)
	}
	return nil
}

// ValidateID fast-fails a malformed resource identifier before any store
// lookup. Identifiers are snowflake values rendered as decimal strings.
func ValidateID(field, id string) error {
	if id == "" || len(id) > 20 {
		return errutil.ValidationFailed("invalid identifier", nil,
			errutil.WithDetails(errutil.Detail{Field: field, Message: "must be a well-formed identifier"}))
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return errutil.ValidationFailed("invalid identifier", nil,
				errutil.WithDetails(errutil.Detail{Field: field, Message: "must be a well-formed identifier"}))
		}
	}
	return nil
}
