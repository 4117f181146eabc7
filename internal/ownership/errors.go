package ownership

import (
	"errors"
	"fmt"
	"strings"

	"github.com/emperorhan/ownership-indexer/internal/domain/model"
)

// ErrVerificationUnavailable signals that ownership could not be decided,
// which is distinct from "not owned".
var ErrVerificationUnavailable = errors.New("ownership verification unavailable")

// UnavailableError lists the addresses whose claims could not be verified.
// It matches ErrVerificationUnavailable with errors.Is.
type UnavailableError struct {
	Category  model.Category
	Addresses []model.Address
	Err       error
}

func (e *UnavailableError) Error() string {
	msg := fmt.Sprintf("%s: %s for %d address(es) [%s]",
		ErrVerificationUnavailable, e.Category, len(e.Addresses), strings.Join(e.Addresses, ","))
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UnavailableError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrVerificationUnavailable}
	}
	return []error{ErrVerificationUnavailable, e.Err}
}
