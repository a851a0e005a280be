package pricing

import "errors"

// NotFoundError marks the non-retryable "not found" error class: missing
// catalog data for the given input, where retrying the same request cannot
// succeed. The transport layer maps these to a client-visible not-found
// response; anything else stays an opaque internal error.
type NotFoundError struct {
    msg string
}

func (e *NotFoundError) Error() string { return e.msg }

var (
    ErrVehicleTypeNotFound   = &NotFoundError{msg: "vehicle type not found"}
    ErrDestinationNotFound   = &NotFoundError{msg: "destination not found"}
    ErrLocationNotFound      = &NotFoundError{msg: "location not found"}
    ErrDeliveryPriceNotFound = &NotFoundError{msg: "delivery price not found"}
    ErrShippingPriceNotFound = &NotFoundError{msg: "shipping price not found"}
    ErrFeeNotFound           = &NotFoundError{msg: "fee not found"}
)

// IsNotFound reports whether err belongs to the not-found error class.
func IsNotFound(err error) bool {
    var nf *NotFoundError
    return errors.As(err, &nf)
}
