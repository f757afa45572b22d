package exposure

import "errors"

var (
	// ErrInvalidImage is returned for frames with zero area, an unsupported
	// channel count, or a pixel buffer that does not match the dimensions.
	ErrInvalidImage = errors.New("invalid image")

	// ErrInvalidInput is returned by Step for a non-finite MSV.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidParams is returned for controller parameters that are not
	// finite or are negative where a magnitude is expected.
	ErrInvalidParams = errors.New("invalid controller parameters")
)
