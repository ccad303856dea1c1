package shade

import "errors"

var (
	ErrInvalidMode = errors.New("shade: invalid mode")
	ErrUndefined   = errors.New("shade: undefined name")
	ErrRedefined   = errors.New("shade: name defined twice")
	ErrInputScope  = errors.New("shade: input not available here")
	ErrMissing     = errors.New("shade: required name missing")
)
