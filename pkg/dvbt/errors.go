package dvbt

import "errors"

var (
	ErrInvalidMode          = errors.New("invalid mode: possible modes are 2 (2k) or 8 (8k)")
	ErrInvalidCyclicPrefix  = errors.New("invalid cyclic prefix: possible values are 4 (1/4), 8 (1/8), 16 (1/16) or 32 (1/32)")
	ErrInvalidDirection     = errors.New("invalid direction: possible values are 'add' or 'remove'")
	ErrInvalidSelector      = errors.New("invalid pilot selector: possible values are 'continuous', 'scattered' or 'both'")
	ErrAcquisitionTooShort  = errors.New("acquisition too short: at least 3.36 msec needed")
	ErrInvalidLength        = errors.New("invalid input length")
	ErrInvalidCarrierCount  = errors.New("invalid active carrier count: possible values are 1705 or 6817")
	ErrInvalidInterpolation = errors.New("invalid interpolation kind")
)
