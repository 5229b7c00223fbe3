package contract

import "errors"

var (
	ErrDialogueInvoke         = errors.New("dialogue service invoke failed")
	ErrValidation             = errors.New("validation failed")
	ErrItemUnavailable        = errors.New("menu item unavailable")
	ErrInvalidReservationTime = errors.New("invalid reservation time")
	ErrAlreadyFinalized       = errors.New("record already finalized")
	ErrUnknownPersona         = errors.New("unknown persona")
	ErrCallClosed             = errors.New("call closed by transport")
)
