package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/immxrtalbeast/burnchat/internal/repository"
)

var (
	ErrRoomNotFound     = repository.ErrRoomNotFound
	ErrMessageNotFound  = repository.ErrMessageNotFound
	ErrRoomFull         = errors.New("room is full")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrValidation       = errors.New("validation failed")
	ErrStoreUnavailable = errors.New("store unavailable")
)

func validationErr(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// wrapErr tags failures that are not part of the domain vocabulary as
// transient so the transport can tell "retry later" apart from "gone".
func wrapErr(op string, err error) error {
	switch {
	case errors.Is(err, ErrRoomNotFound),
		errors.Is(err, ErrMessageNotFound),
		errors.Is(err, ErrRoomFull),
		errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrValidation),
		errors.Is(err, context.Canceled):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
	}
}
