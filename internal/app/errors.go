package service

import (
	"errors"

	"github.com/okian/streamscout/internal/domain/types"
)

// Sentinel kinds for service errors.
var (
	ErrAlreadyRefreshing = errors.New("a refresh is already in progress")
	ErrNotStarted        = errors.New("service not started")
	ErrWarmingUp         = errors.New("no snapshot published yet")
	ErrNoConnector       = errors.New("no upstream connector configured")
)

// WarmingUpError carries the document served while no snapshot exists.
type WarmingUpError struct {
	Status types.WarmingUp
}

func (e *WarmingUpError) Error() string { return ErrWarmingUp.Error() }

func (e *WarmingUpError) Unwrap() error { return ErrWarmingUp }
