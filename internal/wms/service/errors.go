package service

import (
	"errors"
	"fmt"

	"github.com/bitfantasy/nimo-wms/internal/wms/repository"
)

// 错误定义
var (
	ErrNoActiveConfig    = fmt.Errorf("no active slotting config: %w", repository.ErrNotFound)
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidArgument   = errors.New("invalid argument")
)

func invalidArgument(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
