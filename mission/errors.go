package mission

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/task-economy/generic"
)

var (
	ErrTaskNotFound       = errors.New("task not found")
	ErrTemplateNotFound   = errors.New("recurring task not found")
	ErrSideQuestNotFound  = errors.New("side quest not found")
	ErrObjectiveNotFound  = errors.New("objective not found")
	ErrRewardNotFound     = errors.New("reward not found")
	ErrInvalidTask        = errors.New("invalid task")
	ErrBeforeStartDate    = errors.New("date is before the recurring task's start date")
	ErrNotActiveOnDate    = errors.New("recurring task is not scheduled on that date")
	ErrQuotaReached       = errors.New("side quest quota reached for today")
	ErrObjectiveCompleted = errors.New("objective already completed")
)

// InvalidStakeError is a rejected wager. It unwraps to ErrInvalidAmount,
// or to ErrInsufficientBalance when the stake exceeds the balance.
type InvalidStakeError struct {
	Stake  decimal.Decimal
	Reason string
	Err    error
}

func (e *InvalidStakeError) Error() string {
	return fmt.Sprintf("invalid stake %s: %s", e.Stake.StringFixed(2), e.Reason)
}

func (e *InvalidStakeError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return generic.ErrInvalidAmount
}

// IsClientError extends generic.IsClientError with mission validation errors.
func IsClientError(err error) bool {
	return generic.IsClientError(err) ||
		errors.Is(err, ErrInvalidTask) ||
		errors.Is(err, ErrBeforeStartDate) ||
		errors.Is(err, ErrNotActiveOnDate) ||
		errors.Is(err, ErrQuotaReached) ||
		errors.Is(err, ErrObjectiveCompleted)
}

// IsNotFound extends generic.IsNotFound with mission lookups.
func IsNotFound(err error) bool {
	return generic.IsNotFound(err) ||
		errors.Is(err, ErrTaskNotFound) ||
		errors.Is(err, ErrTemplateNotFound) ||
		errors.Is(err, ErrSideQuestNotFound) ||
		errors.Is(err, ErrObjectiveNotFound) ||
		errors.Is(err, ErrRewardNotFound)
}
