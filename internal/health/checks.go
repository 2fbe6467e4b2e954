package health

import (
	"context"
	"fmt"
)

// Pinger is anything that can prove an upstream is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck reports unhealthy when p cannot be reached. A nil pinger is
// healthy with an explanatory message.
func PingCheck(p Pinger, absent string) CheckFunc {
	return func(ctx context.Context) (bool, string) {
		if p == nil {
			return true, absent
		}
		if err := p.Ping(ctx); err != nil {
			return false, err.Error()
		}
		return true, ""
	}
}

// StateCheck always passes and reports the value of describe as its message.
func StateCheck(describe func() string) CheckFunc {
	return func(context.Context) (bool, string) {
		return true, describe()
	}
}

// StoreCheck wraps a fallible status read.
func StoreCheck(read func() (bool, error), name string) CheckFunc {
	return func(context.Context) (bool, string) {
		v, err := read()
		if err != nil {
			return false, err.Error()
		}
		return true, fmt.Sprintf("%s=%t", name, v)
	}
}
