package runtime

import "fmt"

// RetryPolicy decides what happens once an input node exhausts its retry limit.
type RetryPolicy string

const (
	// RetryEnd ends the session.
	RetryEnd RetryPolicy = "end"
	// RetryReprompt resets the counter and asks again.
	RetryReprompt RetryPolicy = "reprompt"
	// RetryFallback moves to a configured fallback node.
	RetryFallback RetryPolicy = "fallback"
)

// ParseRetryPolicy validates a policy name. Empty means RetryEnd.
func ParseRetryPolicy(s string) (RetryPolicy, error) {
	switch RetryPolicy(s) {
	case "", RetryEnd:
		return RetryEnd, nil
	case RetryReprompt:
		return RetryReprompt, nil
	case RetryFallback:
		return RetryFallback, nil
	}
	return "", fmt.Errorf("unknown retry policy %q (expected end, reprompt or fallback)", s)
}
