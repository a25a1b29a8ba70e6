/*
Package resilience provides a circuit breaker for collaborator calls.

The breaker guards request/response calls to the chat backend (session
list, session history, model catalog). It never retries and it is never
applied to streaming connections, which are not reconnected by design; it
only stops hammering a backend that is already failing.

# States

- Closed: Normal operation, calls pass through
- Open: Backend unavailable, calls fail immediately with ErrCircuitOpen
- Half-Open: Limited trial calls decide whether to close again

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                    [failure]
	                                           v
	                                         Open

# Usage

	breaker := resilience.New("api", resilience.Settings{
		ReadyToTrip: func(c resilience.Counts) bool { return c.ConsecutiveFailures >= 5 },
		IsFailure:   func(err error) bool { return err != nil && !isClientError(err) },
	})
	err := breaker.Do(func() error {
		_, err := client.Get(ctx)
		return err
	})
*/
package resilience
