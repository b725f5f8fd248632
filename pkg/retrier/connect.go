package retrier

import "time"

// Connect attempts to establish a connection with retry logic.
//
// The connector runs up to retry+1 times, waiting sleep seconds between failed
// attempts. It is used for the optional cache and broker, which may come up
// later than the command that needs them.
//
// Type Parameters:
//   - T: The type of the connection object to be returned
//
// Parameters:
//   - retry: Number of retries after the first attempt (0 means exactly one attempt)
//   - sleep: Delay between attempts in seconds
//   - connector: Function that establishes the connection
//
// Returns:
//   - T: The established connection
//   - error: The last error if every attempt failed, or nil on success
//
// Example Usage:
//
//	conn, err := retrier.Connect(cfg.Retry.Count, cfg.Retry.Interval, func() (*amqp.Connection, error) {
//	    return amqp.Dial(cfg.Urls.Rabbitmq)
//	})
func Connect[T any](retry uint8, sleep uint, connector func() (T, error)) (T, error) {
	var (
		out T
		err error
	)

	for attempt := 0; attempt <= int(retry); attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(sleep) * time.Second)
		}

		out, err = connector()
		if err == nil {
			return out, nil
		}
	}

	return out, err
}
