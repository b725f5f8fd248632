package closer

import "errors"

type (
	Closer interface {
		Close() error
	}

	CloserGroup struct {
		closers []Closer
	}
)

func NewCloserGroup(closers ...Closer) *CloserGroup {
	return &CloserGroup{
		closers: closers,
	}
}

// Add appends c; nil closers are skipped.
func (c *CloserGroup) Add(closer Closer) {
	if closer == nil {
		return
	}
	c.closers = append(c.closers, closer)
}

// Close closes in reverse order of addition. Every closer runs; the errors are joined.
func (c *CloserGroup) Close() error {
	var errs []error

	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
