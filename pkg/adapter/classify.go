package adapter

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"

	"github.com/leapstack-labs/sqlforge/pkg/sqlerr"
)

// Classifier recognizes driver specific errors. Classify returns a
// *sqlerr.ConstraintError or *sqlerr.DisconnectError, or nil when err is
// not recognized.
type Classifier interface {
	Classify(err error) error
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(err error) error

// Classify implements Classifier.
func (f ClassifierFunc) Classify(err error) error { return f(err) }

// ClassifyError maps an execution error into the sqlerr taxonomy.
// Cancellation passes through unchanged; anything unrecognized is wrapped
// in *sqlerr.DBAPIError.
func ClassifyError(driverName string, c Classifier, statement string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, driver.ErrBadConn), errors.Is(err, sql.ErrConnDone):
		return &sqlerr.DisconnectError{Driver: driverName, Err: err}
	}
	if c != nil {
		if classified := c.Classify(err); classified != nil {
			return classified
		}
	}
	return &sqlerr.DBAPIError{Driver: driverName, Statement: statement, Err: err}
}
