// This file contains dialect-specific operators. They are registered with
// pkg/operator on first use so every dialect shares the same Op values.

package dialect

import (
	"sync"

	"github.com/leapstack-labs/sqlforge/pkg/operator"
)

var (
	extOnce  sync.Once
	ilike    operator.Op
	notILike operator.Op
)

func registerExtended() {
	extOnce.Do(func() {
		ilike = operator.Register("ilike", "ILIKE", operator.PrecedenceComparison, true)
		notILike = operator.Register("not_ilike", "NOT ILIKE", operator.PrecedenceComparison, true)
	})
}

// ILike returns the case-insensitive LIKE operator. Dialects without native
// support render it through ILikeFallback.
func ILike() operator.Op {
	registerExtended()
	return ilike
}

// NotILike returns the negated ILIKE operator.
func NotILike() operator.Op {
	registerExtended()
	return notILike
}
