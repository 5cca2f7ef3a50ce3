package reports

import (
	"testing"

	"go.uber.org/goleak"
)

// statistics computations run inline; anything left running afterwards is a leak
func verifyNoLeaks(t *testing.T) {
	t.Helper()
	goleak.VerifyNone(t,
		goleak.IgnoreCurrent(),
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)
}
