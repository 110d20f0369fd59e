package channeltest

import (
	"context"
	"fmt"
	"testing"

	"github.com/shipwaylabs/shipway"
)

// Standard categories for grouping contracts.
const (
	CategoryCore        = "core"
	CategoryEnvironment = "environment"
	CategoryFilesystem  = "filesystem"
	CategoryTransfer    = "transfer"
	CategoryErrors      = "errors"
)

// T is the minimal interface required for testify/assert and require.
type T interface {
	Errorf(format string, args ...any)
	FailNow()
	Skipf(format string, args ...any)
	Context() context.Context
	TempDir() string
	Name() string
}

// TestCase defines a single behavioral contract requirement.
type TestCase struct {
	Category    string
	Name        string
	Description string
	Prereq      func(t T, ch shipway.Channel) (ok bool, reason string)
	Run         func(t T, ch shipway.Channel)
}

// ID returns the stable, globally unique contract identifier.
func (tc TestCase) ID() string {
	return fmt.Sprintf("%s/%s", tc.Category, tc.Name)
}

// Verify is the standard Go test entry point for channel authors.
//
// Each contract receives a fresh channel from open, so contracts that close
// their channel cannot interfere with the rest of the suite.
func Verify(t *testing.T, open func(t *testing.T) shipway.Channel) {
	t.Helper()

	for _, tc := range AllContracts() {
		t.Run(tc.ID(), func(t *testing.T) {
			ch := open(t)

			t.Cleanup(func() { _ = ch.Close() })

			if tc.Prereq != nil {
				ok, reason := tc.Prereq(t, ch)
				if !ok {
					t.Skipf("prereq unmet: %s", reason)
				}
			}

			tc.Run(t, ch)
		})
	}
}
