package bootstrap

import (
	"errors"

	"github.com/natserract/sfclient/pkg/salesforce"
)

// Exit codes shared by the command line tools.
const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
	// ExitCodeAuthRequired means there is no usable token: nothing is stored,
	// or Salesforce rejected it. Run sftoken exchange or sftoken refresh.
	ExitCodeAuthRequired = 2
)

// ExitCode maps an error from a command onto an exit code for scripting.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitCodeSuccess
	case salesforce.IsAuthenticationError(err),
		salesforce.IsStoreNotFound(err),
		errors.Is(err, salesforce.ErrNoAccessToken):
		return ExitCodeAuthRequired
	default:
		return ExitCodeError
	}
}
