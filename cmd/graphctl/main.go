// Command graphctl talks to the graph API from a terminal. It can browse a
// member's network and drive the connection, intro and quota endpoints.
package main

import (
	"fmt"
	"os"

	pkgerrors "github.com/Shani815/vctalenthub-sub000/pkg/errors"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, describeError(err))
		os.Exit(1)
	}
}

func describeError(err error) string {
	appErr := pkgerrors.GetAppError(err)
	if appErr == nil {
		return "Error: " + err.Error()
	}
	msg := fmt.Sprintf("Error (%s): %s", appErr.Type, appErr.Message)
	if days, ok := appErr.RetryAfterDays(); ok {
		msg += fmt.Sprintf(" (retry in %d days)", days)
	}
	return msg
}
