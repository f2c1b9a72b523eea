// komandan
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/coreos/go-systemd/journal"
)

// ###################################
//      EXCEPTION HANDLING
// ###################################

// logError prints an error, mirrors it to journald when available, and
// exits with status 1 when fatal is set; with fatal unset it returns, as
// the dispatcher's calls do.
func logError(errorDescription string, errorMessage error, fatal bool) {
	if errorMessage == nil {
		return
	}

	if err := CreateJournaldLog(fmt.Sprintf("%s: %v", errorDescription, errorMessage), "err"); err != nil {
		fmt.Printf("Failed to create journald entry: %v\n", err)
	}

	fmt.Printf("%s: %v\n", errorDescription, errorMessage)

	if fatal {
		os.Exit(1)
	}
}

// CreateJournaldLog sends a message to the systemd journal at the requested
// priority, swallowing the "journald unavailable" case since it's expected
// on non-systemd hosts and in containers.
func CreateJournaldLog(errorMessage string, requestedPriority string) (err error) {
	msgPriority := journal.PriAlert
	switch requestedPriority {
	case "err":
		msgPriority = journal.PriErr
	case "info":
		msgPriority = journal.PriInfo
	default:
		return nil
	}

	err = journal.Send(errorMessage, msgPriority, nil)
	if err != nil && strings.Contains(err.Error(), "could not initialize socket") {
		err = nil
	}
	return
}
