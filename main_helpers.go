// komandan
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"
)

// printMessage writes message to stdout only if requiredVerbosityLevel is at
// or below the global verbosity level, and mirrors it to the log file buffer
// when one is configured. Carried over from the teacher's verbosity-gated
// logging idiom.
func printMessage(requiredVerbosityLevel int, message string, vars ...interface{}) {
	if globalVerbosityLevel == 0 {
		return
	}

	if globalVerbosityLevel >= verbosityProgress && requiredVerbosityLevel <= globalVerbosityLevel {
		timestamp := time.Now().Format("15:04:05.000000")
		message = timestamp + ": " + message
	}

	if requiredVerbosityLevel <= globalVerbosityLevel {
		fmt.Printf(message, vars...)
	}

	if config.logFile != nil && requiredVerbosityLevel <= globalVerbosityLevel {
		config.eventLogMutex.Lock()
		config.eventLog = append(config.eventLog, fmt.Sprintf(message, vars...))
		config.eventLogMutex.Unlock()
	}
}

// expandHomeDirectory resolves a leading "~/" against the invoking user's
// home directory, leaving any other path untouched.
func expandHomeDirectory(path string) (absolutePath string) {
	path = strings.Trim(path, `"`)
	path = strings.Trim(path, `'`)

	if !strings.HasPrefix(path, "~/") {
		absolutePath = path
		return
	}

	path = strings.TrimPrefix(path, "~/")
	absolutePath = filepath.Join(config.userHomeDirectory, path)
	return
}

// promptUser reads a line of plaintext input from the terminal.
func promptUser(userPrompt string, printVars ...interface{}) (userResponse string, err error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		err = fmt.Errorf("not in a terminal, prompts do not work")
		return
	}

	fmt.Printf(userPrompt, printVars...)
	fmt.Scanln(&userResponse)
	return
}

// promptUserForSecret reads a line of input from the terminal without
// echoing it back, restoring terminal state on return or on SIGINT/SIGTERM.
func promptUserForSecret(userPrompt string, printVars ...interface{}) (userResponse []byte, err error) {
	fd := int(os.Stdin.Fd())

	if !term.IsTerminal(fd) {
		err = fmt.Errorf("not in a terminal, prompts do not work")
		return
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		err = fmt.Errorf("failed to set terminal raw mode: %v", err)
		return
	}
	defer func() {
		_ = term.Restore(fd, oldState)
		fmt.Println()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		_ = term.Restore(fd, oldState)
		fmt.Println()
		os.Exit(1)
	}()

	fmt.Printf(userPrompt, printVars...)

	userResponse, err = term.ReadPassword(fd)
	if err != nil {
		err = fmt.Errorf("error reading password: %v", err)
	}
	return
}
