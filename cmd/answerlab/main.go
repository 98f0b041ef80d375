package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess  = 0 // Evaluation completed
	ExitLowScore = 1 // Evaluation completed but scored below --min-score
	ExitError    = 2 // Configuration or runtime error
)

// LowScoreError indicates that the evaluation ran successfully, but the
// answer scored below the requested threshold.
type LowScoreError struct {
	Score    int
	MinScore int
}

func (e *LowScoreError) Error() string {
	return fmt.Sprintf("score %d is below the minimum %d", e.Score, e.MinScore)
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		var lowScoreErr *LowScoreError
		if errors.As(err, &lowScoreErr) {
			os.Exit(ExitLowScore)
		}

		// All other errors are configuration/runtime errors
		os.Exit(ExitError)
	}
}
