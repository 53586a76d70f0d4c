package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ludo-technologies/simdup/domain"
	"github.com/ludo-technologies/simdup/service"
)

// newLogger writes human readable logs to stderr. Only warnings are shown
// unless --verbose is set.
func newLogger(cmd *cobra.Command) zerolog.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.Kitchen}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// verboseFromArgs finds --verbose before cobra has parsed anything, for
// errors raised while parsing.
func verboseFromArgs(args []string) bool {
	for _, a := range args {
		if a == "--verbose" || a == "-v" {
			return true
		}
	}
	return false
}

// reportError prints the error with its category and recovery suggestions
func reportError(w io.Writer, err error, verbose bool) {
	categorized := service.NewErrorCategorizer().Categorize(err)
	if categorized == nil {
		return
	}
	fmt.Fprintf(w, "Error: %s\n", categorized.Message)
	fmt.Fprintf(w, "  %v\n", err)
	if categorized.Category == domain.ErrorCategoryUnknown && !verbose {
		return
	}
	suggestions := service.NewErrorCategorizer().GetRecoverySuggestions(categorized.Category)
	if len(suggestions) > 0 {
		fmt.Fprintln(w, "\nSuggestions:")
		for _, s := range suggestions {
			fmt.Fprintf(w, "  • %s\n", s)
		}
	}
}

// outputFormat resolves the format flags. An empty format means no flag was
// given and the configured format applies.
func outputFormat(json, csv, yaml bool) (domain.OutputFormat, error) {
	if !json && !csv && !yaml {
		return "", nil
	}
	format, _, err := service.NewOutputFormatResolver().Determine(json, csv, yaml, "")
	if err != nil {
		return "", domain.NewInvalidInputError(err.Error(), nil)
	}
	return format, nil
}

// newProgress returns a progress manager when progress was requested and
// stderr is a terminal.
func newProgress(enabled bool) domain.ProgressManager {
	if !enabled {
		return nil
	}
	pm := service.NewProgressManager()
	pm.SetWriter(os.Stderr)
	return pm
}
