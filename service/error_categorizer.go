package service

import (
	"strings"

	"github.com/ludo-technologies/simdup/domain"
)

// ErrorCategorizerImpl implements the ErrorCategorizer interface
type ErrorCategorizerImpl struct {
	codes    map[string]domain.ErrorCategory
	patterns map[domain.ErrorCategory][]string
}

// NewErrorCategorizer creates a new error categorizer
func NewErrorCategorizer() domain.ErrorCategorizer {
	return &ErrorCategorizerImpl{
		codes: map[string]domain.ErrorCategory{
			domain.ErrCodeInvalidInput:          domain.ErrorCategoryInput,
			domain.ErrCodeFileNotFound:          domain.ErrorCategoryInput,
			domain.ErrCodeParseError:            domain.ErrorCategoryInput,
			domain.ErrCodeConfigError:           domain.ErrorCategoryConfig,
			domain.ErrCodeParamsMismatch:        domain.ErrorCategoryConfig,
			domain.ErrCodeOutputError:           domain.ErrorCategoryOutput,
			domain.ErrCodeUnsupportedFormat:     domain.ErrorCategoryOutput,
			domain.ErrCodeAnalysisError:         domain.ErrorCategoryProcessing,
			domain.ErrCodeIncomparableSignature: domain.ErrorCategoryProcessing,
		},
		patterns: initializeErrorPatterns(),
	}
}

// initializeErrorPatterns maps message fragments of errors without a domain code
func initializeErrorPatterns() map[domain.ErrorCategory][]string {
	return map[domain.ErrorCategory][]string{
		domain.ErrorCategoryTimeout: {
			"timeout",
			"deadline",
			"context canceled",
		},
		domain.ErrorCategoryInput: {
			"no such file",
			"permission denied",
			"no record files",
		},
		domain.ErrorCategoryConfig: {
			"config",
			"toml",
		},
		domain.ErrorCategoryOutput: {
			"write",
			"output",
		},
	}
}

// categoryOrder fixes the order patterns are tried in
var categoryOrder = []domain.ErrorCategory{
	domain.ErrorCategoryTimeout,
	domain.ErrorCategoryInput,
	domain.ErrorCategoryConfig,
	domain.ErrorCategoryOutput,
}

// Categorize determines the category of an error
func (ec *ErrorCategorizerImpl) Categorize(err error) *domain.CategorizedError {
	if err == nil {
		return nil
	}

	if category, ok := ec.codes[domain.ErrorCode(err)]; ok {
		return &domain.CategorizedError{Category: category, Message: ec.getCategoryMessage(category), Original: err}
	}

	errMsg := strings.ToLower(err.Error())
	for _, category := range categoryOrder {
		if containsAnyPattern(errMsg, ec.patterns[category]) {
			return &domain.CategorizedError{Category: category, Message: ec.getCategoryMessage(category), Original: err}
		}
	}

	return &domain.CategorizedError{
		Category: domain.ErrorCategoryUnknown,
		Message:  err.Error(),
		Original: err,
	}
}

// GetRecoverySuggestions returns recovery suggestions for an error category
func (ec *ErrorCategorizerImpl) GetRecoverySuggestions(category domain.ErrorCategory) []string {
	suggestions := map[domain.ErrorCategory][]string{
		domain.ErrorCategoryInput: {
			"Check that the paths exist and contain JSON record files",
			"Records must be a JSON array or an object with an \"items\" array",
			"Use --include to match files that do not end in .json",
		},
		domain.ErrorCategoryConfig: {
			"Try: simdup init to generate a valid .simdup.toml",
			"bands x rows must equal num_perm",
			"Check SIMDUP_* environment variables",
		},
		domain.ErrorCategoryTimeout: {
			"Large num_perm values make the amplified search slow",
			"Try: simdup params precompute to fill the parameter cache ahead of time",
		},
		domain.ErrorCategoryOutput: {
			"Check write permissions for the output and cache paths",
			"Use one of --json, --yaml or --csv",
		},
		domain.ErrorCategoryProcessing: {
			"All signatures of one run must share sketch type, seed and num_perm",
			"Run with --verbose for detailed error information",
		},
		domain.ErrorCategoryUnknown: {
			"Run with --verbose for detailed error information",
		},
	}

	if sug, ok := suggestions[category]; ok {
		return sug
	}
	return []string{"Check the error message for more details"}
}

// getCategoryMessage returns a user-friendly message for an error category
func (ec *ErrorCategorizerImpl) getCategoryMessage(category domain.ErrorCategory) string {
	messages := map[domain.ErrorCategory]string{
		domain.ErrorCategoryInput:      "Failed to read input records",
		domain.ErrorCategoryConfig:     "Configuration file or settings error",
		domain.ErrorCategoryTimeout:    "Operation cancelled or timed out",
		domain.ErrorCategoryOutput:     "Failed to generate or write output",
		domain.ErrorCategoryProcessing: "Error while building the index",
		domain.ErrorCategoryUnknown:    "An unexpected error occurred",
	}

	if msg, ok := messages[category]; ok {
		return msg
	}
	return "An error occurred"
}

// containsAnyPattern checks if a string contains any of the given patterns
func containsAnyPattern(str string, patterns []string) bool {
	for _, pattern := range patterns {
		if strings.Contains(str, pattern) {
			return true
		}
	}
	return false
}
