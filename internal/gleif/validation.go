package gleif

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	apierrors "github.com/olgasafonova/gleif-mcp-server/internal/errors"
)

const (
	// MinPage is the first page number accepted by GLEIF
	MinPage = 1

	// MaxPageSize is the largest page[size] GLEIF serves
	MaxPageSize = 200
)

var leiRegex = regexp.MustCompile(`^[A-Z0-9]{20}$`)

// ValidateLEI validates a Legal Entity Identifier.
// LEIs are exactly 20 upper-case letters or digits (ISO 17442).
func ValidateLEI(lei string) error {
	if lei == "" {
		return apierrors.NewValidationError("lei", "", "LEI is required")
	}
	if !leiRegex.MatchString(lei) {
		return apierrors.NewValidationError("lei", lei, "invalid LEI format: must be exactly 20 upper-case letters or digits")
	}
	return nil
}

// ValidatePage validates the page[number] parameter.
func ValidatePage(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return apierrors.NewValidationError("page", value, "must be an integer")
	}
	if n < MinPage {
		return apierrors.NewValidationError("page", value, fmt.Sprintf("must be at least %d", MinPage))
	}
	return nil
}

// ValidateSize validates the page[size] parameter.
func ValidateSize(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return apierrors.NewValidationError("size", value, "must be an integer")
	}
	if n < 1 {
		return apierrors.NewValidationError("size", value, "must be at least 1")
	}
	if n > MaxPageSize {
		return apierrors.NewValidationError("size", value, fmt.Sprintf("cannot exceed %d", MaxPageSize))
	}
	return nil
}

// NormalizeCountryCode upper-cases an ISO 3166 country code.
func NormalizeCountryCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
