package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/nainya/howcatalog/pkg/catalog"
	"github.com/nainya/howcatalog/pkg/substrate"
)

// ErrInvalidRequest indicates a request that fails validation
var ErrInvalidRequest = errors.New("invalid request")

// MaxPathAbbreviation is the longest accepted path abbreviation
const MaxPathAbbreviation = 10

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("segment", validateSegment)
	_ = validate.RegisterValidation("unitpath", validateUnitPath)
}

// validateSegment accepts a single path component: no "." and no
// surrounding whitespace. Empty is accepted.
func validateSegment(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return !strings.Contains(s, ".") && strings.TrimSpace(s) == s
}

// validateUnitPath accepts a "."-separated path with at least one
// non-empty component.
func validateUnitPath(fl validator.FieldLevel) bool {
	return len(substrate.PathFromString(fl.Field().String())) > 0
}

// Validate checks v against its validate tags. Failures wrap
// ErrInvalidRequest and name every offending field.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(msgs, "; "))
}

// Kind classifies an error for transport status mapping
type Kind int

const (
	KindInternal Kind = iota
	KindInvalid
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid_argument"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Classify maps catalog, substrate and validation errors to a Kind
func Classify(err error) Kind {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, catalog.ErrAgentTag),
		errors.Is(err, catalog.ErrEncoding),
		errors.Is(err, catalog.ErrInvalidState),
		errors.Is(err, substrate.ErrInvalidAddress),
		errors.Is(err, substrate.ErrEmptyPath):
		return KindInvalid
	case errors.Is(err, catalog.ErrDocumentNotFound),
		errors.Is(err, catalog.ErrMissingPath):
		return KindNotFound
	default:
		return KindInternal
	}
}
