package usecase

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes attached to intake rejections.
const (
	TextCodeSignatureMissing  = "SIGNATURE_MISSING"
	TextCodeSignatureMismatch = "SIGNATURE_MISMATCH"
	TextCodeMalformedBatch    = "MALFORMED_BATCH"
	TextCodeConfigInvalid     = "CONFIG_INVALID"
)

func intakeError(message string, category goerrors.Category, code int, textCode string) error {
	return goerrors.New(message, category).
		WithCode(code).
		WithTextCode(textCode)
}

func intakeWrapError(source error, category goerrors.Category, message string, code int, textCode string) error {
	if source == nil {
		return intakeError(message, category, code, textCode)
	}
	return goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(textCode)
}

func errSignatureMissing() error {
	return intakeError("missing signature header in webhook request", goerrors.CategoryAuth, http.StatusUnauthorized, TextCodeSignatureMissing)
}

func errSignatureMismatch() error {
	return intakeError("incorrect webhook request signature", goerrors.CategoryAuthz, http.StatusForbidden, TextCodeSignatureMismatch)
}

func errMalformedBatch(source error) error {
	return intakeWrapError(source, goerrors.CategoryBadInput, "failed to parse webhook json body", http.StatusBadRequest, TextCodeMalformedBatch)
}

func errConfigInvalid(source error) error {
	return intakeWrapError(source, goerrors.CategoryInternal, "webhook verification is misconfigured", http.StatusInternalServerError, TextCodeConfigInvalid)
}
