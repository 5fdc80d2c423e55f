package cmd

import (
	"errors"

	"grimm.is/netgen/internal/config"
	"grimm.is/netgen/internal/generate"
	"grimm.is/netgen/internal/parser"
	"grimm.is/netgen/internal/session"
	"grimm.is/netgen/internal/state"
)

// Exit statuses.
const (
	ExitOK         = 0
	ExitFailure    = 1
	ExitParse      = 2
	ExitValidation = 3
	ExitWrite      = 4
)

// ErrDiffers is returned by diff when generated and installed artifacts differ.
var ErrDiffers = errors.New("generated configuration differs from installed")

// ExitCode maps an error returned by a Run function to an exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var (
		readErr   *parser.ReadError
		parseErr  *parser.ParseError
		conflict  *parser.ConflictError
		stateErrs state.ValidationErrors
		cfgErrs   config.ValidationErrors
		writeErr  *generate.WriteError
		enableErr *generate.EnableError
	)
	switch {
	case errors.As(err, &readErr), errors.As(err, &parseErr):
		return ExitParse
	case errors.As(err, &conflict), errors.As(err, &stateErrs), errors.As(err, &cfgErrs),
		errors.Is(err, session.ErrUnknownDefinition):
		return ExitValidation
	case errors.As(err, &writeErr), errors.As(err, &enableErr):
		return ExitWrite
	}
	return ExitFailure
}
