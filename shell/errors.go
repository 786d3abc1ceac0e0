package shell

import "errors"

var (
	ErrCommandNotFound    = errors.New("shell: command not found")
	ErrAlreadyRegistered  = errors.New("shell: command already registered")
	ErrInvalidCommand     = errors.New("shell: invalid command")
	ErrMissingArgument    = errors.New("shell: missing argument")
	ErrTooManyArguments   = errors.New("shell: too many arguments")
	ErrUnknownFlag        = errors.New("shell: unknown flag")
	ErrMissingValue       = errors.New("shell: flag requires a value")
	ErrInvalidValue       = errors.New("shell: invalid flag value")
	ErrRequiredFlag       = errors.New("shell: required flag")
	ErrUnterminatedQuote  = errors.New("shell: unterminated quote")
	ErrEmptyPipelineStage = errors.New("shell: empty pipeline stage")
)
