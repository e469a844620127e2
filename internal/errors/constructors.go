package errors

// Convenience functions for common error patterns

// Config errors

func ConfigNotFound(path string) *RunnerError {
	return New(CategoryConfig, SeverityFatal, "configuration file not found").
		WithContext("path", path)
}

func ConfigInvalid(path string, cause error) *RunnerError {
	return Wrap(cause, CategoryConfig, SeverityFatal, "configuration file invalid").
		WithContext("path", path)
}

func ValidationFailed(field, reason string) *RunnerError {
	return New(CategoryValidation, SeverityFatal, "validation failed").
		WithContext("field", field).
		WithContext("reason", reason)
}

// Script errors

// ParseError reports a root script that could not be read or is not well-formed XML.
func ParseError(path string, cause error) *RunnerError {
	return Wrap(cause, CategoryParse, SeverityFatal, "failed to parse build script").
		WithContext("file", path)
}

// IncludeResolutionError reports an include that was skipped while loading a script.
func IncludeResolutionError(buildfile string, cause error) *RunnerError {
	return Wrap(cause, CategoryInclude, SeverityWarning, "include skipped").
		WithContext("buildfile", buildfile)
}

func NoScriptLoaded() *RunnerError {
	return New(CategoryValidation, SeverityError, "no build script loaded")
}

func TargetNotFound(target string, available []string) *RunnerError {
	return New(CategoryNotFound, SeverityError, "target not found").
		WithContext("target", target).
		WithContext("available_targets", available)
}

// Process errors

func ProcessLaunchError(command string, cause error) *RunnerError {
	return Wrap(cause, CategoryProcess, SeverityError, "failed to launch build command").
		WithContext("command", command)
}

func ProcessIOError(command string, cause error) *RunnerError {
	return Wrap(cause, CategoryProcess, SeverityError, "failed to read build output").
		WithContext("command", command)
}

func RunInProgress(target string) *RunnerError {
	return New(CategoryRuntime, SeverityError, "a target is already running").
		WithContext("target", target)
}

// Internal errors

func InternalError(message string, cause error) *RunnerError {
	return Wrap(cause, CategoryInternal, SeverityFatal, message)
}
