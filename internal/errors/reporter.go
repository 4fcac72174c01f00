package errors

// Process exit codes by failure surface. Scripts drive retry and alerting
// off these, so the mapping is a stable contract like the error codes.
const (
	ExitOK = iota
	ExitFailure
	ExitUsage
	ExitMissing
	ExitTransfer
	ExitExternalTool
	ExitPermission
	ExitBrokenState
)

// ExitCode maps an error to the process exit code Execute should use.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	fe, ok := AsSdkForgeError(err)
	if !ok {
		return ExitFailure
	}

	switch fe.Type {
	case ErrorTypeInvalidArgument:
		return ExitUsage
	case ErrorTypeComponentNotFound, ErrorTypeDependency:
		return ExitMissing
	case ErrorTypeDownload, ErrorTypeNetwork, ErrorTypeTimeout:
		return ExitTransfer
	case ErrorTypeExternalTool:
		return ExitExternalTool
	case ErrorTypePermission:
		return ExitPermission
	case ErrorTypeState, ErrorTypeUnpack:
		return ExitBrokenState
	default:
		return ExitFailure
	}
}

// Render turns an error into the text the CLI prints on failure. Structured
// errors come out with their classification and recovery suggestions; plain
// errors print as a single line.
func Render(err error) string {
	if err == nil {
		return ""
	}
	if fe, ok := AsSdkForgeError(err); ok {
		return fe.FormatDetailed()
	}
	return "❌ Error: " + err.Error()
}
