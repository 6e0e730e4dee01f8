package contracts

import "errors"

// Error kinds shared by every stage. Wrap with fmt.Errorf("...: %w", Err...)
// and match with errors.Is.
var (
	ErrNotFound         = errors.New("symbol not found")
	ErrNetwork          = errors.New("network error")
	ErrInsufficientData = errors.New("insufficient data")
	ErrModelFitFailure  = errors.New("model fit failure")
	ErrReportGeneration = errors.New("report generation failure")
	ErrRenderFailure    = errors.New("render failure")

	// Generative-text collaborator kinds
	ErrRateLimited = errors.New("rate limited")
	ErrAuth        = errors.New("authentication failed")
)

// ErrorKind is the machine-readable form of a pipeline error
type ErrorKind string

const (
	KindNotFound         ErrorKind = "NotFound"
	KindNetwork          ErrorKind = "NetworkError"
	KindInsufficientData ErrorKind = "InsufficientData"
	KindModelFitFailure  ErrorKind = "ModelFitFailure"
	KindReportGeneration ErrorKind = "ReportGenerationFailure"
	KindRenderFailure    ErrorKind = "RenderFailure"
	KindRateLimited      ErrorKind = "RateLimited"
	KindAuth             ErrorKind = "AuthError"
	KindInternal         ErrorKind = "Internal"
)

// kindOrder lists stage-level kinds before transport-level ones, so a report
// failure caused by a network error is reported as a report failure.
var kindOrder = []struct {
	err  error
	kind ErrorKind
}{
	{ErrReportGeneration, KindReportGeneration},
	{ErrRenderFailure, KindRenderFailure},
	{ErrModelFitFailure, KindModelFitFailure},
	{ErrInsufficientData, KindInsufficientData},
	{ErrNotFound, KindNotFound},
	{ErrRateLimited, KindRateLimited},
	{ErrAuth, KindAuth},
	{ErrNetwork, KindNetwork},
}

// KindOf classifies err. Unknown errors are Internal; nil is "".
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	for _, k := range kindOrder {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
