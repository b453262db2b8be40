package domain

import (
	"errors"
	"time"
)

// Exchange is one completed turn of the interactive session.
// Command and Explanation are empty when no command was recognised.
// Result is empty unless the suggestion was executed.
type Exchange struct {
	ID            string
	Timestamp     time.Time
	Prompt        string
	Model         string
	ModelResponse string
	Command       string
	Explanation   string
	Result        string
}

// Executed reports whether a simulated execution result is attached.
func (e Exchange) Executed() bool {
	return e.Result != ""
}

// Extraction is the outcome of parsing a model reply.
type Extraction struct {
	Command     string
	Explanation string
	Found       bool
}

// Err returns ErrNoCommand when no command was recognised.
func (e Extraction) Err() error {
	if !e.Found {
		return ErrNoCommand
	}
	return nil
}

// Suggestion is a parsed model reply together with request metadata.
type Suggestion struct {
	ID          string
	Prompt      string
	Model       string
	Raw         string
	Command     string
	Explanation string
	Found       bool
	Elapsed     time.Duration
	Risk        RiskAssessment
}

// Exchange converts the suggestion into a history entry.
func (s Suggestion) Exchange(result string, at time.Time) Exchange {
	return Exchange{
		ID:            s.ID,
		Timestamp:     at,
		Prompt:        s.Prompt,
		Model:         s.Model,
		ModelResponse: s.Raw,
		Command:       s.Command,
		Explanation:   s.Explanation,
		Result:        result,
	}
}

// Prompt is a rendered system/user prompt pair.
type Prompt struct {
	System string
	User   string
}

// SimulationResult is the output of a simulated command execution.
type SimulationResult struct {
	Command   string
	Output    string
	Simulated bool
}

var (
	// ErrServerUnreachable reports that the inference server did not answer.
	ErrServerUnreachable = errors.New("inference server unreachable")
	// ErrModelUnavailable reports that the requested model is not installed.
	ErrModelUnavailable = errors.New("model not available")
	// ErrNoCommand reports a model reply without a recognisable command.
	ErrNoCommand = errors.New("no command found in model response")
	// ErrEmptyPrompt reports a blank user request.
	ErrEmptyPrompt = errors.New("empty request")
	// ErrBlocked reports a command refused by the guardrail.
	ErrBlocked = errors.New("command blocked by guardrail")
	// ErrArchiveWrite reports an exchange kept in memory but not archived.
	ErrArchiveWrite = errors.New("archive write failed")
)
