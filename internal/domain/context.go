package domain

// ContextSnapshot holds environment data injected into the command prompt.
type ContextSnapshot struct {
	WorkingDir     string
	Shell          string
	OS             string
	User           string
	AvailableTools []string
}
