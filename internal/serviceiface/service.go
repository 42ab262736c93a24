package serviceiface

import "context"

// Service is a long-lived component started before the jobs and stopped after
// them.
type Service interface {
	Name() string
	Start() error
	Stop() error
}

// Job is one unit of work run to completion by the app manager.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}
