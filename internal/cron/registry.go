package cron

import (
	"context"
	"slices"
)

// Job is one unit of scheduled work. Run receives a context bounded by the job timeout.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds the jobs of a cycle in the order they run.
type Registry struct {
	jobs  []Job
	names map[string]struct{}
}

func NewRegistry(jobs ...Job) *Registry {
	r := &Registry{names: make(map[string]struct{}, len(jobs))}
	for _, job := range jobs {
		r.Register(job)
	}
	return r
}

// Register appends job and reports whether it was added. Nil jobs and reused names are
// skipped so a job cannot run twice per cycle.
func (r *Registry) Register(job Job) bool {
	if job == nil {
		return false
	}
	if _, taken := r.names[job.Name()]; taken {
		return false
	}
	r.names[job.Name()] = struct{}{}
	r.jobs = append(r.jobs, job)
	return true
}

func (r *Registry) Jobs() []Job {
	return slices.Clone(r.jobs)
}

func (r *Registry) Names() []string {
	names := make([]string, len(r.jobs))
	for i, job := range r.jobs {
		names[i] = job.Name()
	}
	return names
}
