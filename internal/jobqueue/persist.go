package jobqueue

import "github.com/mapequation/infomap-go/internal/jobrepo"

// RunFromResult builds a jobrepo.Run from a completed job and its
// Result, for a Queue.OnResult callback to hand to a jobrepo.Repository.
func RunFromResult(job *ClusterJob, res *Result) *jobrepo.Run {
	top := make([]jobrepo.TopModule, len(res.TopModules))
	for i, m := range res.TopModules {
		top[i] = jobrepo.TopModule{ModuleID: m.ModuleID, Flow: m.Flow, NumNodes: m.Size}
	}
	return &jobrepo.Run{
		JobUUID:       res.JobUUID,
		InputPath:     job.InputPath,
		Codelength:    res.Codelength,
		NumLevels:     res.NumLevels,
		NumTopModules: res.NumTopModules,
		TopModules:    top,
		Seed:          job.Config.Seed,
		Status:        job.Status.String(),
		Error:         job.Error,
	}
}
