package schedule

import "math"

// LRParams holds the inputs of LearningRate. ArchivesToProcess, Initial and
// Final must be positive.
type LRParams struct {
	Iter              int
	NumJobs           int
	NumIters          int
	ArchivesProcessed int
	ArchivesToProcess int
	Initial           float64
	Final             float64
}

// LearningRate returns the aggregate learning rate for an iteration. The
// effective rate decays log-linearly from Initial to Final over the
// archives processed so far and is multiplied by the number of parallel
// jobs. The last iteration uses Final directly.
func LearningRate(p LRParams) float64 {
	if p.Iter+1 >= p.NumIters {
		return float64(p.NumJobs) * p.Final
	}
	effective := p.Initial * math.Exp(
		float64(p.ArchivesProcessed)*math.Log(p.Final/p.Initial)/float64(p.ArchivesToProcess),
	)
	return float64(p.NumJobs) * effective
}

// NumArchivesToProcess is the number of archive visits needed for numEpochs
// passes over the data.
func NumArchivesToProcess(numEpochs float64, numArchives int) int {
	return int(numEpochs * float64(numArchives))
}

// NumIters derives the iteration count from the archive budget, given that
// the job count ramps linearly from jobsInitial to jobsFinal.
func NumIters(archivesToProcess, jobsInitial, jobsFinal int) int {
	if jobsInitial+jobsFinal <= 0 {
		return 0
	}
	return archivesToProcess * 2 / (jobsInitial + jobsFinal)
}

// JobsForIter returns the number of parallel jobs at iter, rounded to the
// nearest integer along the linear ramp.
func JobsForIter(iter, numIters, jobsInitial, jobsFinal int) int {
	if numIters <= 0 {
		return jobsInitial
	}
	return int(0.5 + float64(jobsInitial) + float64(jobsFinal-jobsInitial)*float64(iter)/float64(numIters))
}

// ArchiveForJob returns the 1-based archive index consumed by job (1-based)
// once archivesProcessed archives have been visited.
func ArchiveForJob(archivesProcessed, job, numArchives int) int {
	if numArchives <= 0 {
		return 1
	}
	return (archivesProcessed+job-1)%numArchives + 1
}
