package nnet

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Layout locates models within an experiment directory.
type Layout struct {
	Dir           string
	AcousticModel bool
}

// Ext returns the model file extension without the dot.
func (l Layout) Ext() string {
	if l.AcousticModel {
		return "mdl"
	}
	return "raw"
}

// ModelPath returns the model written at the end of iteration iter-1.
func (l Layout) ModelPath(iter int) string {
	return filepath.Join(l.Dir, fmt.Sprintf("%d.%s", iter, l.Ext()))
}

// CandidatePath returns the n-th (1-based) parallel candidate for the model of
// iteration iter.
func (l Layout) CandidatePath(iter, n int) string {
	return filepath.Join(l.Dir, fmt.Sprintf("%d.%d.raw", iter, n))
}

// RawInput returns the train-job input for the model of iteration iter. An
// acoustic model is piped through nnet3-am-copy to extract its network.
func (l Layout) RawInput(iter int) string {
	if l.AcousticModel {
		return fmt.Sprintf("\"nnet3-am-copy --raw=true %s - |\"", l.ModelPath(iter))
	}
	return l.ModelPath(iter)
}

// FinalPath returns the combined model path.
func (l Layout) FinalPath() string {
	return filepath.Join(l.Dir, "final."+l.Ext())
}

// ConfigPath joins name onto the experiment configs directory.
func (l Layout) ConfigPath(name string) string {
	return filepath.Join(l.Dir, "configs", name)
}

// LogPath joins name onto the experiment log directory.
func (l Layout) LogPath(name string) string {
	return filepath.Join(l.Dir, "log", name)
}

// TrainLogPattern returns the log pattern of the train jobs of iteration iter
// with % standing for the job number.
func (l Layout) TrainLogPattern(iter int) string {
	return l.LogPath(fmt.Sprintf("train.%d.%%.log", iter))
}

// candidates lists the candidate paths for the given 1-based numbers.
func (l Layout) candidates(iter int, numbers []int) string {
	paths := make([]string, 0, len(numbers))
	for _, n := range numbers {
		paths = append(paths, l.CandidatePath(iter, n))
	}
	return strings.Join(paths, " ")
}
