package trainer

import (
	"github.com/gofrs/flock"

	"nnetctl/internal/failure"
)

// acquireLock takes the experiment lock without blocking.
func acquireLock(path string) (*flock.Flock, error) {
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, failure.Wrap(failure.ErrConfiguration, "trainer", "lock", path, err)
	}
	if !ok {
		return nil, failure.Wrap(failure.ErrConfiguration, "trainer", "lock",
			"another controller is already running in this experiment directory", nil)
	}
	return lock, nil
}
