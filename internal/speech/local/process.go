package local

import (
	"fmt"
	"os/exec"
	"sync/atomic"

	"yatravoice/internal/domain/speech"
)

// processJob is an utterance spoken by an external process.
type processJob struct {
	cmd      *exec.Cmd
	done     chan error
	canceled atomic.Bool
}

// startProcess starts cmd and returns a job that completes when it exits.
func startProcess(name string, cmd *exec.Cmd) (*processJob, error) {
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: start %s: %v", speech.ErrSynthesisFailed, name, err)
	}

	job := &processJob{cmd: cmd, done: make(chan error, 1)}
	go func() {
		err := cmd.Wait()
		switch {
		case job.canceled.Load():
			err = fmt.Errorf("%s: %w", name, speech.ErrSynthesisCanceled)
		case err != nil:
			err = fmt.Errorf("%w: %s: %v", speech.ErrSynthesisFailed, name, err)
		}
		job.done <- err
		close(job.done)
	}()

	return job, nil
}

func (j *processJob) Done() <-chan error {
	return j.done
}

// Cancel kills the process. Safe to call more than once and after exit.
func (j *processJob) Cancel() {
	if j.canceled.Swap(true) {
		return
	}
	if j.cmd.Process != nil {
		_ = j.cmd.Process.Kill()
	}
}
