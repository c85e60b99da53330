package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
	"k8s.io/apimachinery/pkg/util/wait"

	"testplan/internal/api"
)

// DefaultPollInterval is how often WaitForImport polls the server.
const DefaultPollInterval = time.Second

// StatusGetter is implemented by *client.Client.
type StatusGetter interface {
	GetImport(ctx context.Context, id string) (api.ImportStatus, error)
}

// WaitOptions configures WaitForImport.
type WaitOptions struct {
	Interval time.Duration
	// Quiet disables the spinner.
	Quiet bool
	// Out receives the spinner; defaults to stderr.
	Out io.Writer
}

// WaitForImport polls a task until it is completed or failed and returns its
// last status. A failed task is not an error here; callers inspect the status.
func WaitForImport(ctx context.Context, c StatusGetter, id string, opts WaitOptions) (api.ImportStatus, error) {
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollInterval
	}
	if opts.Out == nil {
		opts.Out = os.Stderr
	}

	var s *spinner.Spinner
	if !opts.Quiet {
		s = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(opts.Out))
		s.Suffix = " Waiting for import " + id + "..."
		s.Start()
	}

	var last api.ImportStatus
	err := wait.PollUntilContextCancel(ctx, opts.Interval, true, func(ctx context.Context) (bool, error) {
		st, err := c.GetImport(ctx, id)
		if err != nil {
			return false, err
		}
		last = st
		if s != nil {
			s.Lock()
			s.Suffix = fmt.Sprintf(" %s %d%%", st.Status, st.Progress)
			s.Unlock()
		}
		return st.Status.IsTerminal(), nil
	})

	if s != nil {
		switch {
		case err != nil:
			s.FinalMSG = text.FgRed.Sprint("Stopped waiting for import "+id) + "\n"
		case last.Status == api.TaskFailed:
			s.FinalMSG = text.FgRed.Sprint("Import failed") + "\n"
		default:
			s.FinalMSG = text.FgGreen.Sprint(FormatSuccess("Import completed")) + "\n"
		}
		s.Stop()
	}
	return last, err
}
