package failurelog

import (
	"errors"
	"fmt"
	"io"
	"os"

	ecerrors "github.com/randalmurphal/eventcore/pkg/eventcore/errors"
	"github.com/randalmurphal/eventcore/pkg/eventcore/event"
)

// Hook returns a BusConfig.OnHandlerError function that appends every
// handler failure to store. Store errors are written to os.Stderr.
func Hook(store Store) func(event.ErrorRecord, error) {
	return HookTo(store, os.Stderr)
}

// HookTo is Hook with store errors written to w.
//
// Store errors are never emitted on the bus: a failing store would
// otherwise feed its own failures back into itself.
func HookTo(store Store, w io.Writer) func(event.ErrorRecord, error) {
	return func(rec event.ErrorRecord, err error) {
		entry := Entry{ErrorRecord: rec}

		var pe *ecerrors.PanicError
		if errors.As(err, &pe) {
			entry.Stack = string(pe.Stack)
		}

		if _, appendErr := store.Append(entry); appendErr != nil {
			fmt.Fprintf(w, "eventcore: failurelog: %v (handler %s, event %q)\n",
				appendErr, rec.Handler, rec.EventName)
		}
	}
}
