package safe

import (
	"context"
	"io"
	"reflect"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/teamtask/pkg/utils/errutil"
)

// Close releases a resource on shutdown. A failure is logged and reported
// with the resource name instead of being returned, so it fits a defer.
// Nil closers, including nil pointers stored in the interface, are skipped.
func Close(ctx context.Context, closer io.Closer, name string) {
	if isNil(closer) {
		return
	}
	if err := closer.Close(); err != nil {
		_ = errutil.Handle(ctx, goerr.Wrap(err, "failed to close", goerr.V("resource", name)), "failed to close "+name)
	}
}

func isNil(closer io.Closer) bool {
	if closer == nil {
		return true
	}
	v := reflect.ValueOf(closer)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}
