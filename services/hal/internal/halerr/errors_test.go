package halerr

import "testing"

func TestErrorsAreStableStrings(t *testing.T) {
	cases := map[string]error{
		"short_read":            ErrShortRead,
		"unknown_event":         ErrUnknownEvent,
		"no_sync":               ErrNoSync,
		"poll_failed":           ErrPoll,
		"poll_timeout":          ErrPollTimeout,
		"not_readable":          ErrNotReadable,
		"value_rejected":        ErrRejected,
		"no_model":              ErrNoModel,
		"no_node":               ErrNoNode,
		"missing_value":         ErrMissingValue,
		"unsupported_transport": ErrTransport,
		"unknown_reader":        ErrUnknownReader,
		"unsupported":           ErrUnsupported,
	}
	for want, e := range cases {
		if e == nil || e.Error() != want {
			t.Fatalf("error %q mismatch: got %#v", want, e)
		}
	}
}
