package client

import (
	"os"

	"github.com/jarcoal/httpmock"

	"github.com/kiloprojects/go-client/pkg/client/trace"
)

// TestDumpEnv enables the HTTP dump of the clients created by NewMockedClient, if set to "true".
const TestDumpEnv = "KN_TEST_HTTP_DUMP"

// NewMockedClient returns a Client sending requests to the returned httpmock transport.
// Retries are disabled, as in the Client returned by New.
func NewMockedClient() (Client, *httpmock.MockTransport) {
	transport := httpmock.NewMockTransport()
	c := New().WithTransport(transport)
	if os.Getenv(TestDumpEnv) == "true" { //nolint:forbidigo
		c = c.AndTrace(trace.DumpTracer(os.Stderr))
	}
	return c, transport
}
