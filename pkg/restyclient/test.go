package restyclient

import (
	"github.com/jarcoal/httpmock"
)

// NewMockedClient creates the Client with mocked HTTP transport.
func NewMockedClient(opts ...Option) (Client, *httpmock.MockTransport) {
	mockTransport := httpmock.NewMockTransport()
	return New(append(opts, WithHTTPTransport(mockTransport))...), mockTransport
}
