// Package request defines immutable HTTP requests of the Kilonova API clients, see NewHTTPRequest.
//
// A request is sent by a Sender: client.Client is built on net/http, restyclient.Client on resty.
// NewAPIRequest wraps one or more requests with a typed result and callbacks.
// Query, Form and ToFormBody encode parameters and bodies.
// WaitGroup, RunGroup, Parallel and FailFast send requests concurrently.
package request
