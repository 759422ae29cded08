package kilonova

import (
	"context"
	"net/http"

	"github.com/kiloprojects/go-client/pkg/request"
)

// RequestParams describes one API call.
type RequestParams struct {
	// Method is one of GET, POST, PUT, DELETE, the default is GET.
	Method string
	// URL is the path relative to the API root, a leading slash is optional.
	URL string
	// Query parameters, nil values are omitted.
	Query request.Query
	// PathParams replace {placeholders} in the URL.
	PathParams map[string]string
	// Body can be a string, []byte, url.Values, *request.Form or an io.Reader.
	Body any
	// Headers override the default headers.
	Headers map[string]string
	// UploadProgress is called as the body is sent.
	UploadProgress request.ProgressFunc
}

// Request sends the API call and returns the response envelope.
// It never fails, a transport failure is returned as an error envelope with TransportErrorCode.
func Request[T any](ctx context.Context, api *API, params RequestParams) Response[T] {
	req, err := api.newRequest(params)
	if err != nil {
		return newTransportError[T](err)
	}

	out := &Response[T]{}
	res, _, err := req.WithResult(out).Send(ctx)
	if err != nil {
		api.logger.Debugf(`api call %s "%s" failed: %s`, req.Method(), params.URL, err)
	}
	out.complete(res, err)
	return *out
}

// GetCall sends the GET request with the query parameters.
func GetCall[T any](ctx context.Context, api *API, call string, params request.Query) Response[T] {
	return Request[T](ctx, api, RequestParams{
		Method: http.MethodGet,
		URL:    call,
		Query:  params,
	})
}

// PostCall sends the POST request with the URL-encoded form body.
func PostCall[T any](ctx context.Context, api *API, call string, params map[string]any) Response[T] {
	return Request[T](ctx, api, RequestParams{
		Method:  http.MethodPost,
		URL:     call,
		Headers: map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
		Body:    request.ToFormBody(params).Encode(),
	})
}

// BodyCall sends the POST request with the JSON body.
func BodyCall[T any](ctx context.Context, api *API, call string, body any) Response[T] {
	content, err := json.Marshal(body)
	if err != nil {
		return newTransportError[T](err)
	}
	return Request[T](ctx, api, RequestParams{
		Method:  http.MethodPost,
		URL:     call,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    content,
	})
}

// MultipartCall sends the POST request with the multipart/form-data body.
// The Content-Type header with the boundary is set by the sender.
func MultipartCall[T any](ctx context.Context, api *API, call string, form *request.Form) Response[T] {
	if form == nil {
		form = request.NewForm()
	}
	return Request[T](ctx, api, RequestParams{
		Method: http.MethodPost,
		URL:    call,
		Body:   form,
	})
}

// newAPIRequest creates the typed request, the payload is unwrapped from the envelope.
// The error envelope is converted to the *Error.
func newAPIRequest[T any](api *API, params RequestParams) request.APIRequest[*T] {
	result := new(T)
	req, err := api.newRequest(params)
	if err != nil {
		return request.NewAPIRequest(result, request.NewReqDefinitionError(err))
	}

	envelope := &Response[T]{}
	req = req.
		WithResult(envelope).
		WithOnComplete(func(_ context.Context, res request.HTTPResponse, err error) error {
			envelope.complete(res, err)
			if err := envelope.Err(); err != nil {
				return err
			}
			*result = envelope.Data
			return nil
		})
	return request.NewAPIRequest(result, req)
}
