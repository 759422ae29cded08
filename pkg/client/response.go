package client

import (
	"fmt"
	"io"
	"net/http"

	"github.com/kiloprojects/go-client/pkg/client/decode"
)

type errorWithRequest interface {
	error
	SetRequest(request *http.Request)
}

type errorWithResponse interface {
	error
	SetResponse(response *http.Response)
}

// HandleResponse maps the response body to the result or error definition and closes the body.
//
// Raw results (*[]byte, *string, io.Writer) receive the body as it is.
// Any other result is decoded from JSON regardless of the status code,
// unless the status is >= 400 and an error definition is registered.
// A status >= 400 with a raw or no result is reported as a generic HTTP error.
func HandleResponse(req *http.Request, res *http.Response, resultDef any, errDef error) (result any, err error) {
	result, err, decoded, unexpectedErr := mapResponseBody(res, resultDef, errDef)
	if unexpectedErr != nil {
		return nil, fmt.Errorf(`cannot process request %s "%s": %w`, req.Method, req.URL.String(), unexpectedErr)
	}

	if err == nil && !decoded && res.StatusCode > 399 {
		return nil, fmt.Errorf(`request %s "%s" failed: %d %s`, req.Method, req.URL.String(), res.StatusCode, http.StatusText(res.StatusCode))
	}

	return result, err
}

func mapResponseBody(res *http.Response, resultDef any, errDef error) (result any, err error, decoded bool, unexpectedErr error) {
	defer res.Body.Close()

	if res.StatusCode == http.StatusNoContent {
		return nil, nil, false, nil
	}

	body, unexpectedErr := decode.Decode(res.Body, res.Header.Get("Content-Encoding"))
	if unexpectedErr != nil {
		return nil, nil, false, unexpectedErr
	}

	// Error definition takes precedence
	if res.StatusCode > 399 && errDef != nil {
		if !isJSONContentType(mediaType(res.Header.Get("Content-Type"))) {
			return nil, nil, false, nil
		}
		if err := json.NewDecoder(body).Decode(errDef); err != nil {
			return nil, nil, false, fmt.Errorf(`cannot decode JSON error: %w`, err)
		}
		if v, ok := errDef.(errorWithRequest); ok {
			v.SetRequest(res.Request)
		}
		if v, ok := errDef.(errorWithResponse); ok {
			v.SetResponse(res)
		}
		return nil, errDef, true, nil
	}

	switch v := resultDef.(type) {
	case nil:
		return nil, nil, false, nil
	case *[]byte:
		bodyBytes, err := io.ReadAll(body)
		if err != nil {
			return nil, nil, false, fmt.Errorf(`cannot read response body: %w`, err)
		}
		*v = bodyBytes
		return v, nil, false, nil
	case *string:
		bodyBytes, err := io.ReadAll(body)
		if err != nil {
			return nil, nil, false, fmt.Errorf(`cannot read response body: %w`, err)
		}
		*v = string(bodyBytes)
		return v, nil, false, nil
	case io.Writer:
		if _, err := io.Copy(v, body); err != nil {
			return nil, nil, false, fmt.Errorf(`cannot read response body: %w`, err)
		}
		if closer, ok := v.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				return nil, nil, false, fmt.Errorf(`cannot read response body: %w`, err)
			}
		}
		return v, nil, false, nil
	default:
		if err := json.NewDecoder(body).Decode(resultDef); err != nil {
			return nil, nil, false, fmt.Errorf(`cannot decode JSON result: %w`, err)
		}
		return resultDef, nil, true, nil
	}
}
