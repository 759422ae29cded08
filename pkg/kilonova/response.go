package kilonova

import (
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/kiloprojects/go-client/pkg/request"
)

// TransportErrorCode is the status code of an error envelope created for a transport failure.
const TransportErrorCode = 999

type Status string

const (
	StatusSuccess = Status("success")
	StatusError   = Status("error")
)

// Response is the envelope of all API responses.
// Data is set if the Status is StatusSuccess, Message is set if the Status is StatusError.
// StatusCode is the HTTP status code, or TransportErrorCode.
type Response[T any] struct {
	Status     Status
	Data       T
	Message    string
	StatusCode int
}

type rawResponse struct {
	Status     Status              `json:"status"`
	Data       jsoniter.RawMessage `json:"data"`
	StatusCode int                 `json:"statusCode,omitempty"`
}

// newTransportError creates the error envelope for a failure without a valid server response.
func newTransportError[T any](err error) Response[T] {
	return Response[T]{Status: StatusError, Message: err.Error(), StatusCode: TransportErrorCode}
}

func (r Response[T]) IsSuccess() bool {
	return r.Status == StatusSuccess
}

func (r Response[T]) IsError() bool {
	return r.Status != StatusSuccess
}

// Err returns the *Error if the response is an error envelope, otherwise nil.
func (r Response[T]) Err() error {
	if r.IsSuccess() {
		return nil
	}
	return &Error{Message: r.Message, StatusCode: r.StatusCode}
}

func (r *Response[T]) UnmarshalJSON(data []byte) error {
	raw := rawResponse{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var empty T
	r.Data, r.Message = empty, ""
	switch raw.Status {
	case StatusSuccess:
		if len(raw.Data) > 0 && string(raw.Data) != "null" {
			if err := json.Unmarshal(raw.Data, &r.Data); err != nil {
				return fmt.Errorf(`cannot decode response data: %w`, err)
			}
		}
	case StatusError:
		// The message is a string, other values are kept as they are
		if err := json.Unmarshal(raw.Data, &r.Message); err != nil {
			r.Message = string(raw.Data)
		}
	default:
		return fmt.Errorf(`unexpected response status "%s"`, raw.Status)
	}

	r.Status = raw.Status
	return nil
}

func (r Response[T]) MarshalJSON() ([]byte, error) {
	raw := rawResponse{Status: r.Status, StatusCode: r.StatusCode}
	var err error
	if r.IsSuccess() {
		raw.Data, err = json.Marshal(r.Data)
	} else {
		raw.Data, err = json.Marshal(r.Message)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(raw)
}

// complete sets the status code, or replaces the response by the error envelope if the request failed.
func (r *Response[T]) complete(res request.HTTPResponse, err error) {
	if err == nil && r.Status == "" {
		err = errors.New("response body is empty")
	}
	if err != nil {
		*r = newTransportError[T](err)
		return
	}
	r.StatusCode = res.StatusCode()
}
