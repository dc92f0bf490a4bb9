package predictor

import "net/http"

// UnexpectedResponse is the message used when a successful exchange carries
// neither a level nor a predictor error.
const UnexpectedResponse = "The API returned an unexpected response."

// ExchangeError is a transport-level failure: the predictor was unreachable
// or answered with a non-success status.
type ExchangeError struct {
	StatusCode int
	Err        error
}

func (e *ExchangeError) Error() string {
	if e.StatusCode == 0 && e.Err != nil {
		return "Network error: " + e.Err.Error()
	}
	return "Network error: " + statusText(e.StatusCode)
}

func (e *ExchangeError) Unwrap() error { return e.Err }

// ContractError is a successful exchange whose body did not carry the
// expected severity field.
type ContractError struct {
	Message string
}

func (e *ContractError) Error() string { return e.Message }

func statusText(code int) string {
	if t := http.StatusText(code); t != "" {
		return t
	}
	return http.StatusText(http.StatusInternalServerError)
}
