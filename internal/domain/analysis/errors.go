package analysis

import "errors"

// ErrSourceUnavailable means the log file or metrics endpoint could not be read or returned garbage.
var ErrSourceUnavailable = errors.New("log source unavailable")

// ErrNoJSONFound means the reply text holds no balanced JSON object or array.
var ErrNoJSONFound = errors.New("no json found in reply")

// ErrMalformedJSON means a JSON candidate was found but could not be decoded into verdicts.
var ErrMalformedJSON = errors.New("malformed json in reply")

// ErrNothingToAggregate is returned by the aggregator on an empty verdict list.
var ErrNothingToAggregate = errors.New("no verdicts to aggregate")

// ErrInvalidLimit is returned for a non-positive history limit.
var ErrInvalidLimit = errors.New("limit must be a positive integer")

// ErrBusy is returned when a run is requested while another one is in flight.
var ErrBusy = errors.New("analysis already running")
