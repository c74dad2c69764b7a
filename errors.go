package notisync

import "errors"

var (
	// ErrNilClient is returned by New when no API client is provided.
	ErrNilClient = errors.New("notisync: nil client")

	errNotPolling = errors.New("notisync: poller is not running")
)
