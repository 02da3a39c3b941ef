package common

import (
	"errors"
	"fmt"
	"strings"
)

// Match these with errors.Is; the typed errors below all match their sentinel.
var (
	// ErrOfflineGate reports a mutation that was short-circuited before any
	// network call because the device is offline or the user is signed out.
	ErrOfflineGate = errors.New("offline")

	// ErrRemoteFailure covers transport errors and non-success responses.
	ErrRemoteFailure = errors.New("remote failure")

	// ErrStorageFailure reports that local persistence was unavailable or
	// a read/write failed.
	ErrStorageFailure = errors.New("storage failure")

	// ErrDecodeFailure reports a remote payload that could not be interpreted.
	ErrDecodeFailure = errors.New("decode failure")

	// ErrInvalidRequest reports caller input rejected before any I/O.
	ErrInvalidRequest = errors.New("invalid request")
)

// RemoteError is a failed call to a remote collaborator endpoint.
// StatusCode is zero for transport errors.
type RemoteError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *RemoteError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("%s: http %d: %s", e.Op, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: http %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
}

func (e *RemoteError) Unwrap() error { return e.Err }

func (e *RemoteError) Is(target error) bool { return target == ErrRemoteFailure }

// StorageError wraps a local persistence failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorageFailure }

// Storage wraps err as a StorageError. A nil err yields nil.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// DecodeError wraps a payload that failed to parse or validate.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("%s: decode: %v", e.Op, e.Err) }

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecodeFailure }

// OfflineMessage is the wording used for ErrOfflineGate so the UI can tell
// "you are offline" apart from "the server rejected this".
const OfflineMessage = "You are offline or signed out. Connect to the internet and sign in to do this."

// UserMessage extracts a human-readable message from err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrOfflineGate) {
		return OfflineMessage
	}
	var re *RemoteError
	if errors.As(err, &re) {
		if msg := strings.TrimSpace(re.Message); msg != "" {
			return msg
		}
		if re.StatusCode == 0 && re.Err != nil {
			return re.Err.Error()
		}
		return GenericErrorMessage
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return GenericErrorMessage
}
