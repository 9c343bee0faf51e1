package power

import "errors"

// Domain errors for the power package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, power.ErrOverloaded) {
//	    // the command was dropped
//	}
var (
	// ErrOverloaded is returned when the actor's inbound queue is full.
	// The message is dropped; no retry is attempted.
	ErrOverloaded = errors.New("power: actor overloaded")

	// ErrStopped is returned when submitting to an actor that is no longer running.
	ErrStopped = errors.New("power: actor stopped")

	// ErrUnknownDevice is returned when a command targets a device the registry has never seen.
	ErrUnknownDevice = errors.New("power: unknown device")

	// ErrSubscribeFailed is returned by Actor.Run when the status subscription
	// cannot be established. The actor cannot run without status visibility.
	ErrSubscribeFailed = errors.New("power: status subscription failed")

	// ErrInvalidState is returned when a state value is not On, Off or Pending.
	ErrInvalidState = errors.New("power: invalid state")

	// ErrInvalidAction is returned when an action value is not On or Off.
	ErrInvalidAction = errors.New("power: invalid action")

	// ErrInvalidDeviceID is returned for an empty device identifier.
	ErrInvalidDeviceID = errors.New("power: device id cannot be empty")

	// ErrAlreadyRunning is returned by a second call to Actor.Run.
	ErrAlreadyRunning = errors.New("power: actor already running")

	// ErrUnsupportedMessage is returned by Submit for a nil message.
	ErrUnsupportedMessage = errors.New("power: unsupported message")

	// ErrDistributorClosed is returned by Observer.WaitForChange once the
	// distributor has been closed and no newer snapshot remains.
	ErrDistributorClosed = errors.New("power: distributor closed")
)
