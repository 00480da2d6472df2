package domain

import "errors"

var (
	// ErrSessionNotFound is returned when no live quiz run matches a session code.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrQuizNotFound indicates the question set could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrInvalidQuestionSet indicates a question set that cannot be played.
	ErrInvalidQuestionSet = errors.New("invalid question set")
	// ErrNotInLobby is returned by runtime toggles once a run has started.
	ErrNotInLobby = errors.New("setting can only change in the lobby")
	// ErrEngineDestroyed is returned by engine commands after Destroy.
	ErrEngineDestroyed = errors.New("quiz engine destroyed")
	// ErrWrongRole is returned when a transport method is used by the other side.
	ErrWrongRole = errors.New("operation not allowed for this transport role")
	// ErrTransportClosed is returned when sending on a disconnected transport.
	ErrTransportClosed = errors.New("transport disconnected")
	// ErrSessionExists is returned when a session code is already registered.
	ErrSessionExists = errors.New("quiz session already exists")
	// ErrUnknownScoring is returned for a scoring strategy name that does not exist.
	ErrUnknownScoring = errors.New("unknown scoring strategy")
)
