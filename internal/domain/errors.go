package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a quiz session has not been started.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionClosed is returned for input after a session reached Submitted.
	ErrSessionClosed = errors.New("quiz session already submitted")
	// ErrNotLastQuestion rejects explicit submission away from the last question.
	ErrNotLastQuestion = errors.New("submit only allowed on the last question")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates a submitted question ID is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrPostNotFound indicates a vote targeted a missing forum post.
	ErrPostNotFound = errors.New("forum post not found")
	// ErrReplyNotFound indicates a vote targeted a missing forum reply.
	ErrReplyNotFound = errors.New("forum reply not found")
	// ErrEmptyContent rejects forum posts and replies without text.
	ErrEmptyContent = errors.New("content must not be empty")
)
