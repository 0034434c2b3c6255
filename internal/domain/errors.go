package domain

import "errors"

var (
	// ErrCategoryNotFound is returned when a referenced category does not exist.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrSubCategoryNotFound is returned when a subcategory does not exist or
	// belongs to a different category.
	ErrSubCategoryNotFound = errors.New("subcategory not found")
	// ErrHistoryNotFound is returned when a history row does not exist or is
	// owned by a different user.
	ErrHistoryNotFound = errors.New("quiz history not found")
	// ErrNoActiveQuiz is returned when an operation needs an in-flight quiz
	// but the session holds none.
	ErrNoActiveQuiz = errors.New("no active quiz in session")
	// ErrQuestionIndex is returned for an out-of-range question index.
	ErrQuestionIndex = errors.New("question index out of range")
	// ErrAttemptCompleted is returned when grading is attempted against an
	// already-finalized history row.
	ErrAttemptCompleted = errors.New("attempt already completed")
	// ErrEmailTaken is returned when registering with an email that exists.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUserNotFound is returned when a user lookup misses.
	ErrUserNotFound = errors.New("user not found")
)
