package domain

import "time"

// ChatSession binds one user to one book.
// BookID is fixed at creation and never reassigned.
type ChatSession struct {
	// ID is the unique identifier.
	ID int64

	// UserID is the owning user.
	UserID int64

	// BookID is the book the session asks about.
	BookID int64

	// CreatedAt is when the session was created.
	CreatedAt time.Time
}

// Sender discriminates who produced a chat message.
type Sender string

const (
	// SenderUser marks a question typed by the user.
	SenderUser Sender = "user"

	// SenderAssistant marks a generated answer.
	SenderAssistant Sender = "AI"
)

// IsValid returns true if the sender is recognised.
func (s Sender) IsValid() bool {
	return s == SenderUser || s == SenderAssistant
}

// ChatMessage is one entry in a session's log.
// Creation order is significant; ID increases monotonically within a store.
type ChatMessage struct {
	// ID is the unique identifier.
	ID int64

	// SessionID is the owning session.
	SessionID int64

	// Sender is who produced the message.
	Sender Sender

	// Content is the message text.
	Content string

	// CreatedAt is when the message was recorded.
	CreatedAt time.Time
}

// Access is the outcome of checking a user against a session.
type Access int

const (
	// AccessAllowed means the user owns the session.
	AccessAllowed Access = iota

	// AccessNotFound means no session with that ID exists.
	AccessNotFound

	// AccessForbidden means the session exists but belongs to someone else.
	AccessForbidden
)

// Err maps the outcome to its sentinel error, or nil when allowed.
func (a Access) Err() error {
	switch a {
	case AccessAllowed:
		return nil
	case AccessNotFound:
		return ErrSessionNotFound
	case AccessForbidden:
		return ErrForbidden
	default:
		return ErrForbidden
	}
}

// String returns the string representation.
func (a Access) String() string {
	switch a {
	case AccessAllowed:
		return "allowed"
	case AccessNotFound:
		return "not_found"
	case AccessForbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}
