package service

import "errors"

var (
	// ErrNotFound is returned when the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidCredentials covers unknown login and wrong password alike.
	ErrInvalidCredentials = errors.New("incorrect username or password")
	// ErrInactiveUser is returned when a deactivated account authenticates.
	ErrInactiveUser = errors.New("inactive user")
	// ErrDuplicateUser is returned when username or email is already taken.
	ErrDuplicateUser = errors.New("username or email already registered")
	// ErrInvalidToken is returned for expired or malformed tokens.
	ErrInvalidToken = errors.New("could not validate credentials")

	// ErrDuplicateCustomer is returned when phone or email already exists.
	ErrDuplicateCustomer = errors.New("customer with this phone or email already exists")

	// ErrConversationExists is returned when a non-closed conversation already
	// exists for the customer and channel.
	ErrConversationExists = errors.New("an active conversation already exists for this customer and channel")

	// ErrNotEditable is returned when mutating an entity outside its editable
	// lifecycle states.
	ErrNotEditable = errors.New("entity can no longer be modified")
	// ErrInvalidTransition is returned for a disallowed lifecycle move.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrNoRecipientAddress is returned when the customer has no address on
	// the requested channel.
	ErrNoRecipientAddress = errors.New("customer has no address for this channel")
	// ErrChannelNotSupported is returned for channels without a provider
	// integration.
	ErrChannelNotSupported = errors.New("channel is not supported yet")
	// ErrNoRecipients is returned when a campaign segment matches nobody.
	ErrNoRecipients = errors.New("campaign segment matches no recipients")
)
