package types

import "errors"

var (
	// ErrAuthentication is returned when the secret store denies access
	// (user presence required and not satisfied, or the prompt was
	// dismissed). Distinct from an absent key, which is not an error.
	ErrAuthentication = errors.New("keychain access denied")

	// ErrUnknownWalletType is returned when a secret input matches none
	// of the recognized shapes.
	ErrUnknownWalletType = errors.New("unknown wallet type")

	// ErrDuplicateWallet is returned on importing a secret whose primary
	// address already exists under the same wallet type.
	ErrDuplicateWallet = errors.New("wallet already imported")

	// ErrMissingSeed is returned when no seed phrase can be found for a
	// wallet id.
	ErrMissingSeed = errors.New("cannot access seed phrase for wallet")

	// ErrInvalidPassword is returned when a backup bundle does not
	// decrypt to a usable payload.
	ErrInvalidPassword = errors.New("invalid backup password")

	// ErrTransactionFailed is returned when signing or broadcast throws.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrActionConfirmation marks a rap action that reached terminal
	// Confirmed(false).
	ErrActionConfirmation = errors.New("action confirmation failed")
)
