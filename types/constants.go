package types

const (
	// KeyBytes is the size of every key in the derivation chain (Q_K1,
	// Q_K2, biometric signature, AQ_K1, VQ_K1).
	KeyBytes = 16
	// SerialBytes is the size of a ballot serial.
	SerialBytes = 8
	// CodeBytes is the size of a confirmation code.
	CodeBytes = 8
	// PseudonymBytes is the size of the anonymous pseudonym a ballot gets
	// once issued.
	PseudonymBytes = 16
	// OTPBytes is the size of a device verification one-time password.
	OTPBytes = 8
	// VoterIDBytes is the size of a voter identifier.
	VoterIDBytes = 8
)
