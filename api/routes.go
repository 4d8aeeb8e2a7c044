package api

const (
	// PingEndpoint is the endpoint for checking the API status
	PingEndpoint = "/ping"
	// ElectionEndpoint returns the election parameters and phase
	ElectionEndpoint = "/election"
	// ElectionSetupEndpoint configures the candidate list and the ballot pool
	ElectionSetupEndpoint = "/election/setup"
	// ElectionOpenEndpoint opens the election for voting
	ElectionOpenEndpoint = "/election/open"
	// ElectionCloseEndpoint closes the election
	ElectionCloseEndpoint = "/election/close"
	// ElectionSealEndpoint seals the election and publishes the final tally
	ElectionSealEndpoint = "/election/seal"
	// ElectionTallyEndpoint returns the tally of a closed or sealed election
	ElectionTallyEndpoint = "/election/tally"
	// VotersEndpoint registers a new voter
	VotersEndpoint = "/voters"
	// VoterEndpoint returns the status of a voter
	VoterURLParam = "voterId"
	VoterEndpoint = "/voters/{" + VoterURLParam + "}"
	// VoterDeviceEndpoint issues a device verification challenge, and
	// VoterDeviceVerifyEndpoint checks the echoed OTP
	VoterDeviceEndpoint       = VoterEndpoint + "/device"
	VoterDeviceVerifyEndpoint = VoterEndpoint + "/device/verify"
	// VoterAuthEndpoint authenticates a voter with a biometric sample
	VoterAuthEndpoint = VoterEndpoint + "/authenticate"
	// VoterBallotEndpoint issues a ballot to an authenticated voter
	VoterBallotEndpoint = VoterEndpoint + "/ballot"
	// VotesEndpoint casts a vote
	VotesEndpoint = "/votes"
	// BallotAuditEndpoint spoils a ballot and reveals all its codes
	SerialURLParam      = "serial"
	BallotAuditEndpoint = "/ballots/{" + SerialURLParam + "}/audit"
	// BoardEndpoint lists the bulletin board, BoardEntryEndpoint returns one entry
	SeqURLParam        = "seq"
	BoardEndpoint      = "/board"
	BoardEntryEndpoint = "/board/{" + SeqURLParam + "}"
)
