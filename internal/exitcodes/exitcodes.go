package exitcodes

// Exit codes for rmfd
// These codes form the contract with scripts that wrap the command
const (
	Success       = 0 // Every operand removed, or declined interactively
	Failure       = 1 // At least one removal failed, or a pre-check refused the run
	Usage         = 2 // Missing operand or unknown option
	InvalidConfig = 3 // Configuration file or protected list invalid
)
