package escrow

// ProgramError is a custom error declared by the escrow program.
type ProgramError struct {
	Code    uint32
	Name    string
	Message string
}

// ProgramErrorBase is the first custom error code of an Anchor program.
const ProgramErrorBase uint32 = 6000

// ProgramErrors mirrors the program's error enum in declaration order;
// codes are ProgramErrorBase + index.
var ProgramErrors = []ProgramError{
	{Code: 6000, Name: "Overflow", Message: "Arithmetic overflow"},
	{Code: 6001, Name: "AlreadyDisbursed", Message: "Funds have already been disbursed"},
	{Code: 6002, Name: "ZeroAmount", Message: "Donation amount must be greater than zero"},
	{Code: 6003, Name: "Unauthorized", Message: "Only the vault authority can perform this action"},
	{Code: 6004, Name: "InvalidMint", Message: "Invalid USDC mint address"},
	{Code: 6005, Name: "InvalidSlug", Message: "Slug must be 1-32 bytes"},
}

// LookupProgramError returns the declared error for code.
func LookupProgramError(code uint32) (ProgramError, bool) {
	if code < ProgramErrorBase {
		return ProgramError{}, false
	}
	i := int(code - ProgramErrorBase)
	if i >= len(ProgramErrors) {
		return ProgramError{}, false
	}
	return ProgramErrors[i], true
}
