// Package channeltest provides a contract test suite for channel
// implementations.
//
// Channel authors call Verify from a regular Go test to check that their
// implementation honors the behavioral requirements every deployment stage
// relies on: exit codes reported as data, streams wired through, environment
// and working-directory handling, the file-system surface, uploads, and
// deterministic behavior after Close.
//
// All contracts assume a POSIX sh on the target.
package channeltest

// AllContracts returns all test cases for the contract test suite.
func AllContracts() []TestCase {
	const initialCapacity = 30

	contracts := make([]TestCase, 0, initialCapacity)

	contracts = append(contracts, coreContracts()...)
	contracts = append(contracts, environmentContracts()...)
	contracts = append(contracts, fileContracts()...)
	contracts = append(contracts, transferContracts()...)
	contracts = append(contracts, errorContracts()...)

	return contracts
}
