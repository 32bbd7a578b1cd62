package suite

import "fmt"

// VersionKey is the meta key holding the engine version a suite
// was built with.
const VersionKey = "expectations_version"

// EngineVersion is the version stamped on new suites.
const EngineVersion = "0.9.0"

// ColumnExistenceType is the expectation type merged by Merge.
const ColumnExistenceType = "expect_column_to_exist"

// CheckVersion compares the suite's version marker with current
// and returns an advisory warning, or "" when they match.
func (s *Suite) CheckVersion(current string) string {
	marker, ok := s.Meta[VersionKey]
	if !ok || marker == nil {
		return "No expectations version found in configuration object."
	}
	built := fmt.Sprint(marker)
	if built == current {
		return ""
	}
	return fmt.Sprintf(
		"This configuration object was built using version %s of "+
			"expectations, but is currently being validated by version %s.",
		built, current,
	)
}
