package suite

// Catalog tells a suite how to interpret the kwargs of an
// expectation type. The rule registry implements it.
type Catalog interface {
	// PositionalArgs names the positional arguments of
	// expectationType in order. nil means unknown.
	PositionalArgs(expectationType string) []string

	// Discriminators names the kwargs that identify what an
	// expectation of this type targets. nil means the default
	// set; an empty slice means the type alone identifies it.
	Discriminators(expectationType string) []string
}

// DefaultDiscriminators are the kwargs that identify an
// expectation when its catalog has no opinion.
var DefaultDiscriminators = []string{
	"column", "column_A", "column_B", "column_list",
}

// DefaultPositionalArgs is used for types the catalog does not
// know, and when a query has no type.
var DefaultPositionalArgs = []string{"column"}

// columnKeys are the kwargs whose values name table columns.
var columnKeys = []string{"column", "column_A", "column_B", "column_list"}

type defaultCatalog struct{}

func (defaultCatalog) PositionalArgs(string) []string { return nil }
func (defaultCatalog) Discriminators(string) []string { return nil }

func (s *Suite) positionalArgs(expectationType string) []string {
	if expectationType == "" {
		return DefaultPositionalArgs
	}
	if args := s.catalog.PositionalArgs(expectationType); args != nil {
		return args
	}
	return DefaultPositionalArgs
}

func (s *Suite) discriminators(expectationType string) []string {
	if d := s.catalog.Discriminators(expectationType); d != nil {
		return d
	}
	return DefaultDiscriminators
}
