package mpt

import (
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/suites"
	"golang.org/x/xerrors"
)

// DefaultSuiteName names the kyber suite whose hash is used as the digest
// oracle when nothing else is configured. Its hash is SHA-256.
const DefaultSuiteName = "Ed25519"

// Suite is the digest oracle used by tries and stores that are not given one
// explicitly.
var Suite kyber.HashFactory = suites.MustFind(DefaultSuiteName)

// FindSuite returns the hash factory of the kyber suite with the given name.
// An empty name selects Suite.
func FindSuite(name string) (kyber.HashFactory, error) {
	if name == "" {
		return Suite, nil
	}
	s, err := suites.Find(name)
	if err != nil {
		return nil, xerrors.Errorf("unknown suite %q: %v", name, err)
	}
	return s, nil
}
