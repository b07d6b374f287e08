package uuid

import gonanoid "github.com/matoous/go-nanoid"

// Generator ID generator interface
type Generator interface {
	Generate() (string, error)
}

// ProgressAlphabet URL and SQL safe alphabet used for progress record ids
const ProgressAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NanoIDGenerator ID implementation using NanoID
type NanoIDGenerator struct {
	Length   int
	Alphabet string // defaults to the nanoid alphabet
}

var _ Generator = &NanoIDGenerator{}

// NewNanoIDGenerator create a new `NanoIDGenerator` instance
func NewNanoIDGenerator(length int, alphabet ...string) *NanoIDGenerator {
	if length < 1 {
		panic("length must be larger than 1")
	}
	g := &NanoIDGenerator{Length: length}
	if len(alphabet) > 0 {
		g.Alphabet = alphabet[0]
	}
	return g
}

// Generate generate ID
func (ns *NanoIDGenerator) Generate() (string, error) {
	if ns.Alphabet != "" {
		return gonanoid.Generate(ns.Alphabet, ns.Length)
	}
	return gonanoid.Nanoid(ns.Length)
}
