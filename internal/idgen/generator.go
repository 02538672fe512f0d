package idgen

import "fmt"

// Generator produces unique message ids.
type Generator interface {
	Generate() (string, error)
}

// New returns the generator registered under name.
func New(name string) (Generator, error) {
	switch name {
	case "", "ulid":
		return NewULIDGenerator(), nil
	case "uuid":
		return NewUUIDGenerator(), nil
	default:
		return nil, fmt.Errorf("unsupported id generator: %s", name)
	}
}
