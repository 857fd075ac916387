package skill

import "errors"

var (
	ErrDuplicateSkill = errors.New("duplicate skill")
	ErrInvalidSkill   = errors.New("invalid skill")
	ErrUnknownSkill   = errors.New("unknown skill")
	ErrRegistrySealed = errors.New("registry sealed")
	ErrInvalidPattern = errors.New("invalid trigger pattern")
)
