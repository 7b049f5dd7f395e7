package types

import (
	"github.com/oklog/ulid/v2"
)

// ID Generation Helpers

func GenerateID(prefix string) string {
	return prefix + "_" + ulid.Make().String()
}

func GenerateEventID() string { return GenerateID("evt") }
func GenerateTraceID() string { return GenerateID("dec") }
