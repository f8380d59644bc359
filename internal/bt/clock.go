package bt

import (
	"time"

	"github.com/google/uuid"
)

// Clock stamps the start and end of recorded runs.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// IDGenerator assigns run IDs.
type IDGenerator interface {
	New() string
}

// UUIDGenerator gives each run a random UUID.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.New().String() }
