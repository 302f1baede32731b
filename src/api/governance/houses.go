package governance

import (
	"math/rand"
	"sync"
	"time"

	"github.com/jagnani73/daoscape-sub001/src/api/types"
)

var (
	rngMu sync.Mutex
	rng   = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// AssignHouse picks one of the four houses uniformly at random. The
// assignment is immutable once persisted.
func AssignHouse() string {
	rngMu.Lock()
	defer rngMu.Unlock()
	return types.Houses[rng.Intn(len(types.Houses))]
}
