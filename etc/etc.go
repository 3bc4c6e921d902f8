package etc

import (
	"github.com/nrednav/cuid2"
)

// Gensym returns a fresh collision-resistant identifier.
func Gensym() string {
	return cuid2.Generate()
}
