package intake

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

func simulatedOrderID() string {
	return "ORD-" + strings.ToUpper(ulid.Make().String())
}
