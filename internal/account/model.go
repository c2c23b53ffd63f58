package account

import "github.com/google/uuid"

// Account holds a spendable balance bounded by a ceiling. The invariant
// 0 <= CurrentBalance <= MaxBalance holds after every committed transition;
// confirmed transactions are the only writers of CurrentBalance besides the
// explicit balance-administration endpoints.
type Account struct {
	ID             uuid.UUID
	CurrentBalance int64
	MaxBalance     int64
}
