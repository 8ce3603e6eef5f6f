package reconcile

import (
	"strconv"
	"strings"

	"gorm.io/gorm"

	"gsa-hub/internal/domain/users"
)

type ResolutionState int

const (
	Resolved ResolutionState = iota
	NotFound
	Ambiguous
)

// Resolution is the outcome of mapping a gateway payment back to the
// (user, product) pair that originated it.
type Resolution struct {
	State     ResolutionState
	UserID    uint
	ProductID uint
}

// ParseExternalReference decodes the "<productID>|<userID>" token we attach
// to every charge at checkout time. This is the preferred, unambiguous path.
func ParseExternalReference(ref string) (productID, userID uint, ok bool) {
	parts := strings.Split(strings.TrimSpace(ref), "|")
	if len(parts) != 2 {
		return 0, 0, false
	}
	pid, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil || pid == 0 {
		return 0, 0, false
	}
	uid, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil || uid == 0 {
		return 0, 0, false
	}
	return uint(pid), uint(uid), true
}

// ResolveIdentity ranks the resolution strategies: the composite external
// reference first, then an exact single match on payer email or cpf/cnpj
// with the product taken from the invoice row the charge was created
// against. It never guesses: zero matches is NotFound, more than one is
// Ambiguous, and both park the event.
func ResolveIdentity(db *gorm.DB, payment EventPayment, invoiceProductID uint) Resolution {
	if pid, uid, ok := ParseExternalReference(payment.ExternalReference); ok {
		return Resolution{State: Resolved, UserID: uid, ProductID: pid}
	}

	if invoiceProductID == 0 {
		return Resolution{State: NotFound}
	}

	ids := map[uint]struct{}{}
	if email := strings.TrimSpace(payment.Email); email != "" {
		var matches []users.User
		if err := db.Where("email = ?", email).Find(&matches).Error; err != nil {
			return Resolution{State: NotFound}
		}
		for _, u := range matches {
			ids[u.ID] = struct{}{}
		}
	}
	if doc := strings.TrimSpace(payment.CpfCnpj); doc != "" {
		var matches []users.User
		if err := db.Where("cpf_cnpj = ?", doc).Find(&matches).Error; err != nil {
			return Resolution{State: NotFound}
		}
		for _, u := range matches {
			ids[u.ID] = struct{}{}
		}
	}

	switch len(ids) {
	case 0:
		return Resolution{State: NotFound}
	case 1:
		for id := range ids {
			return Resolution{State: Resolved, UserID: id, ProductID: invoiceProductID}
		}
	}
	return Resolution{State: Ambiguous}
}
