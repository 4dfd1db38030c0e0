package validation

import "net/mail"

// ValidEmail reporta si address es una dirección simple (sin display name,
// sin listas). Acá solo se gestiona la dirección; la entrega de correo queda
// fuera de este servicio.
func ValidEmail(address string) bool {
	if address == "" {
		return false
	}
	a, err := mail.ParseAddress(address)
	return err == nil && a.Address == address
}
