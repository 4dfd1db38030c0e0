package model

import (
	"crypto/rand"
	"fmt"
)

// deviceAlphabet y deviceLength siguen el formato de device id de los
// clientes legacy: 10 caracteres alfanuméricos.
const (
	deviceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	deviceLength   = 10
)

// Device identifica el dispositivo de un cliente legacy. Se genera uno nuevo,
// aleatorio, por cada login.
type Device string

// GenerateDevice crea un device id aleatorio con entropía criptográfica.
// Muestrea con rechazo: 62 no divide a 256, así que un módulo directo
// cargaría los primeros caracteres del alfabeto.
func GenerateDevice() (Device, error) {
	// 248 es el múltiplo de 62 más grande que entra en un byte
	const limit = byte(len(deviceAlphabet) * (256 / len(deviceAlphabet)))

	out := make([]byte, 0, deviceLength)
	buf := make([]byte, deviceLength)
	for len(out) < deviceLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("generate device: %w", err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, deviceAlphabet[int(b)%len(deviceAlphabet)])
			if len(out) == deviceLength {
				break
			}
		}
	}
	return Device(out), nil
}

func (d Device) String() string { return string(d) }
