// Package repository define las interfaces de acceso a datos del dominio.
//
// Las interfaces son genéricas sobre el tipo de referencia del backend (ver
// model.Data): un backend concreto (memoria, Postgres) las implementa con su
// propio tipo y el resto del servicio no cambia. Toda operación reporta
// fallas con los errores sentinel de errors.go, nunca con valores especiales.
package repository
