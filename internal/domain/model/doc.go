// Package model define el modelo de entidades del dominio de sesiones y
// credenciales: usuarios, sesiones de navegador, sesiones OAuth, códigos de
// autorización, access tokens y el puente de login legacy (compat).
//
// Todas las entidades son genéricas sobre un tipo de referencia D que aporta
// el backend de almacenamiento (ver backend.go). El modelo nunca inspecciona
// D: los invariantes de dominio se expresan solo sobre los campos portables.
package model
