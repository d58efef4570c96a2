package auth

import "errors"

var (
	ErrInvalidToken          = errors.New("invalid token")
	ErrTokenExpired          = errors.New("token has expired")
	ErrEmployeeRequired      = errors.New("token is not bound to an employee")
	ErrManagerAccessRequired = errors.New("manager access required")
)
