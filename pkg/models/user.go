package models

// UserRole is carried in access tokens
type UserRole string

const (
	RoleCustomer UserRole = "customer"
	RolePartner  UserRole = "partner"
	RoleAdmin    UserRole = "admin"
)
