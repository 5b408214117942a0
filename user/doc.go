// Package user persists accounts and roles with GORM.
//
// Repository implements auth.IdentityStore, auth.CredentialUpdater and
// permission.RoleResolver, so the auth service and the admin guard both read
// from the same tables. Migrations creates the schema and seeds the default
// roles; EnsureAdmin bootstraps an administrator from configuration.
package user
