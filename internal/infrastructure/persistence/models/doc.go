// Package models contains the GORM persistence models for the local store.
// Models carry the table mappings and convert to and from domain types with
// ToDomain / FromDomain so the domain layer stays free of ORM tags.
package models
